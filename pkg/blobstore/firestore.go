package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStoreConfig holds configuration for the Firestore-backed store.
type FirestoreStoreConfig struct {
	ProjectID      string
	CollectionName string
}

// firestoreArtifact is the document shape stored per cache path.
type firestoreArtifact struct {
	Data      []byte    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore keeps cached artifacts as one document per path.
// Don't use it in high volume deployments - that's what Redis or GCS are for.
type FirestoreStore struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreStore creates a store over an existing Firestore client.
func NewFirestoreStore(cfg FirestoreStoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreStore initialized.")

	return &FirestoreStore{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// Read retrieves the artifact document for path.
func (s *FirestoreStore) Read(ctx context.Context, path string) ([]byte, error) {
	docSnap, err := s.doc(path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to get artifact document from Firestore.")
		return nil, fmt.Errorf("firestore get for %s: %w", path, err)
	}

	var artifact firestoreArtifact
	if err := docSnap.DataTo(&artifact); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to map Firestore document data.")
		return nil, fmt.Errorf("firestore DataTo for %s: %w", path, err)
	}
	return artifact.Data, nil
}

// Write stores the artifact document for path.
func (s *FirestoreStore) Write(ctx context.Context, path string, data []byte) error {
	artifact := firestoreArtifact{Data: data, UpdatedAt: time.Now().UTC()}
	if _, err := s.doc(path).Set(ctx, artifact); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to write artifact document to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Msg("Successfully wrote artifact to Firestore.")
	return nil
}

// Exists reports whether an artifact document is present for path.
func (s *FirestoreStore) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := s.doc(path).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("firestore get for %s: %w", path, err)
	}
	return true, nil
}

// EnsureParentDir is a no-op for a document collection.
func (s *FirestoreStore) EnsureParentDir(_ context.Context, _ string) error {
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *FirestoreStore) Close() error {
	s.logger.Info().Msg("FirestoreStore does not close the injected Firestore client.")
	return nil
}

// Firestore document IDs cannot contain forward slashes, so cache paths are
// escaped before use.
func (s *FirestoreStore) doc(path string) *firestore.DocumentRef {
	return s.client.Collection(s.collectionName).Doc(url.PathEscape(path))
}
