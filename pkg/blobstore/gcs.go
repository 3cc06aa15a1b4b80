package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// ====================================================================================
// The interfaces below abstract the Google Cloud Storage client so GCSStore
// can be unit tested against fakes instead of a live bucket.
// ====================================================================================

// GCSClient abstracts the top-level *storage.Client.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle abstracts a *storage.BucketHandle.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle abstracts a *storage.ObjectHandle.
type GCSObjectHandle interface {
	NewWriter(ctx context.Context) io.WriteCloser
	NewReader(ctx context.Context) (io.ReadCloser, error)
	Attrs(ctx context.Context) (*storage.ObjectAttrs, error)
}

// gcsClientAdapter wraps a *storage.Client to satisfy the GCSClient interface.
type gcsClientAdapter struct {
	client *storage.Client
}

// NewGCSClientAdapter makes the concrete *storage.Client conform to GCSClient.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return &gcsClientAdapter{client: client}
}

func (a *gcsClientAdapter) Bucket(name string) GCSBucketHandle {
	return &gcsBucketHandleAdapter{handle: a.client.Bucket(name)}
}

type gcsBucketHandleAdapter struct {
	handle *storage.BucketHandle
}

func (a *gcsBucketHandleAdapter) Object(name string) GCSObjectHandle {
	return &gcsObjectHandleAdapter{handle: a.handle.Object(name)}
}

type gcsObjectHandleAdapter struct {
	handle *storage.ObjectHandle
}

func (a *gcsObjectHandleAdapter) NewWriter(ctx context.Context) io.WriteCloser {
	return a.handle.NewWriter(ctx)
}

func (a *gcsObjectHandleAdapter) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return a.handle.NewReader(ctx)
}

func (a *gcsObjectHandleAdapter) Attrs(ctx context.Context) (*storage.ObjectAttrs, error) {
	return a.handle.Attrs(ctx)
}

// GCSStoreConfig holds configuration for the GCS-backed store.
type GCSStoreConfig struct {
	BucketName   string
	ObjectPrefix string
}

// GCSStore keeps cached artifacts as objects in a Google Cloud Storage
// bucket, with the cache path as the object name under an optional prefix.
type GCSStore struct {
	client GCSClient
	config GCSStoreConfig
	logger zerolog.Logger
}

// NewGCSStore creates a store backed by Google Cloud Storage.
func NewGCSStore(client GCSClient, config GCSStoreConfig, logger zerolog.Logger) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSStore{
		client: client,
		config: config,
		logger: logger.With().Str("component", "GCSStore").Logger(),
	}, nil
}

// Read downloads the object stored for path.
func (s *GCSStore) Read(ctx context.Context, p string) ([]byte, error) {
	r, err := s.object(p).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		s.logger.Error().Err(err).Str("path", p).Msg("Failed to open GCS object for reading.")
		return nil, fmt.Errorf("failed to open gcs object %s: %w", p, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.Error().Err(err).Str("path", p).Msg("Failed to read GCS object.")
		return nil, fmt.Errorf("failed to read gcs object %s: %w", p, err)
	}
	return data, nil
}

// Write uploads data as the object for path. The object only becomes visible
// once the writer closes successfully.
func (s *GCSStore) Write(ctx context.Context, p string, data []byte) error {
	w := s.object(p).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gcs object %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gcs object %s: %w", p, err)
	}
	s.logger.Debug().Str("path", p).Int("bytes", len(data)).Msg("Successfully uploaded artifact to GCS.")
	return nil
}

// Exists checks object metadata for presence.
func (s *GCSStore) Exists(ctx context.Context, p string) (bool, error) {
	if _, err := s.object(p).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat gcs object %s: %w", p, err)
	}
	return true, nil
}

// EnsureParentDir is a no-op: GCS has a flat namespace, object names only
// look like directory paths.
func (s *GCSStore) EnsureParentDir(_ context.Context, _ string) error {
	return nil
}

// Close is a no-op; the underlying client's lifecycle is managed externally.
func (s *GCSStore) Close() error {
	return nil
}

func (s *GCSStore) object(p string) GCSObjectHandle {
	name := p
	if s.config.ObjectPrefix != "" {
		name = path.Join(s.config.ObjectPrefix, p)
	}
	return s.client.Bucket(s.config.BucketName).Object(name)
}
