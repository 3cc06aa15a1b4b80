package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FSStore stores artifacts as plain files on the local filesystem. It is the
// default backend and preserves the on-disk layout callers expect when they
// point other tools at the cache directory.
//
// Write assumes the parent directory already exists: directory creation is a
// strategy decision made by the query engine, not a storage concern.
type FSStore struct{}

// NewFSStore creates a filesystem-backed store.
func NewFSStore() *FSStore {
	return &FSStore{}
}

// Read loads the file at path.
func (s *FSStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write stores data at path. The bytes land in a uniquely named temp file in
// the same directory first and are renamed into place, so a reader never
// observes a half-written artifact.
func (s *FSStore) Write(_ context.Context, path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	return nil
}

// EnsureParentDir creates the directory chain above path.
func (s *FSStore) EnsureParentDir(_ context.Context, path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a file is present at path.
func (s *FSStore) Exists(_ context.Context, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}

// Close is a no-op; the store holds no resources.
func (s *FSStore) Close() error {
	return nil
}
