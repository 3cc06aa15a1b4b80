// Package blobstore provides path-keyed artifact storage for cached query
// results. A Store holds opaque bytes under a path; the querycache presets
// pair a Store with a codec to form reader/writer hooks.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Read when no artifact exists at the path.
var ErrNotFound = errors.New("artifact not found")

// Store is the contract every artifact backend satisfies. Paths are
// slash-separated keys; only the filesystem backend maps them to real
// directories.
type Store interface {
	// Read retrieves the artifact stored at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write stores the artifact at path, replacing any previous value.
	Write(ctx context.Context, path string, data []byte) error
	// Exists reports whether an artifact is present at path. It is what
	// lazy strategy resolution consults for non-filesystem backends.
	Exists(ctx context.Context, path string) (bool, error)
	// EnsureParentDir prepares the location path will be written to. Only
	// the filesystem backend has real directories to create; object and
	// key-value backends treat this as a no-op.
	EnsureParentDir(ctx context.Context, path string) error
	// Closer is included for implementations that manage network connections.
	io.Closer
}
