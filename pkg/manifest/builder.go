package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrBuilderRequired is returned by Ensure when the manifest file is absent
// and no Builder was supplied. The base configuration has no notion of what
// a default manifest contains; that knowledge always lives with the caller.
var ErrBuilderRequired = errors.New("manifest file is absent and no builder is configured")

// Builder populates a default manifest document at path when none exists.
// Every deployment that relies on auto-created manifests must supply one.
type Builder interface {
	BuildManifest(path string) error
}

// BuilderFunc adapts a plain function to the Builder interface.
type BuilderFunc func(path string) error

// BuildManifest calls f(path).
func (f BuilderFunc) BuildManifest(path string) error {
	return f(path)
}

// Ensure loads the manifest at path, first creating it via the builder if it
// does not exist. Parent directories of path are created as needed before
// the builder runs.
func Ensure(path string, builder Builder, logger zerolog.Logger) (*Manifest, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat manifest %s: %w", path, err)
		}
		if builder == nil {
			return nil, fmt.Errorf("%w: %s", ErrBuilderRequired, path)
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create manifest directory %s: %w", dir, err)
			}
		}
		logger.Info().Str("path", path).Msg("Manifest file absent. Building default manifest.")
		if err := builder.BuildManifest(path); err != nil {
			return nil, fmt.Errorf("failed to build default manifest at %s: %w", path, err)
		}
	}
	return Load(path, logger)
}
