package querycache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-querycache/pkg/manifest"
	"github.com/illmade-knight/go-querycache/pkg/tabular"
)

// Config holds the facade configuration. It is read once at construction.
type Config struct {
	// CacheEnabled gates path resolution: a disabled cache resolves no
	// paths, so callers normally combine it with the pass-through strategy.
	CacheEnabled bool
	// ManifestPath locates the manifest document. Empty means no manifest;
	// callers then supply explicit paths.
	ManifestPath string
}

// Cache is the caller-facing facade. It resolves manifest keys to paths and
// delegates the actual caching decisions to the engine.
type Cache struct {
	enabled  bool
	manifest *manifest.Manifest
	engine   *Engine
	logger   zerolog.Logger
}

// New creates a Cache. When cfg.ManifestPath is set and the file does not
// exist yet, the builder is invoked to lay down a default manifest first; a
// nil builder in that situation fails construction with
// manifest.ErrBuilderRequired.
func New(cfg Config, builder manifest.Builder, logger zerolog.Logger) (*Cache, error) {
	c := &Cache{
		enabled: cfg.CacheEnabled,
		engine:  NewEngine(logger),
		logger:  logger.With().Str("component", "Cache").Logger(),
	}
	if cfg.ManifestPath != "" {
		m, err := manifest.Ensure(cfg.ManifestPath, builder, logger)
		if err != nil {
			return nil, err
		}
		c.manifest = m
	}
	return c, nil
}

// Enabled reports whether caching is switched on.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Manifest returns the loaded manifest, or nil when none was configured.
func (c *Cache) Manifest() *manifest.Manifest {
	return c.manifest
}

// Engine returns the engine the facade delegates to, for callers that want
// to execute against explicit paths.
func (c *Cache) Engine() *Engine {
	return c.engine
}

// CachePath resolves where a cached artifact lives. A disabled cache
// resolves nothing (empty path, nil error). An explicit fileName takes
// precedence over manifest lookup; otherwise manifestKey and args resolve
// against the manifest, and an unknown key surfaces as an error.
func (c *Cache) CachePath(fileName, manifestKey string, args ...any) (string, error) {
	if !c.enabled {
		return "", nil
	}
	if fileName != "" {
		return fileName, nil
	}
	if c.manifest != nil {
		return c.manifest.GetPath(manifestKey, args...)
	}
	return "", nil
}

// Request names one cached query at the facade level.
type Request struct {
	// FileName, when set, is used as the target path directly.
	FileName string
	// ManifestKey and Args resolve the path via the manifest when FileName
	// is empty.
	ManifestKey string
	Args        []any
	// Strategy selects the caching behavior; the zero value is pass-through.
	Strategy Strategy
}

// Cached resolves the request's path and executes the query. An unresolved
// path falls through to the engine's default.
func Cached[D, R any](ctx context.Context, c *Cache, req Request, fetch FetchFunc[D], hooks Hooks[D, R]) (R, error) {
	path, err := c.CachePath(req.FileName, req.ManifestKey, req.Args...)
	if err != nil {
		var zero R
		return zero, fmt.Errorf("failed to resolve cache path: %w", err)
	}
	return Execute(ctx, c.engine, Query{Path: path, Strategy: req.Strategy}, fetch, hooks)
}

// ManifestTable exposes the manifest's path specifications as a table, handy
// for inspection and logging.
func (c *Cache) ManifestTable() *tabular.Table {
	t := &tabular.Table{Columns: []string{"key", "type", "spec", "parent_key"}}
	if c.manifest == nil {
		return t
	}
	for _, e := range c.manifest.Entries() {
		var parent any
		if e.Parent != "" {
			parent = e.Parent
		}
		t.Rows = append(t.Rows, []any{e.Key, e.Type, e.Spec, parent})
	}
	return t
}
