// Package querycache wraps expensive fetch operations with path-keyed,
// strategy-selected caching. The engine decides per invocation whether to
// run the fetch, persist its result, reload it from storage and post-process
// it; hook bundles supply the persistence and shaping functions; the Cache
// facade resolves manifest keys to paths.
//
// The engine is synchronous and provides no locking: callers must serialize
// concurrent cache population for a given path. A lazy strategy's existence
// check and the subsequent read are two separate operations, so another
// process creating or removing the artifact in between is a known race.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultPath is used when a query supplies no target path. External callers
// are expected to supply a meaningful path; the default exists to keep
// incidental invocations from failing.
const DefaultPath = "data.csv"

var (
	// ErrNoData is returned when no step of the resolved strategy produced a
	// retained value: a file strategy without a reader, or a create strategy
	// with neither writer nor reader. Side-effect-only fetches hit this by
	// construction and may treat it as success.
	ErrNoData = errors.New("no data produced")
	// ErrResultType is returned when no post hook is configured and the data
	// type does not convert to the declared result type.
	ErrResultType = errors.New("data does not convert to the result type")
)

// Engine executes cached queries. It holds no per-query state; one engine
// serves any number of invocations.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a query engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "QueryEngine").Logger(),
	}
}

// Query names the target of one cached invocation.
type Query struct {
	// Path is where the cached artifact lives. Empty defaults to DefaultPath.
	Path string
	// Strategy selects the caching behavior. The zero value is pass-through.
	Strategy Strategy
}

// Execute runs one cached query: it normalizes the strategy, then applies
// the fetch/write/read/post steps the strategy calls for.
//
// The step order is fixed: an eventual pre/write follows the fetch, a
// configured reader then overrides whatever value earlier steps produced,
// and a configured post runs exactly once on the final data regardless of
// which branch produced it. Errors from the fetch, the hooks and the
// filesystem propagate to the caller unmodified in meaning; there is no
// retry and no partial-write cleanup.
//
// Execute is a free function rather than a method because Go methods cannot
// introduce type parameters.
func Execute[D, R any](ctx context.Context, e *Engine, q Query, fetch FetchFunc[D], hooks Hooks[D, R]) (R, error) {
	var zero R

	path := q.Path
	if path == "" {
		path = DefaultPath
	}

	strategy, err := normalize(ctx, q.Strategy, path, hooks.Exists)
	if err != nil {
		return zero, err
	}
	logger := e.logger.With().Str("path", path).Str("strategy", string(strategy)).Logger()

	var data D
	haveData := false

	switch strategy {
	case StrategyPassThrough:
		if data, err = fetch(ctx); err != nil {
			return zero, fmt.Errorf("fetch failed: %w", err)
		}
		haveData = true

	case StrategyCreate:
		if hooks.Writer == nil {
			// The fetch still runs for its side effects; its result is not
			// retained at this step.
			logger.Debug().Msg("No writer configured. Fetching without persisting.")
			if _, err = fetch(ctx); err != nil {
				return zero, fmt.Errorf("fetch failed: %w", err)
			}
			break
		}
		if data, err = fetch(ctx); err != nil {
			return zero, fmt.Errorf("fetch failed: %w", err)
		}
		if err = ensureDir(ctx, path, hooks.EnsureDir); err != nil {
			return zero, err
		}
		if hooks.Pre != nil {
			if data, err = hooks.Pre(data); err != nil {
				return zero, fmt.Errorf("pre hook failed: %w", err)
			}
		}
		if err = hooks.Writer(ctx, path, data); err != nil {
			return zero, fmt.Errorf("writer failed for %s: %w", path, err)
		}
		logger.Debug().Msg("Fetched and persisted data.")
		haveData = true

	case StrategyFile:
		// Nothing to do here: the reader below supplies the data.
	}

	if hooks.Reader != nil {
		if data, err = hooks.Reader(ctx, path); err != nil {
			return zero, fmt.Errorf("reader failed for %s: %w", path, err)
		}
		haveData = true
	}

	if !haveData {
		return zero, fmt.Errorf("%w: strategy %s at %s retained no value", ErrNoData, strategy, path)
	}

	if hooks.Post != nil {
		result, postErr := hooks.Post(data)
		if postErr != nil {
			return zero, fmt.Errorf("post hook failed: %w", postErr)
		}
		return result, nil
	}
	if result, ok := any(data).(R); ok {
		return result, nil
	}
	return zero, fmt.Errorf("%w: have %T and no post hook", ErrResultType, data)
}

// normalize resolves the caller-facing strategy to one of the three concrete
// behaviors. Lazy resolution happens here, once, before any other step.
func normalize(ctx context.Context, s Strategy, path string, exists func(ctx context.Context, path string) (bool, error)) (Strategy, error) {
	switch s {
	case "", StrategyPassThrough:
		return StrategyPassThrough, nil
	case StrategyCreate, StrategyFile:
		return s, nil
	case StrategyLazy:
		present, err := pathExists(ctx, path, exists)
		if err != nil {
			return "", fmt.Errorf("lazy resolution failed for %s: %w", path, err)
		}
		if present {
			return StrategyFile, nil
		}
		return StrategyCreate, nil
	default:
		return "", fmt.Errorf("unknown query strategy %q", s)
	}
}

func pathExists(ctx context.Context, path string, exists func(ctx context.Context, path string) (bool, error)) (bool, error) {
	if exists != nil {
		return exists(ctx, path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func ensureDir(ctx context.Context, path string, hook func(ctx context.Context, path string) error) error {
	if hook != nil {
		if err := hook(ctx, path); err != nil {
			return fmt.Errorf("failed to prepare location for %s: %w", path, err)
		}
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
