package querycache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-querycache/pkg/querycache"
	"github.com/illmade-knight/go-querycache/pkg/tabular"
)

// testFetcher is a fetch double that counts invocations, standing in for an
// expensive remote query.
type testFetcher struct {
	callCount atomic.Int32
	records   []tabular.Record
	err       error
}

func newTestFetcher() *testFetcher {
	return &testFetcher{
		records: []tabular.Record{
			{"id": float64(997), "acronym": "root"},
			{"id": float64(8), "acronym": "grey"},
		},
	}
}

func (f *testFetcher) Fetch(_ context.Context) ([]tabular.Record, error) {
	f.callCount.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// jsonFileHooks is a plain hand-assembled bundle persisting records as JSON
// directly on the local filesystem, used to observe engine behavior without
// the preset layer.
func jsonFileHooks() querycache.Hooks[[]tabular.Record, []tabular.Record] {
	return querycache.Hooks[[]tabular.Record, []tabular.Record]{
		Reader: func(_ context.Context, path string) ([]tabular.Record, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return tabular.DecodeJSONRecords(data)
		},
		Writer: func(_ context.Context, path string, records []tabular.Record) error {
			data, err := tabular.EncodeJSONRecords(records)
			if err != nil {
				return err
			}
			return os.WriteFile(path, data, 0o644)
		},
	}
}

func newEngine() *querycache.Engine {
	return querycache.NewEngine(zerolog.Nop())
}

func TestExecute_PassThrough(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()

	t.Run("zero strategy with no hooks returns the fetch result untouched", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		result, err := querycache.Execute(ctx, engine, querycache.Query{Path: path},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, []tabular.Record]{})

		require.NoError(t, err)
		assert.Equal(t, fetcher.records, result)
		assert.Equal(t, int32(1), fetcher.callCount.Load())

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "pass-through must not write to disk")
	})

	t.Run("post still applies", func(t *testing.T) {
		fetcher := newTestFetcher()

		result, err := querycache.Execute(ctx, engine, querycache.Query{},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, int]{
				Post: func(records []tabular.Record) (int, error) {
					return len(records), nil
				},
			})

		require.NoError(t, err)
		assert.Equal(t, 2, result)
	})

	t.Run("a configured reader wins over the fetch result", func(t *testing.T) {
		// Undefined in principle; the documented behavior is that the reader
		// overrides whatever the fetch produced.
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")
		stored := []tabular.Record{{"id": float64(1)}}
		data, err := tabular.EncodeJSONRecords(stored)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		result, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyPassThrough},
			fetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		assert.Equal(t, stored, result)
		assert.Equal(t, int32(1), fetcher.callCount.Load(), "the fetch still runs under pass-through")
	})
}

func TestExecute_Create(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()

	t.Run("fetches, persists and returns", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		result, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyCreate},
			fetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		assert.Equal(t, fetcher.records, result)
		assert.Equal(t, int32(1), fetcher.callCount.Load())

		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "the artifact should exist after a create")
	})

	t.Run("creates missing parent directories before writing", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "experiment1", "nested", "data.json")

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyCreate},
			fetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Run("pre transforms the data before the writer sees it", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		hooks := jsonFileHooks()
		hooks.Pre = func(records []tabular.Record) ([]tabular.Record, error) {
			return records[:1], nil
		}

		result, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyCreate},
			fetcher.Fetch, hooks)

		require.NoError(t, err)
		assert.Equal(t, fetcher.records[:1], result, "the reader reloads the filtered data")

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		persisted, decodeErr := tabular.DecodeJSONRecords(data)
		require.NoError(t, decodeErr)
		assert.Len(t, persisted, 1)
	})

	t.Run("without a writer the fetch still runs for side effects", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyCreate},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, []tabular.Record]{})

		require.Error(t, err)
		assert.ErrorIs(t, err, querycache.ErrNoData, "no step retained a value")
		assert.Equal(t, int32(1), fetcher.callCount.Load())

		_, statErr := os.Stat(filepath.Dir(path))
		assert.NoError(t, statErr, "the temp dir itself exists")
		_, statErr = os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "nothing was written")
	})
}

func TestExecute_File(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()

	t.Run("never invokes the fetch", func(t *testing.T) {
		writeFetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		// Populate via create first.
		created, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyCreate},
			writeFetcher.Fetch, jsonFileHooks())
		require.NoError(t, err)

		readFetcher := newTestFetcher()
		loaded, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyFile},
			readFetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		assert.Equal(t, created, loaded, "create then file must round-trip")
		assert.Equal(t, int32(0), readFetcher.callCount.Load(), "file strategy must not fetch")
	})

	t.Run("file with no reader is a caller configuration error", func(t *testing.T) {
		fetcher := newTestFetcher()

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: filepath.Join(t.TempDir(), "data.json"), Strategy: querycache.StrategyFile},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, []tabular.Record]{})

		require.Error(t, err)
		assert.ErrorIs(t, err, querycache.ErrNoData)
		assert.Equal(t, int32(0), fetcher.callCount.Load())
	})
}

func TestExecute_LazyResolution(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()

	t.Run("absent path behaves as create", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")

		result, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyLazy},
			fetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		assert.Equal(t, fetcher.records, result)
		assert.Equal(t, int32(1), fetcher.callCount.Load())

		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Run("present path behaves as file", func(t *testing.T) {
		fetcher := newTestFetcher()
		path := filepath.Join(t.TempDir(), "data.json")
		stored := []tabular.Record{{"id": float64(42)}}
		data, err := tabular.EncodeJSONRecords(stored)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		result, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyLazy},
			fetcher.Fetch, jsonFileHooks())

		require.NoError(t, err)
		assert.Equal(t, stored, result)
		assert.Equal(t, int32(0), fetcher.callCount.Load(), "an existing artifact suppresses the fetch")
	})

	t.Run("a custom exists hook drives the decision", func(t *testing.T) {
		fetcher := newTestFetcher()
		existsCalls := 0

		hooks := jsonFileHooks()
		hooks.Exists = func(_ context.Context, _ string) (bool, error) {
			existsCalls++
			return false, nil
		}

		path := filepath.Join(t.TempDir(), "data.json")
		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: path, Strategy: querycache.StrategyLazy},
			fetcher.Fetch, hooks)

		require.NoError(t, err)
		assert.Equal(t, 1, existsCalls, "the existence check happens exactly once")
		assert.Equal(t, int32(1), fetcher.callCount.Load(), "reported absence resolves to create")
	})

	t.Run("exists hook errors abort before any fetch", func(t *testing.T) {
		fetcher := newTestFetcher()
		hooks := jsonFileHooks()
		hooks.Exists = func(_ context.Context, _ string) (bool, error) {
			return false, errors.New("backend unreachable")
		}

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: "data.json", Strategy: querycache.StrategyLazy},
			fetcher.Fetch, hooks)

		require.Error(t, err)
		assert.Equal(t, int32(0), fetcher.callCount.Load())
	})
}

func TestExecute_Failures(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()

	t.Run("unknown strategy", func(t *testing.T) {
		fetcher := newTestFetcher()
		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Strategy: "bogus"},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, []tabular.Record]{})
		assert.Error(t, err)
		assert.Equal(t, int32(0), fetcher.callCount.Load())
	})

	t.Run("fetch errors propagate", func(t *testing.T) {
		fetcher := newTestFetcher()
		fetcher.err = errors.New("server unavailable")

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: filepath.Join(t.TempDir(), "data.json"), Strategy: querycache.StrategyCreate},
			fetcher.Fetch, jsonFileHooks())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "server unavailable")
	})

	t.Run("writer errors propagate and nothing is read back", func(t *testing.T) {
		fetcher := newTestFetcher()
		hooks := jsonFileHooks()
		readerCalled := false
		hooks.Writer = func(_ context.Context, _ string, _ []tabular.Record) error {
			return errors.New("disk full")
		}
		wrappedReader := hooks.Reader
		hooks.Reader = func(ctx context.Context, path string) ([]tabular.Record, error) {
			readerCalled = true
			return wrappedReader(ctx, path)
		}

		_, err := querycache.Execute(ctx, engine,
			querycache.Query{Path: filepath.Join(t.TempDir(), "data.json"), Strategy: querycache.StrategyCreate},
			fetcher.Fetch, hooks)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.False(t, readerCalled)
	})

	t.Run("post errors propagate", func(t *testing.T) {
		fetcher := newTestFetcher()
		_, err := querycache.Execute(ctx, engine,
			querycache.Query{},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, int]{
				Post: func(_ []tabular.Record) (int, error) {
					return 0, errors.New("reshape failed")
				},
			})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reshape failed")
	})

	t.Run("missing post with mismatched result type", func(t *testing.T) {
		fetcher := newTestFetcher()
		_, err := querycache.Execute(ctx, engine,
			querycache.Query{},
			fetcher.Fetch, querycache.Hooks[[]tabular.Record, int]{})
		require.Error(t, err)
		assert.ErrorIs(t, err, querycache.ErrResultType)
	})
}

func TestExecute_DefaultPath(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()
	fetcher := newTestFetcher()

	// Run from a temp working directory so the default artifact lands there.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = querycache.Execute(ctx, engine,
		querycache.Query{Strategy: querycache.StrategyCreate},
		fetcher.Fetch, jsonFileHooks())

	require.NoError(t, err)
	_, statErr := os.Stat(querycache.DefaultPath)
	assert.NoError(t, statErr, "an unspecified path falls back to the default")
}
