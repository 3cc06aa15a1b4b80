package querycache

import (
	"context"

	"github.com/illmade-knight/go-querycache/pkg/blobstore"
	"github.com/illmade-knight/go-querycache/pkg/tabular"
)

// FetchFunc produces the data being cached, typically by querying a remote
// service. It is the expensive operation the strategies decide whether to run.
type FetchFunc[D any] func(ctx context.Context) (D, error)

// Hooks is the immutable bundle of optional functions customizing how one
// cached query persists and shapes its data. Every field may be nil: a nil
// Pre or Post behaves as identity, a nil Reader or Writer means no read or
// write happens, and a nil Exists falls back to a local file check for lazy
// resolution.
//
// D is the fetched/stored data type, R the shape returned to the caller.
// When Post is nil the data must be assignable to R.
type Hooks[D, R any] struct {
	// Pre transforms the fetched data before it is written.
	Pre func(data D) (D, error)
	// Post transforms the final data into the caller-facing result. It runs
	// exactly once, after whichever step produced the data.
	Post func(data D) (R, error)
	// Reader loads data from storage. When set it overrides the value of any
	// earlier step, including a pass-through fetch; pass-through bundles
	// normally leave it nil.
	Reader func(ctx context.Context, path string) (D, error)
	// Writer persists data to storage.
	Writer func(ctx context.Context, path string, data D) error
	// Exists reports whether the artifact at path is already present. Lazy
	// strategy resolution uses it; when nil, a local filesystem stat is used.
	Exists func(ctx context.Context, path string) (bool, error)
	// EnsureDir prepares the write location on the create branch. When nil,
	// the local parent directory is created. Presets bind it to their store
	// so remote backends skip local directory creation.
	EnsureDir func(ctx context.Context, path string) error
}

// The preset constructors below cover the common storage-format and
// return-shape combinations so call sites do not assemble hooks by hand.
// Fetch functions feeding the CSV presets return *tabular.Table (use
// tabular.FromRecords to convert raw records); the JSON and pass-through
// presets work directly on record lists.

// CacheCSVRecords stores the fetched table as CSV and returns the rows as
// records.
func CacheCSVRecords(store blobstore.Store) Hooks[*tabular.Table, []tabular.Record] {
	h := storeHooks[*tabular.Table](store, tabular.EncodeCSV, tabular.DecodeCSV)
	return Hooks[*tabular.Table, []tabular.Record]{
		Reader:    h.Reader,
		Writer:    h.Writer,
		Exists:    h.Exists,
		EnsureDir: h.EnsureDir,
		Post: func(t *tabular.Table) ([]tabular.Record, error) {
			return t.Records(), nil
		},
	}
}

// CacheCSVTable stores the fetched table as CSV and returns it as a table.
func CacheCSVTable(store blobstore.Store) Hooks[*tabular.Table, *tabular.Table] {
	return storeHooks[*tabular.Table](store, tabular.EncodeCSV, tabular.DecodeCSV)
}

// CacheJSONTable stores the fetched records as JSON and returns them as a
// table.
func CacheJSONTable(store blobstore.Store) Hooks[[]tabular.Record, *tabular.Table] {
	h := storeHooks[[]tabular.Record](store, tabular.EncodeJSONRecords, tabular.DecodeJSONRecords)
	return Hooks[[]tabular.Record, *tabular.Table]{
		Reader:    h.Reader,
		Writer:    h.Writer,
		Exists:    h.Exists,
		EnsureDir: h.EnsureDir,
		Post: func(records []tabular.Record) (*tabular.Table, error) {
			return tabular.FromRecords(records), nil
		},
	}
}

// CacheJSON stores the fetched records as JSON and returns them unchanged.
func CacheJSON(store blobstore.Store) Hooks[[]tabular.Record, []tabular.Record] {
	return storeHooks[[]tabular.Record](store, tabular.EncodeJSONRecords, tabular.DecodeJSONRecords)
}

// PassthroughTable skips persistence and returns the fetched records as a
// table.
func PassthroughTable() Hooks[[]tabular.Record, *tabular.Table] {
	return Hooks[[]tabular.Record, *tabular.Table]{
		Post: func(records []tabular.Record) (*tabular.Table, error) {
			return tabular.FromRecords(records), nil
		},
	}
}

// PassthroughRecords skips persistence and returns the fetched records
// unchanged.
func PassthroughRecords() Hooks[[]tabular.Record, []tabular.Record] {
	return Hooks[[]tabular.Record, []tabular.Record]{}
}

// storeHooks binds an encode/decode pair to a store, producing the
// symmetric reader/writer both CSV and JSON presets are built from.
func storeHooks[D any](
	store blobstore.Store,
	encode func(D) ([]byte, error),
	decode func([]byte) (D, error),
) Hooks[D, D] {
	return Hooks[D, D]{
		Reader: func(ctx context.Context, path string) (D, error) {
			var zero D
			raw, err := store.Read(ctx, path)
			if err != nil {
				return zero, err
			}
			return decode(raw)
		},
		Writer: func(ctx context.Context, path string, data D) error {
			raw, err := encode(data)
			if err != nil {
				return err
			}
			return store.Write(ctx, path, raw)
		},
		Exists:    store.Exists,
		EnsureDir: store.EnsureParentDir,
	}
}
