package tabular

import "sort"

// Record is a single row keyed by column name. It is the shape most remote
// query APIs return and the shape the JSON codec works with.
type Record = map[string]any

// Table is a lightweight column-ordered table. It exists so that CSV-backed
// caches have a stable column order to write and so callers can reshape
// record lists without pulling in a dataframe dependency.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Rename maps an old column name to a new one.
type Rename struct {
	New string
	Old string
}

// FromRecords builds a Table from a list of records. Column order follows
// first appearance while scanning the records; rows for records missing a
// column hold nil in that cell.
func FromRecords(records []Record) *Table {
	t := &Table{}
	seen := make(map[string]int)
	for _, rec := range records {
		for _, col := range sortedKeys(rec) {
			if _, ok := seen[col]; !ok {
				seen[col] = len(t.Columns)
				t.Columns = append(t.Columns, col)
			}
		}
	}
	for _, rec := range records {
		row := make([]any, len(t.Columns))
		for col, idx := range seen {
			if v, ok := rec[col]; ok {
				row[idx] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Records converts the table back to a list of records. Nil cells are
// omitted so a FromRecords round-trip reproduces the input records.
func (t *Table) Records() []Record {
	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) && row[i] != nil {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the values of one column and whether the column exists.
func (t *Table) Column(name string) ([]any, bool) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, nil)
		}
	}
	return values, true
}

// RenameColumns renames columns in place. Renames whose old name is not
// present are ignored, matching the permissive behavior callers expect when
// reshaping third-party query results.
func (t *Table) RenameColumns(renames ...Rename) {
	for _, r := range renames {
		if idx := t.columnIndex(r.Old); idx >= 0 {
			t.Columns[idx] = r.New
		}
	}
}

// SetIndex moves the named column to position zero so it leads the persisted
// form. Returns false if the column does not exist.
func (t *Table) SetIndex(name string) bool {
	idx := t.columnIndex(name)
	if idx < 0 {
		return false
	}
	if idx == 0 {
		return true
	}
	t.Columns = moveToFront(t.Columns, idx)
	for i, row := range t.Rows {
		if idx < len(row) {
			t.Rows[i] = moveToFront(row, idx)
		}
	}
	return true
}

func (t *Table) columnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// sortedKeys keeps column discovery deterministic; Go map iteration order
// would otherwise vary run to run.
func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func moveToFront[T any](s []T, idx int) []T {
	v := s[idx]
	out := make([]T, 0, len(s))
	out = append(out, v)
	out = append(out, s[:idx]...)
	return append(out, s[idx+1:]...)
}
