package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// EncodeCSV serializes a table as CSV with a header row. Nil cells become
// empty fields.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		fields := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) && row[i] != nil {
				fields[i] = formatCell(row[i])
			}
		}
		if err := w.Write(fields); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses CSV produced by EncodeCSV back into a table. Cell values
// are inferred: booleans and numbers come back typed (numbers as float64, the
// same representation the JSON codec decodes to), empty fields become nil and
// everything else stays a string.
func DecodeCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	t := &Table{Columns: rows[0]}
	for _, fields := range rows[1:] {
		row := make([]any, len(fields))
		for i, field := range fields {
			row[i] = inferCell(field)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func formatCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func inferCell(field string) any {
	if field == "" {
		return nil
	}
	if b, err := strconv.ParseBool(field); err == nil && (field == "true" || field == "false") {
		return b
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}
	return field
}
