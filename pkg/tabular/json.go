package tabular

import (
	"fmt"

	"github.com/goccy/go-json"
)

// EncodeJSONRecords serializes a record list as a JSON array, the storage
// form used by the JSON-backed cache presets.
func EncodeJSONRecords(records []Record) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	return data, nil
}

// DecodeJSONRecords parses a JSON array of objects. Numeric cells decode as
// float64, matching the CSV codec's inference.
func DecodeJSONRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	return records, nil
}
