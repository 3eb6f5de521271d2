// Package source adapts the remote metric data source to pivot period blocks.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// DecodeRecords reads a fetch payload holding either a bare array of records or
// a {"result": [...]} envelope. Empty bodies, null and envelopes without a
// result decode to no records. categoryField names the field carrying the
// category label; the remaining fields become metric values.
func DecodeRecords(payload []byte, categoryField string) ([]pivot.RawRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []pivot.RawRecord{}, nil
	}

	var items []map[string]any
	switch trimmed[0] {
	case '[':
		if err := unmarshalNumbers(trimmed, &items); err != nil {
			return nil, fmt.Errorf("source: decode records: %w", err)
		}
	case '{':
		var envelope struct {
			Result []map[string]any `json:"result"`
		}
		if err := unmarshalNumbers(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("source: decode envelope: %w", err)
		}
		items = envelope.Result
	default:
		return nil, fmt.Errorf("source: unexpected payload starting with %q", trimmed[0])
	}

	records := make([]pivot.RawRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, toRecord(item, categoryField))
	}
	return records, nil
}

func toRecord(item map[string]any, categoryField string) pivot.RawRecord {
	rec := pivot.RawRecord{Fields: make(map[string]any, len(item))}
	for key, value := range item {
		if key == categoryField {
			rec.Category = labelOf(value)
			continue
		}
		rec.Fields[key] = value
	}
	return rec
}

func labelOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func unmarshalNumbers(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dest)
}
