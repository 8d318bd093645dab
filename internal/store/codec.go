package store

import (
	"encoding/json"
	"fmt"
)

// Encode converts a tagged struct into document fields using its JSON names.
// The "id" key is dropped; IDs live beside the fields, never inside them.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

// Decode fills v from the document fields, exposing the document ID as "id".
func (d Document) Decode(v any) error {
	fields := make(map[string]any, len(d.Fields)+1)
	for k, val := range d.Fields {
		fields[k] = val
	}
	fields["id"] = d.ID
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}
