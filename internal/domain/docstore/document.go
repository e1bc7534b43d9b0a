package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Document is a committed snapshot of one stored document
type Document struct {
	Path       Path
	Data       map[string]any
	Version    int64
	CreateTime time.Time
	UpdateTime time.Time
}

// ID returns the document id (last path segment)
func (d *Document) ID() string { return d.Path.ID() }

// Field returns a top-level field value
func (d *Document) Field(name string) (any, bool) {
	if d == nil || d.Data == nil {
		return nil, false
	}
	v, ok := d.Data[name]
	return v, ok
}

// DataTo decodes the document into v (a pointer to a struct with json tags)
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.Path, err)
	}
	return nil
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Data = cloneMap(d.Data)
	return &cp
}

// Encode converts an entity (or a map) into the normalized document representation.
// Numbers are kept as json.Number so decimal values survive without float rounding.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document data: %w", err)
	}
	return DecodeJSON(raw)
}

// DecodeJSON parses stored JSON into the normalized document representation
func DecodeJSON(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document data: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("decode document data: document must be a JSON object")
	}
	return out, nil
}

// normalizeValue converts an arbitrary Go value to the representation used inside documents
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, json.Number:
		return x, nil
	case decimal.Decimal:
		return json.Number(x.String()), nil
	case int:
		return json.Number(fmt.Sprint(x)), nil
	case int64:
		return json.Number(fmt.Sprint(x)), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return x
	}
}
