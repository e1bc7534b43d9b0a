package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FieldUpdate is one staged change to a top-level field.
// Either Value replaces the field, or Delta is added to its current numeric value.
type FieldUpdate struct {
	Field string
	Value any
	Delta *decimal.Decimal
}

// IsIncrement reports whether the update is an atomic increment
func (u FieldUpdate) IsIncrement() bool { return u.Delta != nil }

// Value returns an update that replaces a field
func Value(field string, v any) FieldUpdate {
	return FieldUpdate{Field: field, Value: v}
}

// Increment returns an update that adds delta to a numeric field.
// The addition happens against the committed value at commit time.
func Increment(field string, delta decimal.Decimal) FieldUpdate {
	return FieldUpdate{Field: field, Delta: &delta}
}

// IncrementInt is Increment for integer counters
func IncrementInt(field string, delta int) FieldUpdate {
	return Increment(field, decimal.NewFromInt(int64(delta)))
}

// ApplyUpdates returns a copy of data with the updates applied in order
func ApplyUpdates(data map[string]any, updates []FieldUpdate) (map[string]any, error) {
	out := cloneMap(data)
	if out == nil {
		out = make(map[string]any)
	}
	for _, u := range updates {
		if u.Field == "" {
			return nil, fmt.Errorf("field update without a field name")
		}
		if u.IsIncrement() {
			current, err := NumericValue(out[u.Field])
			if err != nil {
				return nil, fmt.Errorf("increment %q: %w", u.Field, err)
			}
			out[u.Field] = json.Number(current.Add(*u.Delta).String())
			continue
		}
		v, err := normalizeValue(u.Value)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", u.Field, err)
		}
		out[u.Field] = v
	}
	return out, nil
}

// NumericValue interprets a stored field as a decimal; a missing field counts as zero
func NumericValue(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	default:
		return decimal.Zero, fmt.Errorf("value of type %T is not numeric", v)
	}
}
