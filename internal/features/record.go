// Package features defines the fixed transaction schema consumed by the
// fraud classifier. A transaction is 30 named numeric fields: a time offset,
// 28 anonymized latent features (V1..V28) and a monetary amount. The field
// ordering here is canonical and must match the ordering the classifier
// was trained against.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FieldCount is the number of fields in the transaction schema.
const FieldCount = 30

// FieldNames lists every recognized field in canonical order.
var FieldNames = [FieldCount]string{
	"Time",
	"V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8", "V9", "V10",
	"V11", "V12", "V13", "V14", "V15", "V16", "V17", "V18", "V19", "V20",
	"V21", "V22", "V23", "V24", "V25", "V26", "V27", "V28",
	"Amount",
}

var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	idx := make(map[string]int, FieldCount)
	for i, name := range FieldNames {
		idx[name] = i
	}
	return idx
}

// FieldError reports a field that could not be accepted into a Record.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Record is one transaction in canonical field order. Absent fields are
// zero. A Record is immutable once constructed.
type Record struct {
	vec [FieldCount]float64
}

// FromMap builds a Record from a key/value mapping covering any subset of
// the recognized fields. Missing fields default to 0.0. A field carrying a
// non-numeric value fails with a FieldError. Unknown fields are ignored
// unless strict is set, in which case they also fail with a FieldError.
func FromMap(input map[string]any, strict bool) (Record, error) {
	var r Record
	for key, val := range input {
		i, ok := fieldIndex[key]
		if !ok {
			if strict {
				return Record{}, &FieldError{Field: key, Reason: "unknown field"}
			}
			continue
		}
		f, err := toFloat(val)
		if err != nil {
			return Record{}, &FieldError{Field: key, Reason: err.Error()}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Record{}, &FieldError{Field: key, Reason: "value is not finite"}
		}
		r.vec[i] = f
	}
	return r, nil
}

// Vector returns the record as a fixed-order feature vector. The returned
// slice is a copy; mutating it does not affect the Record.
func (r Record) Vector() []float64 {
	out := make([]float64, FieldCount)
	copy(out, r.vec[:])
	return out
}

// Amount returns the monetary amount of the transaction.
func (r Record) Amount() float64 {
	return r.vec[FieldCount-1]
}

// Time returns the time-offset field of the transaction.
func (r Record) Time() float64 {
	return r.vec[0]
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", x.String())
		}
		return f, nil
	case string:
		// Strings are rejected even when they parse as numbers; the wire
		// contract is numeric fields only.
		if _, err := strconv.ParseFloat(x, 64); err == nil {
			return 0, fmt.Errorf("value %q must be a number, not a string", x)
		}
		return 0, fmt.Errorf("value %q is not numeric", x)
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
