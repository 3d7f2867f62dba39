package entity

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/Koyo-os/survey-service/pkg/codec"
)

// Fields is the type-specific configuration bag of a question. Its shape is
// owned by the question type registry. Values are kept in JSON-normal form
// (string, bool, float64, nil, []any, map[string]any).
type Fields map[string]any

// ErrNonFinite is returned by Normalize for NaN and infinite numbers, which
// have no JSON representation.
var ErrNonFinite = errors.New("number must be finite")

// Clone returns a deep copy of the bag. A nil bag clones to an empty one.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the keys of the bag in no particular order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Fields:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Normalize converts a Go value supplied by a caller into the JSON-normal
// representation stored in Fields, so that values set in code compare equal
// to values decoded from storage.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case float64:
		return finite(val)
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case float32:
		return finite(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return finite(f)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case Fields:
		return Normalize(map[string]any(val))
	}

	// anything else goes through the JSON encoder once
	raw, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := codec.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrNonFinite
	}
	return f, nil
}

// IsFinite reports whether every number inside v is finite.
func IsFinite(v any) bool {
	switch val := v.(type) {
	case float64:
		return !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		return IsFinite(float64(val))
	case []any:
		for _, item := range val {
			if !IsFinite(item) {
				return false
			}
		}
	case map[string]any:
		for _, item := range val {
			if !IsFinite(item) {
				return false
			}
		}
	case Fields:
		return IsFinite(map[string]any(val))
	}
	return true
}

// IsWholeNumber reports whether v is a float64 without a fractional part.
func IsWholeNumber(v any) bool {
	f, ok := v.(float64)
	return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
}
