package value

import (
	"encoding/json"
	"reflect"
	"strings"
)

// NormalizeString returns a Func yielding the lowercased params[key].
// Missing or non-string values resolve to nil.
func NormalizeString(key string) Func {
	return func(params map[string]any) any {
		s, ok := params[key].(string)
		if !ok {
			return nil
		}
		return strings.ToLower(s)
	}
}

// Equal compares two resolved values. Numbers compare by value across
// numeric types, so a pivot decoded from JSON as float64 equals an int
// declared in an ordering.
func Equal(left, right any) bool {
	if lf, ok := asFloat64(left); ok {
		if rf, ok := asFloat64(right); ok {
			return lf == rf
		}
		return false
	}
	return reflect.DeepEqual(left, right)
}

// IndexOf returns the index of v in order using Equal, or -1.
func IndexOf(order []any, v any) int {
	for i, item := range order {
		if Equal(item, v) {
			return i
		}
	}
	return -1
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
