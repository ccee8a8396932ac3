package task

import "math"

// Parameters arrive as decoded JSON, so numbers are float64. The helpers
// below also accept int so hand-built parameter maps in code behave the
// same as maps that crossed the wire.

// numberParam extracts a numeric parameter.
func numberParam(params map[string]any, name string) (float64, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// intParam extracts an integer-valued parameter. A float64 with a
// fractional part is not an integer.
func intParam(params map[string]any, name string) (int, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// stringParam extracts a string parameter.
func stringParam(params map[string]any, name string) (string, bool) {
	v, ok := params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
