package decode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fields is one decoded JSON object.
type Fields map[string]any

// String returns the first non-blank string value among keys, trimmed.
func (f Fields) String(keys ...string) string {
	for _, key := range keys {
		if s, ok := f[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// RequiredString returns the trimmed string at key or an error when it is missing,
// blank or not a string.
func (f Fields) RequiredString(key string) (string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return s, nil
}

// Float returns the number at key. Numeric strings are accepted.
func (f Fields) Float(key string) (float64, bool) {
	switch val := f[key].(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return val, true
	case int:
		return float64(val), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

var priorityWords = map[string]int{
	"high":   1,
	"medium": 2,
	"low":    3,
}

// Priority returns the integer priority at key. It accepts an integer, a float with
// no fractional part, a numeric string, or high/medium/low.
func (f Fields) Priority(key string) (int, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}

	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.Abs(val) > math.MaxInt32 {
			return 0, fmt.Errorf("field %q is %v, want integer", key, val)
		}
		return int(val), nil
	case int:
		return val, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if p, ok := priorityWords[s]; ok {
			return p, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("field %q is %q, want integer", key, val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want integer", key, v)
	}
}

// Strings returns the string elements of the array at key, trimmed, skipping blanks.
// A lone string is treated as a one-element array.
func (f Fields) Strings(key string) []string {
	if s := f.String(key); s != "" {
		return []string{s}
	}
	arr, ok := f[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Bool reports the boolean at key and whether it was present as a boolean.
func (f Fields) Bool(key string) (bool, bool) {
	b, ok := f[key].(bool)
	return b, ok
}
