package types

import (
	"fmt"
	"sort"
)

// Condition is an equality (or, for array payload values, membership) test
type Condition struct {
	Key   string
	Value any
}

// Filter is a conjunction of conditions over payload keys
type Filter struct {
	Must []Condition
}

// FilterFromMetadata builds a filter from a flat metadata map.
// Scalars become one condition each; every element of an array value
// becomes its own condition. Unsupported values are ignored.
// Returns nil when no condition could be built.
func FilterFromMetadata(meta map[string]any) *Filter {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &Filter{}
	for _, key := range keys {
		switch v := meta[key].(type) {
		case []string:
			for _, item := range v {
				f.Must = append(f.Must, Condition{Key: key, Value: item})
			}
		case []any:
			for _, item := range v {
				if isScalar(item) {
					f.Must = append(f.Must, Condition{Key: key, Value: item})
				}
			}
		default:
			if isScalar(v) {
				f.Must = append(f.Must, Condition{Key: key, Value: v})
			}
		}
	}

	if len(f.Must) == 0 {
		return nil
	}
	return f
}

// IsEmpty reports whether the filter has no conditions
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Must) == 0
}

// Matches evaluates the filter against a payload
func (f *Filter) Matches(payload map[string]any) bool {
	if f.IsEmpty() {
		return true
	}
	for _, cond := range f.Must {
		if !valueMatches(payload[cond.Key], cond.Value) {
			return false
		}
	}
	return true
}

// valueMatches reports whether a payload value equals want, or contains it
// when the payload value is an array
func valueMatches(got, want any) bool {
	switch g := got.(type) {
	case nil:
		return false
	case []string:
		for _, item := range g {
			if scalarEqual(item, want) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range g {
			if scalarEqual(item, want) {
				return true
			}
		}
		return false
	default:
		return scalarEqual(g, want)
	}
}

func scalarEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}
