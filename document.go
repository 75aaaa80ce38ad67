package classconf

import (
	"fmt"
	"sort"
)

// Map is the mapping node of the generic config document tree. It preserves
// key insertion order, which is what gives generated files a stable,
// declaration-ordered layout. Values are scalars (string, bool, int64,
// float64, nil), sequences ([]any), or nested *Map nodes.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty mapping node.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set inserts or replaces the value for key. A replaced key keeps its
// original position.
func (m *Map) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Merge copies every entry of other into m, preserving other's key order.
func (m *Map) Merge(other *Map) {
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// toNative converts a document value into plain Go containers
// (map[string]any, []any, scalars) for encoders that do not understand *Map.
// Key order is lost; callers that care about order must not round-trip
// through this form.
func toNative(v any) any {
	switch val := v.(type) {
	case *Map:
		out := make(map[string]any, val.Len())
		for _, k := range val.keys {
			out[k] = toNative(val.values[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = toNative(e)
		}
		return out
	default:
		return v
	}
}

// fromNative converts plain Go containers into document values. Map keys are
// sorted for determinism since native maps carry no order.
func fromNative(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			out.Set(k, fromNative(val[k]))
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromNative(e)
		}
		return out
	default:
		return v
	}
}

// asMap asserts that a document value is a mapping node.
func asMap(v any, what string) (*Map, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s is null, expected a table", ErrParse, what)
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, expected a table", ErrParse, what, v)
	}
	return m, nil
}
