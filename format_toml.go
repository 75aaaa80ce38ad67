package classconf

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLFormat reads and writes TOML config files. TOML has no null literal,
// so absent values are represented by a configurable sentinel string
// (default "null") or omitted entirely.
type TOMLFormat struct {
	nullValue string
	omitNull  bool
}

// TOMLOption configures NewTOMLFormat.
type TOMLOption func(*TOMLFormat)

// TOMLNullAs sets the sentinel string standing in for absent values. The
// sentinel converts back to null on read.
func TOMLNullAs(sentinel string) TOMLOption {
	return func(f *TOMLFormat) {
		f.nullValue = sentinel
		f.omitNull = false
	}
}

// TOMLOmitNull drops keys holding absent values instead of writing a
// sentinel.
func TOMLOmitNull() TOMLOption {
	return func(f *TOMLFormat) { f.omitNull = true }
}

// NewTOMLFormat returns a TOML format with the given null policy.
func NewTOMLFormat(opts ...TOMLOption) *TOMLFormat {
	f := &TOMLFormat{nullValue: "null"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *TOMLFormat) Ext() string { return ".toml" }

// Read parses a TOML file into a document, recovering source key order from
// the decoder metadata.
func (f *TOMLFormat) Read(path string) (*Map, error) {
	data, err := readFileOrAbsent(path)
	if err != nil || data == nil {
		return nil, err
	}

	raw := make(map[string]any)
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: TOML file '%s': %w", ErrParse, path, err)
	}

	// md.Keys() lists every key path in source order; record the child
	// order under each parent path.
	order := make(map[string][]string)
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		for depth := range key {
			parent := strings.Join(key[:depth], "\x00")
			full := strings.Join(key[:depth+1], "\x00")
			if !seen[full] {
				seen[full] = true
				order[parent] = append(order[parent], key[depth])
			}
		}
	}

	return f.tableToMap(raw, nil, order), nil
}

func (f *TOMLFormat) tableToMap(table map[string]any, prefix []string, order map[string][]string) *Map {
	keys := order[strings.Join(prefix, "\x00")]
	if len(keys) != len(table) {
		keys = make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	out := NewMap()
	for _, k := range keys {
		v, ok := table[k]
		if !ok {
			continue
		}
		out.Set(k, f.valueFromTOML(v, append(prefix, k), order))
	}
	return out
}

func (f *TOMLFormat) valueFromTOML(v any, prefix []string, order map[string][]string) any {
	switch val := v.(type) {
	case map[string]any:
		return f.tableToMap(val, prefix, order)
	case []map[string]any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = f.tableToMap(e, prefix, order)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = f.valueFromTOML(e, prefix, order)
		}
		return out
	case string:
		if !f.omitNull && val == f.nullValue {
			return nil
		}
		return val
	default:
		return v
	}
}

// Write encodes the document and writes it atomically. Key order within
// tables follows the encoder's deterministic layout.
func (f *TOMLFormat) Write(path string, doc *Map) error {
	native, _ := f.nativeForTOML(doc)
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(native); err != nil {
		return fmt.Errorf("failed to marshal config data to TOML: %w", err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

// nativeForTOML converts a document value to encoder-ready Go containers,
// applying the null policy. The second result reports whether the value
// survives (false only under TOMLOmitNull for absent values).
func (f *TOMLFormat) nativeForTOML(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		if f.omitNull {
			return nil, false
		}
		return f.nullValue, true
	case *Map:
		out := make(map[string]any, val.Len())
		for _, k := range val.Keys() {
			raw, _ := val.Get(k)
			if conv, keep := f.nativeForTOML(raw); keep {
				out[k] = conv
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(val))
		for _, e := range val {
			if conv, keep := f.nativeForTOML(e); keep {
				out = append(out, conv)
			}
		}
		return out, true
	default:
		return v, true
	}
}
