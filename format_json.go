package classconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// JSONFormat reads and writes JSON config files. Objects round-trip through
// the document's ordered mapping, so generated files keep declaration order.
type JSONFormat struct{}

// NewJSONFormat returns the JSON format.
func NewJSONFormat() *JSONFormat { return &JSONFormat{} }

func (f *JSONFormat) Ext() string { return ".json" }

// Read parses a JSON file into a document. The root value must be an
// object.
func (f *JSONFormat) Read(path string) (*Map, error) {
	data, err := readFileOrAbsent(path)
	if err != nil || data == nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: JSON file '%s': %w", ErrParse, path, err)
	}
	root, err := decodeJSONValue(dec, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: JSON file '%s': %w", ErrParse, path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: JSON file '%s': trailing data", ErrParse, path)
	}

	doc, ok := root.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: JSON file '%s': root is not an object", ErrParse, path)
	}
	return doc, nil
}

// decodeJSONValue consumes one value from the token stream, building *Map
// nodes for objects to preserve key order.
func decodeJSONValue(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", keyTok)
				}
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeJSONValue(dec, valTok)
				if err != nil {
					return nil, err
				}
				out.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, err
			}
			return out, nil
		case '[':
			out := make([]any, 0)
			for dec.More() {
				elemTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				elem, err := decodeJSONValue(dec, elemTok)
				if err != nil {
					return nil, err
				}
				out = append(out, elem)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			return out, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)

	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()

	default:
		return tok, nil
	}
}

// Write marshals the document with two-space indentation and writes it
// atomically.
func (f *JSONFormat) Write(path string, doc *Map) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config data to JSON: %w", err)
	}
	return atomicWriteFile(path, append(data, '\n'))
}

// MarshalJSON emits the mapping's entries in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
