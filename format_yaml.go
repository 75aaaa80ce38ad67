package classconf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormat reads and writes YAML config files through the yaml.Node API,
// which round-trips mapping key order exactly.
type YAMLFormat struct{}

// NewYAMLFormat returns the YAML format.
func NewYAMLFormat() *YAMLFormat { return &YAMLFormat{} }

func (f *YAMLFormat) Ext() string { return ".yaml" }

// Read parses a YAML file into a document. The root value must be a
// mapping; an empty file yields an empty document.
func (f *YAMLFormat) Read(path string) (*Map, error) {
	data, err := readFileOrAbsent(path)
	if err != nil || data == nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: YAML file '%s': %w", ErrParse, path, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMap(), nil
	}

	node := root.Content[0]
	v, err := yamlToValue(node)
	if err != nil {
		return nil, fmt.Errorf("%w: YAML file '%s': %w", ErrParse, path, err)
	}
	doc, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: YAML file '%s': root is not a mapping", ErrParse, path)
	}
	return doc, nil
}

func yamlToValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlToValue(n.Alias)

	case yaml.MappingNode:
		out := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, err
			}
			val, err := yamlToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out.Set(key, val)
		}
		return out, nil

	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlToValue(c)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		if i, ok := v.(int); ok {
			return int64(i), nil
		}
		return v, nil

	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
}

// Write builds a node tree preserving the document's key order and writes
// the rendered YAML atomically.
func (f *YAMLFormat) Write(path string, doc *Map) error {
	root, err := valueToYAML(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config data to YAML: %w", err)
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal config data to YAML: %w", err)
	}
	return atomicWriteFile(path, data)
}

func valueToYAML(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil

	case *Map:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range val.Keys() {
			keyNode := &yaml.Node{}
			if err := keyNode.Encode(k); err != nil {
				return nil, err
			}
			raw, _ := val.Get(k)
			valNode, err := valueToYAML(raw)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, keyNode, valNode)
		}
		return out, nil

	case []any:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range val {
			n, err := valueToYAML(e)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, n)
		}
		return out, nil

	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}
