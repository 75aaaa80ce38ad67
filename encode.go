package classconf

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"
)

// encodeRecord converts one record instance into an ordered mapping node.
// Fields appear in declaration order; for each field the variant resolved in
// the plan applies: custom serializer, nested record recursion, or plain
// value normalization. Default values are not special-cased here.
func (s *schema) encodeRecord(spec *Spec, val reflect.Value) (*Map, error) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil, fmt.Errorf("%w: nil %s instance", ErrSpec, spec.typ)
		}
		val = val.Elem()
	}
	if val.Type() != spec.typ {
		return nil, fmt.Errorf("%w: %s instance expected, got %s", ErrSpec, spec.typ, val.Type())
	}

	plan := s.plan(spec.typ)
	out := NewMap()
	for _, f := range plan.fields {
		fv := val.Field(f.index)

		switch {
		case f.serialize != nil:
			raw, err := f.serialize(fv.Interface())
			if err != nil {
				return nil, fmt.Errorf("serialize field %q of %s: %w", f.name, spec.typ, err)
			}
			norm, err := encodeValue(reflect.ValueOf(raw))
			if err != nil {
				return nil, fmt.Errorf("serialize field %q of %s: %w", f.name, spec.typ, err)
			}
			out.Set(f.key, norm)

		case f.encodeNested != nil:
			if fv.Kind() == reflect.Pointer && fv.IsNil() {
				out.Set(f.key, nil)
				continue
			}
			nested, err := s.encodeRecord(f.encodeNested, fv)
			if err != nil {
				return nil, err
			}
			out.Set(f.key, nested)

		default:
			v, err := encodeValue(fv)
			if err != nil {
				return nil, fmt.Errorf("encode field %q of %s: %w", f.name, spec.typ, err)
			}
			out.Set(f.key, v)
		}
	}

	return out, nil
}

// defaultDocument composes the document written for a missing config file:
// every registered spec's default instance encoded into its place, top-level
// fields on the root, sections as sibling tables.
func (s *schema) defaultDocument() (*Map, error) {
	root := NewMap()
	for _, spec := range s.ordered() {
		node, err := s.encodeRecord(spec, spec.defaultValue())
		if err != nil {
			return nil, err
		}
		if spec.topLevel {
			root.Merge(node)
		} else {
			root.Set(spec.name, node)
		}
	}
	return root, nil
}

// encodeValue normalizes a Go value into a document value. Structs without a
// spec become plain mapping nodes keyed by tag or field name; a handful of
// common types get a string form that the decode hooks reverse.
func encodeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch concrete := v.Interface().(type) {
	case *Map:
		return concrete, nil
	case time.Duration:
		return concrete.String(), nil
	case time.Time:
		return concrete.Format(time.RFC3339), nil
	case net.IP:
		return concrete.String(), nil
	case url.URL:
		return concrete.String(), nil
	case *url.URL:
		if concrete == nil {
			return nil, nil
		}
		return concrete.String(), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return encodeValue(v.Elem())

	case reflect.Struct:
		return encodePlainStruct(v)

	case reflect.Map:
		return encodePlainMap(v)

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := encodeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil

	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return nil, fmt.Errorf("%w: cannot represent %s in a config document", ErrTypeCoercion, v.Type())

	default:
		return v.Interface(), nil
	}
}

// encodePlainStruct walks a struct that has no spec, keying entries by the
// classconf tag when present, otherwise the field name.
func encodePlainStruct(v reflect.Value) (*Map, error) {
	t := v.Type()
	out := NewMap()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("classconf")
		if tag == "-" {
			continue
		}
		key := field.Name
		if tag != "" {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
			}
		}
		fv, err := encodeValue(v.Field(i))
		if err != nil {
			return nil, err
		}
		out.Set(key, fv)
	}
	return out, nil
}

// encodePlainMap converts a Go map into a mapping node with sorted keys,
// since Go maps carry no order of their own.
func encodePlainMap(v reflect.Value) (*Map, error) {
	if v.IsNil() {
		return nil, nil
	}
	keys := make([]string, 0, v.Len())
	byKey := make(map[string]reflect.Value, v.Len())
	for _, mk := range v.MapKeys() {
		k := fmt.Sprintf("%v", mk.Interface())
		keys = append(keys, k)
		byKey[k] = v.MapIndex(mk)
	}
	sort.Strings(keys)

	out := NewMap()
	for _, k := range keys {
		ev, err := encodeValue(byKey[k])
		if err != nil {
			return nil, err
		}
		out.Set(k, ev)
	}
	return out, nil
}
