package classconf

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// decodeRecord rehydrates one record instance from a mapping node into out,
// an addressable zero value of the spec's type. Every declared field must be
// present under its external key; unknown keys in the node are ignored.
// Custom-deserialized and nested values are assigned directly, everything
// else goes through a single weakly-typed mapstructure pass.
func (s *schema) decodeRecord(spec *Spec, node *Map, reg *Registry, out reflect.Value) error {
	plan := s.plan(spec.typ)
	plain := make(map[string]any, len(plan.fields))

	type direct struct {
		field fieldPlan
		value any
	}
	var directs []direct

	for _, f := range plan.fields {
		raw, ok := node.Get(f.key)
		if !ok {
			return fmt.Errorf("%w: %q in section %q (%s)", ErrMissingKey, f.key, spec.name, spec.typ)
		}

		switch {
		case f.deserialize != nil:
			v, err := f.deserialize(raw)
			if err != nil {
				return fmt.Errorf("deserialize field %q of %s: %w", f.name, spec.typ, err)
			}
			directs = append(directs, direct{f, v})

		case f.registryDeser != nil:
			v, err := f.registryDeser(raw, reg)
			if err != nil {
				return fmt.Errorf("deserialize field %q of %s: %w", f.name, spec.typ, err)
			}
			directs = append(directs, direct{f, v})

		case f.decodeNested != nil:
			if raw == nil {
				// Explicit null leaves the field at its zero value.
				continue
			}
			sub, err := asMap(raw, fmt.Sprintf("key %q in section %q", f.key, spec.name))
			if err != nil {
				return err
			}
			nested := reflect.New(f.decodeNested.typ)
			if err := s.decodeRecord(f.decodeNested, sub, reg, nested.Elem()); err != nil {
				return err
			}
			if f.typ.Kind() == reflect.Pointer {
				directs = append(directs, direct{f, nested.Interface()})
			} else {
				directs = append(directs, direct{f, nested.Elem().Interface()})
			}

		default:
			plain[f.mapKey] = toNative(raw)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Addr().Interface(),
		TagName:          "classconf",
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(plain); err != nil {
		return fmt.Errorf("%w: section %q (%s): %w", ErrTypeCoercion, spec.name, spec.typ, err)
	}

	for _, d := range directs {
		if err := setField(out, d.field, d.value); err != nil {
			return fmt.Errorf("%w: field %q of %s: %w", ErrTypeCoercion, d.field.name, spec.typ, err)
		}
	}

	return nil
}

// setField assigns a produced value to a struct field, allowing exact
// assignment and lossless conversion.
func setField(out reflect.Value, f fieldPlan, value any) error {
	target := out.Field(f.index)
	if value == nil {
		target.SetZero()
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	case v.Kind() == reflect.Pointer && v.Elem().Type().AssignableTo(target.Type()):
		target.Set(v.Elem())
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}

// decodeHook composes the string-to-type conversions applied during the
// mapstructure pass.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToNetIPHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
