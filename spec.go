package classconf

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// SerializeFunc converts a field value into a document value. The result may
// be a scalar, a []any sequence, or a *Map node.
type SerializeFunc func(value any) (any, error)

// DeserializeFunc converts a raw document value into a field value.
type DeserializeFunc func(raw any) (any, error)

// RegistryDeserializeFunc is a deserializer that additionally receives the
// owning registry, so a field value can select and resolve another
// registered section (e.g. a "driver" string picking the matching section).
type RegistryDeserializeFunc func(raw any, reg *Registry) (any, error)

// fieldSpec is the per-field conversion policy resolved at spec construction.
type fieldSpec struct {
	name   string // Go field name
	key    string // external document key
	mapKey string // name mapstructure resolves for the field (tag or field name)
	index  int    // struct field index
	typ    reflect.Type

	serialize     SerializeFunc
	deserialize   DeserializeFunc
	registryDeser RegistryDeserializeFunc
}

// Spec is the immutable metadata attached to one record type: its section
// name, top-level marker, and per-field policies. Build one with NewSpec and
// hand it to New or Generate; specs are plain values and may be shared
// between registries.
type Spec struct {
	typ      reflect.Type
	name     string
	topLevel bool
	fields   []fieldSpec // declared field order

	defaults    reflect.Value
	hasDefaults bool
}

// Type returns the record type the spec describes.
func (s *Spec) Type() reflect.Type { return s.typ }

// Name returns the section name used in the document root.
func (s *Spec) Name() string { return s.name }

// TopLevel reports whether the record's fields occupy the document root
// directly instead of a named section.
func (s *Spec) TopLevel() bool { return s.topLevel }

// FieldKeys returns the external key for every declared field, in field
// declaration order.
func (s *Spec) FieldKeys() map[string]string {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		out[f.name] = f.key
	}
	return out
}

// defaultValue returns the instance used when composing default documents:
// the value given via WithDefaults, or the zero value of the record type.
func (s *Spec) defaultValue() reflect.Value {
	if s.hasDefaults {
		return s.defaults
	}
	return reflect.New(s.typ).Elem()
}

type specConfig struct {
	name          string
	topLevel      bool
	keys          map[string]string
	serializers   map[string]SerializeFunc
	deserializers map[string]DeserializeFunc
	registryDeser map[string]RegistryDeserializeFunc
	defaults      any
	hasDefaults   bool
}

// SpecOption configures NewSpec.
type SpecOption func(*specConfig)

// WithName overrides the section name. The default is the snake_case form
// of the type name (e.g. DatabaseConfig becomes "database_config").
func WithName(name string) SpecOption {
	return func(c *specConfig) { c.name = name }
}

// WithTopLevel marks the record as the top-level type: its fields map onto
// the document root instead of a named section. At most one spec per
// registry or Generate call may be top-level.
func WithTopLevel() SpecOption {
	return func(c *specConfig) { c.topLevel = true }
}

// WithFieldKey maps a Go field name to a different external document key.
func WithFieldKey(field, key string) SpecOption {
	return func(c *specConfig) { c.keys[field] = key }
}

// WithFieldSerializer installs a custom serializer for a field.
func WithFieldSerializer(field string, fn SerializeFunc) SpecOption {
	return func(c *specConfig) { c.serializers[field] = fn }
}

// WithFieldDeserializer installs a custom deserializer for a field.
func WithFieldDeserializer(field string, fn DeserializeFunc) SpecOption {
	return func(c *specConfig) { c.deserializers[field] = fn }
}

// WithFieldRegistryDeserializer installs a registry-aware deserializer for a
// field. Mutually exclusive with WithFieldDeserializer for the same field.
func WithFieldRegistryDeserializer(field string, fn RegistryDeserializeFunc) SpecOption {
	return func(c *specConfig) { c.registryDeser[field] = fn }
}

// WithDefaults supplies the instance whose values seed default-created
// config files. Without it, the zero value of the record type is used.
func WithDefaults(v any) SpecOption {
	return func(c *specConfig) {
		c.defaults = v
		c.hasDefaults = true
	}
}

// NewSpec builds the metadata for record type T. T must be a struct type.
// Exported fields become document entries; the external key is taken from
// the `classconf` struct tag when present, otherwise from the field name,
// and can be overridden with WithFieldKey. Fields tagged `classconf:"-"`
// are skipped.
func NewSpec[T any](opts ...SpecOption) (*Spec, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct type", ErrSpec, typ)
	}

	cfg := &specConfig{
		keys:          make(map[string]string),
		serializers:   make(map[string]SerializeFunc),
		deserializers: make(map[string]DeserializeFunc),
		registryDeser: make(map[string]RegistryDeserializeFunc),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	spec := &Spec{
		typ:      typ,
		name:     cfg.name,
		topLevel: cfg.topLevel,
	}
	if spec.name == "" {
		spec.name = toSnake(typ.Name())
	}

	known := make(map[string]bool, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("classconf")
		if tag == "-" {
			continue
		}
		key := field.Name
		mapKey := field.Name
		if tag != "" {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
				mapKey = name
			}
		}
		if override, ok := cfg.keys[field.Name]; ok {
			key = override
		}

		known[field.Name] = true
		spec.fields = append(spec.fields, fieldSpec{
			name:          field.Name,
			key:           key,
			mapKey:        mapKey,
			index:         i,
			typ:           field.Type,
			serialize:     cfg.serializers[field.Name],
			deserialize:   cfg.deserializers[field.Name],
			registryDeser: cfg.registryDeser[field.Name],
		})
	}

	// Reject options referring to fields the type does not declare, and
	// ambiguous double-deserializer installs.
	for _, set := range []map[string]bool{fieldNames(cfg.keys), fieldNames(cfg.serializers), fieldNames(cfg.deserializers), fieldNames(cfg.registryDeser)} {
		for name := range set {
			if !known[name] {
				return nil, fmt.Errorf("%w: %s has no exported field %q", ErrSpec, typ, name)
			}
		}
	}
	for name := range cfg.deserializers {
		if _, both := cfg.registryDeser[name]; both {
			return nil, fmt.Errorf("%w: field %q of %s has both deserializer shapes", ErrSpec, name, typ)
		}
	}

	if cfg.hasDefaults {
		dv := reflect.ValueOf(cfg.defaults)
		if dv.Kind() == reflect.Pointer && !dv.IsNil() {
			dv = dv.Elem()
		}
		if !dv.IsValid() || dv.Type() != typ {
			return nil, fmt.Errorf("%w: defaults for %s must be %s or *%s, got %T", ErrSpec, typ, typ, typ, cfg.defaults)
		}
		spec.defaults = dv
		spec.hasDefaults = true
	}

	return spec, nil
}

// MustSpec is like NewSpec but panics on error. Intended for spec
// declarations at package init time.
func MustSpec[T any](opts ...SpecOption) *Spec {
	spec, err := NewSpec[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("classconf: %v", err))
	}
	return spec
}

func fieldNames[V any](m map[string]V) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// toSnake converts a Go type name to its canonical section form:
// "DatabaseConfig" -> "database_config", "HTTPServer" -> "http_server".
func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
