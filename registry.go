package classconf

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Registry owns one config file, one format, and a set of record specs. It
// reads the file lazily on first Get, optionally creating it from defaults,
// and caches one instance per registered type for its lifetime.
//
// A Registry is not synchronized. Load and Add mutate its state; callers
// invoking them from multiple goroutines must serialize access themselves.
type Registry struct {
	path   string
	format Format
	create bool

	specs  []*Spec
	schema *schema

	doc       *Map
	cache     map[reflect.Type]any // reflect.Type -> *T
	loaded    bool
	loading   bool
	resolving map[reflect.Type]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithSpecs registers record specs with the registry.
func WithSpecs(specs ...*Spec) Option {
	return func(r *Registry) { r.specs = append(r.specs, specs...) }
}

// WithFormat sets the file format. Without it the format is picked from the
// path's extension, defaulting to TOML.
func WithFormat(f Format) Option {
	return func(r *Registry) { r.format = f }
}

// WithCreateMissing makes the registry write a default-valued config file
// when the path does not exist, instead of failing with ErrFileNotFound.
func WithCreateMissing() Option {
	return func(r *Registry) { r.create = true }
}

// New creates a registry for the given file path. Spec-set consistency
// (at most one top-level type, unique section names) is validated here;
// the file itself is not touched until the first Get or Load.
// A path without extension gets the format's canonical one appended.
func New(path string, opts ...Option) (*Registry, error) {
	r := &Registry{
		path:      path,
		cache:     make(map[reflect.Type]any),
		resolving: make(map[reflect.Type]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.format == nil {
		r.format = DetectFormat(path)
	}
	if filepath.Ext(r.path) == "" {
		r.path += r.format.Ext()
	}

	sch, err := buildSchema(r.specs)
	if err != nil {
		return nil, err
	}
	r.schema = sch

	return r, nil
}

// Path returns the resolved config file path.
func (r *Registry) Path() string { return r.path }

// Get returns the registry's cached instance of T, loading and parsing the
// config file on first use. Repeated calls return the same pointer.
func Get[T any](r *Registry) (*T, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	spec := r.schema.specFor(typ)
	if spec == nil || spec.typ != typ {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, typ)
	}

	if inst, ok := r.cache[typ]; ok {
		return inst.(*T), nil
	}

	if r.loading {
		// Re-entered from a registry-aware deserializer while a load is in
		// progress: resolve just the requested section.
		if err := r.resolve(spec); err != nil {
			return nil, err
		}
		return r.cache[typ].(*T), nil
	}

	if err := r.Load(); err != nil {
		return nil, err
	}
	return r.cache[typ].(*T), nil
}

// Load reads and parses the config file for every registered spec. It is
// idempotent; Get triggers it automatically. On failure no instances are
// cached and the registry stays unloaded.
func (r *Registry) Load() error {
	if r.loaded {
		return nil
	}

	if err := r.ensureDoc(); err != nil {
		return err
	}

	r.loading = true
	for _, spec := range r.specs {
		if err := r.resolve(spec); err != nil {
			r.loading = false
			r.doc = nil
			r.cache = make(map[reflect.Type]any)
			return err
		}
	}
	r.loading = false
	r.loaded = true
	return nil
}

// ensureDoc reads the on-disk document, composing and writing a default one
// when the file is missing and creation was requested.
func (r *Registry) ensureDoc() error {
	if r.doc != nil {
		return nil
	}

	doc, err := r.format.Read(r.path)
	if err != nil {
		return err
	}
	if doc == nil {
		if !r.create {
			return fmt.Errorf("%w: %s", ErrFileNotFound, r.path)
		}
		doc, err = r.schema.defaultDocument()
		if err != nil {
			return err
		}
		if err := r.format.Write(r.path, doc); err != nil {
			return err
		}
	}

	r.doc = doc
	return nil
}

// resolve decodes one spec's section and caches the instance. Instances are
// produced at most once per load cycle.
func (r *Registry) resolve(spec *Spec) error {
	if _, done := r.cache[spec.typ]; done {
		return nil
	}
	if r.resolving[spec.typ] {
		return fmt.Errorf("%w: circular section resolution for %s", ErrSpec, spec.typ)
	}
	r.resolving[spec.typ] = true
	defer delete(r.resolving, spec.typ)

	node := r.doc
	if !spec.topLevel {
		raw, ok := r.doc.Get(spec.name)
		if !ok {
			return fmt.Errorf("%w: section %q (%s)", ErrMissingKey, spec.name, spec.typ)
		}
		sub, err := asMap(raw, fmt.Sprintf("section %q", spec.name))
		if err != nil {
			return err
		}
		node = sub
	}

	inst := reflect.New(spec.typ)
	if err := r.schema.decodeRecord(spec, node, r, inst.Elem()); err != nil {
		return err
	}
	r.cache[spec.typ] = inst.Interface()
	return nil
}

// Add registers a spec after construction. When the registry is already
// loaded, the new spec's section is parsed immediately, so a registered
// type is always resolvable; a spec whose section cannot be parsed is not
// registered at all.
func (r *Registry) Add(spec *Spec) error {
	candidate := make([]*Spec, len(r.specs), len(r.specs)+1)
	copy(candidate, r.specs)
	candidate = append(candidate, spec)

	sch, err := buildSchema(candidate)
	if err != nil {
		return err
	}

	if r.loaded {
		prev := r.schema
		r.schema = sch
		r.loading = true
		err := r.resolve(spec)
		r.loading = false
		if err != nil {
			r.schema = prev
			delete(r.cache, spec.typ)
			return err
		}
	} else {
		r.schema = sch
	}

	r.specs = candidate
	return nil
}

// Debug returns a formatted dump of the registered sections and any cached
// instances, for troubleshooting.
func (r *Registry) Debug() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registry %s (format %s, loaded %v)\n", r.path, r.format.Ext(), r.loaded)
	for _, spec := range r.schema.ordered() {
		section := spec.name
		if spec.topLevel {
			section = "<top-level>"
		}
		fmt.Fprintf(&b, "  %s -> %s\n", section, spec.typ)
		if inst, ok := r.cache[spec.typ]; ok {
			b.WriteString(spew.Sdump(inst))
		}
	}
	return b.String()
}
