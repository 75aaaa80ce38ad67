package classconf

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// Binding pairs a spec with the instance to write. A nil value stands for
// the spec's default instance.
type Binding struct {
	spec  *Spec
	value any
}

// Bind pairs a spec with an instance for Generate.
func Bind(spec *Spec, value any) Binding {
	return Binding{spec: spec, value: value}
}

// Generate composes a document from the given instances and writes it to
// path, independent of any registry. The top-level instance's fields occupy
// the document root; all others become sections named by their spec. A nil
// format is picked from the path's extension. When the target file already
// exists and overrideExisting is false, Generate fails with ErrWriteConflict.
func Generate(path string, format Format, overrideExisting bool, bindings ...Binding) error {
	if format == nil {
		format = DetectFormat(path)
	}

	if !overrideExisting {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrWriteConflict, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check target file '%s': %w", path, err)
		}
	}

	specs := make([]*Spec, len(bindings))
	values := make(map[reflect.Type]any, len(bindings))
	for i, b := range bindings {
		if b.spec == nil {
			return fmt.Errorf("%w: binding without spec", ErrSpec)
		}
		specs[i] = b.spec
		values[b.spec.typ] = b.value
	}

	sch, err := buildSchema(specs)
	if err != nil {
		return err
	}

	root := NewMap()
	for _, spec := range sch.ordered() {
		inst := spec.defaultValue()
		if v := values[spec.typ]; v != nil {
			inst = reflect.ValueOf(v)
		}
		node, err := sch.encodeRecord(spec, inst)
		if err != nil {
			return err
		}
		if spec.topLevel {
			root.Merge(node)
		} else {
			root.Set(spec.name, node)
		}
	}

	return format.Write(path, root)
}
