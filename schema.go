package classconf

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// fieldPlan is a fieldSpec plus its conversion variant, resolved once for a
// given spec set. Each direction resolves independently: a field can carry a
// custom serializer while decoding through nested recursion, or vice versa.
type fieldPlan struct {
	fieldSpec
	encodeNested *Spec // recurse on encode when set
	decodeNested *Spec // recurse on decode when set
}

type typePlan struct {
	spec   *Spec
	fields []fieldPlan
}

// schema is a validated, resolved set of specs. Both the registry and
// Generate build one; nested-ness, like top-level-ness, is only meaningful
// relative to the full set.
type schema struct {
	specs    []*Spec
	plans    map[reflect.Type]*typePlan
	topLevel *Spec
}

// buildSchema validates a spec set and resolves every field's conversion
// variant. It fails on duplicate types, duplicate section names, and more
// than one top-level spec.
func buildSchema(specs []*Spec) (*schema, error) {
	s := &schema{
		specs: specs,
		plans: make(map[reflect.Type]*typePlan, len(specs)),
	}

	sections := make(map[string]*Spec, len(specs))
	for _, spec := range specs {
		if _, dup := s.plans[spec.typ]; dup {
			return nil, fmt.Errorf("%w: %s registered twice", ErrSpec, spec.typ)
		}
		s.plans[spec.typ] = &typePlan{spec: spec}

		if spec.topLevel {
			if s.topLevel != nil {
				return nil, fmt.Errorf("%w: %s and %s", ErrTopLevelConflict, s.topLevel.typ, spec.typ)
			}
			s.topLevel = spec
			continue
		}
		if prev, taken := sections[spec.name]; taken {
			return nil, fmt.Errorf("%w: section %q claimed by both %s and %s", ErrSpec, spec.name, prev.typ, spec.typ)
		}
		sections[spec.name] = spec
	}

	for _, plan := range s.plans {
		plan.fields = make([]fieldPlan, len(plan.spec.fields))
		for i, f := range plan.spec.fields {
			fp := fieldPlan{fieldSpec: f}
			if nested := s.specFor(f.typ); nested != nil {
				if f.serialize == nil {
					fp.encodeNested = nested
				}
				if f.deserialize == nil && f.registryDeser == nil {
					fp.decodeNested = nested
				}
			}
			plan.fields[i] = fp
		}
	}

	return s, nil
}

// specFor returns the spec registered for a field type, unwrapping one level
// of pointer indirection. Types without a spec in the set decode and encode
// as plain values.
func (s *schema) specFor(t reflect.Type) *Spec {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if plan, ok := s.plans[t]; ok {
		return plan.spec
	}
	return nil
}

func (s *schema) plan(t reflect.Type) *typePlan {
	return s.plans[t]
}

// ordered returns the specs in document layout order: the top-level spec
// first, then sections sorted case-insensitively by name.
func (s *schema) ordered() []*Spec {
	out := make([]*Spec, 0, len(s.specs))
	for _, spec := range s.specs {
		if !spec.topLevel {
			out = append(out, spec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].name) < strings.ToLower(out[j].name)
	})
	if s.topLevel != nil {
		out = append([]*Spec{s.topLevel}, out...)
	}
	return out
}
