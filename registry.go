package dxf

import (
	"fmt"
	"slices"
)

// Registry resolves entity kind names to schemas. It is built once and never
// mutated, so any number of goroutines may use it.
type Registry struct {
	schemas map[string]*Schema
	kinds   []string
}

// NewRegistry compiles every schema, including nested and selected
// grammars, and rejects duplicate kinds.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	seen := make(map[*Schema]bool)
	for _, s := range schemas {
		if s == nil {
			return nil, fmt.Errorf("%w: nil schema", ErrInvalidSchema)
		}
		if _, dup := r.schemas[s.Kind]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKind, s.Kind)
		}
		if err := validateTree(s, seen); err != nil {
			return nil, err
		}
		r.schemas[s.Kind] = s
		r.kinds = append(r.kinds, s.Kind)
	}
	slices.Sort(r.kinds)
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is meant for
// package-level tables compiled into the program.
func MustRegistry(schemas ...*Schema) *Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the schema for kind or an *UnknownKindError.
func (r *Registry) Resolve(kind string) (*Schema, error) {
	if s, ok := r.schemas[kind]; ok {
		return s, nil
	}
	return nil, &UnknownKindError{Kind: kind}
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string { return slices.Clone(r.kinds) }

func (r *Registry) Len() int { return len(r.kinds) }

// With returns a new registry holding r's schemas plus schemas. r is left
// untouched.
func (r *Registry) With(schemas ...*Schema) (*Registry, error) {
	all := make([]*Schema, 0, len(r.kinds)+len(schemas))
	for _, k := range r.kinds {
		all = append(all, r.schemas[k])
	}
	return NewRegistry(append(all, schemas...)...)
}
