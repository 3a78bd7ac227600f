package dxf

import (
	"maps"
	"slices"
)

// Unit is one member of a repeat group, keyed by field name.
type Unit map[string]any

// Entity is a decoded record. Field values use the canonical Go types of
// their FieldKind: int64, float64, string, Flags and Handle.
type Entity struct {
	Kind     string               `json:"kind"`
	Fields   map[string]any       `json:"fields"`
	Groups   map[string][]Unit    `json:"groups,omitempty"`
	Children map[string][]*Entity `json:"children,omitempty"`
	Comments []string             `json:"comments,omitempty"`
}

// NewEntity returns an empty entity of the given kind.
func NewEntity(kind string) *Entity {
	return &Entity{Kind: kind, Fields: make(map[string]any)}
}

// Set stores a scalar field and returns e for chaining.
func (e *Entity) Set(name string, v any) *Entity {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[name] = v
	return e
}

// Get returns the value of a scalar field.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// Text returns a text field or "" when it is absent or not text.
func (e *Entity) Text(name string) string {
	s, _ := e.Fields[name].(string)
	return s
}

// Real returns a numeric field as float64.
func (e *Entity) Real(name string) float64 {
	f, _ := numeric(e.Fields[name])
	return f
}

// Int returns an integer field. Values of other kinds yield zero.
func (e *Entity) Int(name string) int64 {
	n, _ := asInt(e.Fields[name])
	return n
}

// AddUnit appends u to the repeat group and returns e.
func (e *Entity) AddUnit(group string, u Unit) *Entity {
	if e.Groups == nil {
		e.Groups = make(map[string][]Unit)
	}
	e.Groups[group] = append(e.Groups[group], u)
	return e
}

// AddChild appends c to the child slot and returns e.
func (e *Entity) AddChild(slot string, c *Entity) *Entity {
	if e.Children == nil {
		e.Children = make(map[string][]*Entity)
	}
	e.Children[slot] = append(e.Children[slot], c)
	return e
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := &Entity{
		Kind:     e.Kind,
		Fields:   maps.Clone(e.Fields),
		Comments: slices.Clone(e.Comments),
	}
	if c.Fields == nil {
		c.Fields = make(map[string]any)
	}
	if e.Groups != nil {
		c.Groups = make(map[string][]Unit, len(e.Groups))
		for k, units := range e.Groups {
			cu := make([]Unit, len(units))
			for i, u := range units {
				cu[i] = maps.Clone(u)
			}
			c.Groups[k] = cu
		}
	}
	if e.Children != nil {
		c.Children = make(map[string][]*Entity, len(e.Children))
		for k, kids := range e.Children {
			ck := make([]*Entity, len(kids))
			for i, kid := range kids {
				ck[i] = kid.Clone()
			}
			c.Children[k] = ck
		}
	}
	return c
}

// tidy drops empty groups, slots and comments so that decoded, normalized
// and hand-built entities compare equal.
func (e *Entity) tidy() {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	for k, v := range e.Groups {
		if len(v) == 0 {
			delete(e.Groups, k)
		}
	}
	if len(e.Groups) == 0 {
		e.Groups = nil
	}
	for k, v := range e.Children {
		if len(v) == 0 {
			delete(e.Children, k)
		}
	}
	if len(e.Children) == 0 {
		e.Children = nil
	}
	if len(e.Comments) == 0 {
		e.Comments = nil
	}
}
