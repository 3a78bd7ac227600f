package dxf

// Normalize returns a repaired copy of e; e itself is not modified.
// Every scalar and repeat-group member takes its canonical Go type, absent
// ones take their default, and blank text fields with a DefaultIfBlank
// (layer, linetype) revert to it. Children are normalized with their own
// grammar; an owned run gets its closing record. Normalize is idempotent.
func Normalize(e *Entity, s *Schema) (*Entity, error) {
	g, err := grammarFor(s)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &UnencodableValueError{Kind: s.Kind, Field: "(entity)"}
	}
	out := e.Clone()
	if err := normalize(out, g); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(e *Entity, g *grammar) error {
	for i := range g.s.Fields {
		fd := g.field(i)
		switch fd.Role {
		case RoleScalar:
			v, ok := e.Fields[fd.Name]
			if !ok {
				v = g.defaults[i]
			}
			if r := g.s.Follows; r != nil && r.When == fd.Name {
				v = runFlag(e, r)
			}
			c, ok := fd.Kind.Canonical(v)
			if !ok {
				return &UnencodableValueError{Kind: e.Kind, Field: fd.Name, Value: v}
			}
			if s, isText := c.(string); isText && fd.DefaultIfBlank != "" && blank(s) {
				c = fd.DefaultIfBlank
			}
			e.Fields[fd.Name] = c
		case RoleCount:
			// Counts are derived from the data they count.
			delete(e.Fields, fd.Name)
		}
	}

	for group, idx := range g.groups {
		for _, u := range e.Groups[group] {
			for _, i := range idx {
				fd := g.field(i)
				v, ok := u[fd.Name]
				if !ok {
					u[fd.Name] = g.memberDefault(i, e)
					continue
				}
				c, ok := fd.Kind.Canonical(v)
				if !ok {
					return &UnencodableValueError{Kind: e.Kind, Field: group + "." + fd.Name, Value: v}
				}
				u[fd.Name] = c
			}
		}
	}

	// A run that is written always ends with its closing record.
	if r := g.s.Follows; r != nil && (r.When == "" || runFlag(e, r) != 0) && len(e.Children[r.EndSlotName()]) == 0 {
		e.AddChild(r.EndSlotName(), NewEntity(r.End.Kind))
	}

	for slot, kids := range e.Children {
		for _, kid := range kids {
			if kid == nil {
				return &UnencodableValueError{Kind: e.Kind, Field: slot}
			}
			cs := g.s.childSchema(slot, kid.Kind)
			if cs == nil {
				continue
			}
			cg, err := grammarFor(cs)
			if err != nil {
				return err
			}
			if err := normalizeSelector(kid, g, slot); err != nil {
				return err
			}
			if err := normalize(kid, cg); err != nil {
				return err
			}
		}
	}
	e.tidy()
	return nil
}

// normalizeSelector canonicalizes the selector value a selected child
// carries, deriving it from the child's kind when it is missing.
func normalizeSelector(kid *Entity, parent *grammar, slot string) error {
	for i := range parent.s.Fields {
		fd := parent.field(i)
		if fd.Role != RoleSelector || fd.Group != slot {
			continue
		}
		v, ok := kid.Fields[fd.Name]
		if !ok {
			if v, ok = fd.selectorValue(kid.Kind); !ok {
				return nil
			}
		}
		c, ok := fd.Kind.Canonical(v)
		if !ok {
			return &UnencodableValueError{Kind: kid.Kind, Field: fd.Name, Value: v}
		}
		kid.Fields[fd.Name] = c
		return nil
	}
	return nil
}
