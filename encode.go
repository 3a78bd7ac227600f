package dxf

import (
	"fmt"
	"io"
	"strings"
)

type encoder struct {
	w       *TokenWriter
	version Version
}

// Encode writes e as one record laid out by s at version v. It does not
// write the sentinel that ends the record: the next record's type token, or
// the closing (0, EOF), does that. Encode never mutates e.
//
// Fields outside their version range are skipped, as are optional fields
// equal to their default. An absent Required field, a value of the wrong
// type or text holding a line break yields an *UnencodableValueError. The
// run a container owns (Schema.Follows) is written after it.
func Encode(w *TokenWriter, e *Entity, s *Schema, v Version) error {
	if w == nil {
		return ErrNilIO
	}
	g, err := grammarFor(s)
	if err != nil {
		return err
	}
	if e == nil {
		return &UnencodableValueError{Kind: s.Kind, Field: "(entity)"}
	}
	if e.Kind != s.Kind {
		return fmt.Errorf("%w: entity %q, schema %q", ErrKindMismatch, e.Kind, s.Kind)
	}
	enc := &encoder{w: w, version: v}
	w.WriteText(CodeSentinel, s.Kind)
	for _, c := range e.Comments {
		if strings.ContainsAny(c, "\r\n") {
			return &UnencodableValueError{Kind: e.Kind, Field: "(comment)", Value: c}
		}
		w.WriteText(CodeComment, c)
	}
	if err := enc.body(g, e); err != nil {
		return err
	}
	if r := s.Follows; r != nil && (r.When == "" || runFlag(e, r) != 0) {
		if err := enc.run(r, e); err != nil {
			return err
		}
	}
	return w.Err()
}

// run writes the member records of e and the record that closes them. A
// missing closing record is written with its defaults.
func (enc *encoder) run(r *Run, e *Entity) error {
	for _, child := range e.Children[r.Slot] {
		if child == nil {
			return &UnencodableValueError{Kind: e.Kind, Field: r.Slot}
		}
		s := r.member(child.Kind)
		if s == nil {
			return &UnencodableValueError{Kind: e.Kind, Field: r.Slot, Value: child.Kind}
		}
		if err := Encode(enc.w, child, s, enc.version); err != nil {
			return err
		}
	}
	end := NewEntity(r.End.Kind)
	switch kids := e.Children[r.EndSlotName()]; len(kids) {
	case 0:
	case 1:
		end = kids[0]
	default:
		return &UnencodableValueError{Kind: e.Kind, Field: r.EndSlotName(), Value: len(kids)}
	}
	return Encode(enc.w, end, r.End, enc.version)
}

// body writes everything after a record's opening token.
func (enc *encoder) body(g *grammar, e *Entity) error {
	if err := enc.section(g, e, ""); err != nil {
		return err
	}
	for i := range g.s.Markers {
		m := &g.s.Markers[i]
		if m.Nested == nil {
			if m.Expected(enc.version) {
				enc.w.WriteText(m.GroupCode(), m.Name)
			}
		} else if m.Expected(enc.version) {
			// Nested sub-records need their marker to be found again, so
			// they share its version range.
			ng, err := grammarFor(m.Nested)
			if err != nil {
				return err
			}
			for _, child := range e.Children[m.SlotName()] {
				enc.w.WriteText(m.GroupCode(), m.Name)
				if err := enc.child(ng, child); err != nil {
					return err
				}
			}
		}
		if err := enc.section(g, e, m.Name); err != nil {
			return err
		}
	}
	return nil
}

// child writes a nested sub-record followed by its terminator, if any.
func (enc *encoder) child(g *grammar, e *Entity) error {
	if e == nil {
		return &UnencodableValueError{Kind: g.s.Kind, Field: "(child)"}
	}
	if err := enc.body(g, e); err != nil {
		return err
	}
	if g.s.HasTerminator() {
		enc.w.WriteText(g.s.Terminator, g.s.TerminatorValue)
	}
	return nil
}

// section writes the fields that follow the named marker.
func (enc *encoder) section(g *grammar, e *Entity, name string) error {
	for _, i := range g.sections[name] {
		fd := g.field(i)
		if !fd.AppliesTo(enc.version) {
			continue
		}
		var err error
		switch fd.Role {
		case RoleScalar:
			err = enc.scalar(g, i, e)
		case RoleCount:
			n := len(e.Groups[fd.Group])
			if g.slots[fd.Group] {
				n = len(e.Children[fd.Group])
			}
			err = enc.value(g, i, e.Kind, int64(n))
		case RoleRepeatStart:
			err = enc.units(g, fd.Group, e)
		case RoleSelector:
			err = enc.selected(g, i, e)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) scalar(g *grammar, i int, e *Entity) error {
	fd := g.field(i)
	v, ok := e.Fields[fd.Name]
	if r := g.s.Follows; r != nil && r.When == fd.Name {
		v, ok = runFlag(e, r), true
	}
	if !ok {
		switch {
		case fd.Required:
			return &UnencodableValueError{Kind: e.Kind, Field: fd.Name}
		case fd.Always:
			return enc.value(g, i, e.Kind, g.defaults[i])
		}
		return nil
	}
	c, ok := fd.Kind.Canonical(v)
	if !ok {
		return &UnencodableValueError{Kind: e.Kind, Field: fd.Name, Value: v}
	}
	if c == g.defaults[i] && !fd.Always && !fd.Required {
		return nil
	}
	return enc.value(g, i, e.Kind, c)
}

// units writes every unit of a repeat group: the leading code first, then
// each member that differs from its default. Members taking their default
// from the same scalar are written together or not at all.
func (enc *encoder) units(g *grammar, group string, e *Entity) error {
	idx := g.groups[group]
	for _, u := range e.Groups[group] {
		differs := make(map[int]bool)
		for _, i := range idx[1:] {
			fd := g.field(i)
			j := g.inherit[i]
			if j < 0 || !fd.AppliesTo(enc.version) {
				continue
			}
			if v, ok := u[fd.Name]; ok {
				if c, ok := fd.Kind.Canonical(v); ok && c != g.memberDefault(i, e) {
					differs[j] = true
				}
			}
		}

		for n, i := range idx {
			fd := g.field(i)
			if !fd.AppliesTo(enc.version) {
				continue
			}
			def := g.memberDefault(i, e)
			write := n == 0 || fd.Always
			if j := g.inherit[i]; j >= 0 && differs[j] {
				write = true
			}
			v, ok := u[fd.Name]
			if !ok {
				if write {
					if err := enc.value(g, i, e.Kind, def); err != nil {
						return err
					}
				}
				continue
			}
			c, ok := fd.Kind.Canonical(v)
			if !ok {
				return &UnencodableValueError{Kind: e.Kind, Field: group + "." + fd.Name, Value: v}
			}
			if !write && c == def {
				continue
			}
			if err := enc.value(g, i, e.Kind, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// selected writes one selector token and child body per child of the slot.
func (enc *encoder) selected(g *grammar, i int, e *Entity) error {
	fd := g.field(i)
	for _, child := range e.Children[fd.Group] {
		if child == nil {
			return &UnencodableValueError{Kind: e.Kind, Field: fd.Group}
		}
		v, ok := child.Fields[fd.Name]
		if !ok {
			if v, ok = fd.selectorValue(child.Kind); !ok {
				return &UnencodableValueError{Kind: child.Kind, Field: fd.Name}
			}
		}
		key, err := fd.Kind.Format(v, enc.w.Precision())
		if err != nil {
			return &UnencodableValueError{Kind: child.Kind, Field: fd.Name, Value: v}
		}
		cs := fd.selectCase(key)
		if cs == nil || cs.Kind != child.Kind {
			return &UnencodableValueError{Kind: child.Kind, Field: fd.Name, Value: key}
		}
		cg, err := grammarFor(cs)
		if err != nil {
			return err
		}
		enc.w.WriteText(fd.Code, key)
		if err := enc.child(cg, child); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) value(g *grammar, i int, kind string, v any) error {
	fd := g.field(i)
	s, err := fd.Kind.Format(v, enc.w.Precision())
	if err != nil {
		return &UnencodableValueError{Kind: kind, Field: fd.Name, Value: v}
	}
	enc.w.WriteText(fd.Code, s)
	return nil
}

// EncodeTo writes e as a complete single-record stream, closed by (0, EOF),
// to w. The record is built in a pooled buffer and only written when
// encoding succeeded.
func EncodeTo(w io.Writer, e *Entity, s *Schema, v Version, opts ...WriterOption) (int64, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	tw, err := NewTokenWriter(buf, opts...)
	if err != nil {
		return 0, err
	}
	if err := Encode(tw, e, s, v); err != nil {
		return 0, err
	}
	tw.WriteText(CodeSentinel, EndOfFile)
	if err := tw.Close(); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}
