package schemafile

import (
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/oy3o/dxf"
)

// Build turns parsed files into schemas and returns the ones declared with
// "entity", in declaration order. extern lists schemas that declarations
// may refer to by kind without declaring them.
func Build(files []*File, extern ...*dxf.Schema) ([]*dxf.Schema, error) {
	b := &builder{byKind: make(map[string]*dxf.Schema)}
	for _, s := range extern {
		b.byKind[s.Kind] = s
	}

	// First pass: allocate every schema so references resolve in any order.
	var decls []*Decl
	declared := make(map[string]bool)
	for _, f := range files {
		for _, d := range f.Decls {
			if declared[d.Kind] {
				return nil, at(d.Pos, fmt.Errorf("%w: %q", ErrDuplicate, d.Kind))
			}
			declared[d.Kind] = true
			b.byKind[d.Kind] = &dxf.Schema{Kind: d.Kind}
			decls = append(decls, d)
		}
	}

	var out []*dxf.Schema
	for _, d := range decls {
		s := b.byKind[d.Kind]
		if err := b.fill(s, d); err != nil {
			return nil, err
		}
		if d.Entity {
			out = append(out, s)
		}
	}
	return out, nil
}

// LoadFS parses every file of fsys matching pattern, in lexical order, and
// builds them together.
func LoadFS(fsys fs.FS, pattern string, extern ...*dxf.Schema) ([]*dxf.Schema, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	files := make([]*File, 0, len(names))
	for _, name := range names {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		f, err := Parse(path.Base(name), src)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return Build(files, extern...)
}

type builder struct {
	byKind map[string]*dxf.Schema
}

func (b *builder) lookup(kind string) (*dxf.Schema, error) {
	s, ok := b.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefined, kind)
	}
	return s, nil
}

func (b *builder) fill(s *dxf.Schema, d *Decl) error {
	if d.Terminator != nil {
		s.Terminator = d.Terminator.Code
		if d.Terminator.Value != nil {
			s.TerminatorValue = *d.Terminator.Value
		}
	}
	for _, it := range d.Items {
		switch {
		case it.Marker != nil:
			m, err := b.marker(it.Marker)
			if err != nil {
				return at(it.Marker.Pos, err)
			}
			s.Markers = append(s.Markers, m)
		case it.Section != nil:
			for _, fd := range it.Section.Fields {
				f, err := b.field(fd, it.Section.Name)
				if err != nil {
					return at(fd.Pos, err)
				}
				s.Fields = append(s.Fields, f)
			}
		case it.Field != nil:
			f, err := b.field(it.Field, "")
			if err != nil {
				return at(it.Field.Pos, err)
			}
			s.Fields = append(s.Fields, f)
		case it.Pair != nil:
			s.Pairs = append(s.Pairs, [2]string{it.Pair.A, it.Pair.B})
		case it.Check != nil:
			c, err := check(it.Check)
			if err != nil {
				return at(it.Check.Pos, err)
			}
			s.Checks = append(s.Checks, c)
		case it.Follows != nil:
			if s.Follows != nil {
				return at(it.Follows.Pos, fmt.Errorf("%w: second run in %q", ErrDuplicate, s.Kind))
			}
			r, err := b.run(it.Follows)
			if err != nil {
				return at(it.Follows.Pos, err)
			}
			s.Follows = r
		}
	}
	return nil
}

func (b *builder) marker(md *MarkerDecl) (dxf.Marker, error) {
	m := dxf.Marker{Code: md.Code, Name: md.Name}
	var err error
	if m.Since, m.Until, err = versions(md.Range); err != nil {
		return m, err
	}
	if md.Nested != nil {
		if m.Nested, err = b.lookup(*md.Nested); err != nil {
			return m, err
		}
	}
	if md.Slot != nil {
		m.Slot = *md.Slot
	}
	return m, nil
}

func (b *builder) run(fd *FollowsDecl) (*dxf.Run, error) {
	r := &dxf.Run{Slot: fd.Slot}
	for _, kind := range fd.Members {
		s, err := b.lookup(kind)
		if err != nil {
			return nil, err
		}
		r.Members = append(r.Members, s)
	}
	var err error
	if r.End, err = b.lookup(fd.End); err != nil {
		return nil, err
	}
	if fd.EndSlot != nil {
		r.EndSlot = *fd.EndSlot
	}
	if fd.When != nil {
		r.When = *fd.When
	}
	return r, nil
}

func (b *builder) field(fd *FieldDecl, section string) (dxf.FieldDescriptor, error) {
	kind, ok := dxf.ParseFieldKind(fd.Kind)
	if !ok {
		switch fd.Kind {
		case "double":
			kind, ok = dxf.KindReal, true
		case "int":
			kind, ok = dxf.KindInteger, true
		}
	}
	if !ok {
		return dxf.FieldDescriptor{}, fmt.Errorf("%w: %q", ErrBadKind, fd.Kind)
	}
	d := dxf.FieldDescriptor{Code: fd.Code, Name: fd.Name, Kind: kind, Section: section}
	for _, o := range fd.Options {
		var err error
		switch {
		case o.Default != nil:
			d.Default, err = o.Default.value()
		case o.Blank != nil:
			d.DefaultIfBlank = *o.Blank
		case o.Since != nil:
			d.Since, err = version(*o.Since)
		case o.Until != nil:
			d.Until, err = version(*o.Until)
		case o.Required:
			d.Required = true
		case o.Always:
			d.Always = true
		case o.Repeat != nil:
			d.Role, d.Group = dxf.RoleRepeatStart, *o.Repeat
		case o.Member != nil:
			d.Role, d.Group = dxf.RoleRepeatMember, *o.Member
		case o.Count != nil:
			d.Role, d.Group = dxf.RoleCount, *o.Count
		case o.In != nil:
			d.Section = *o.In
		case o.Inherit != nil:
			d.DefaultFrom = *o.Inherit
		case o.Select != nil:
			err = b.selector(&d, o.Select)
		}
		if err != nil {
			return d, err
		}
	}
	return d, nil
}

func (b *builder) selector(d *dxf.FieldDescriptor, sel *Selector) error {
	d.Role, d.Group = dxf.RoleSelector, sel.Slot
	if len(sel.Cases) > 0 {
		d.Cases = make(map[string]*dxf.Schema, len(sel.Cases))
	}
	for _, c := range sel.Cases {
		s, err := b.lookup(c.Kind)
		if err != nil {
			return err
		}
		v, err := c.Value.value()
		if err != nil {
			return err
		}
		key, err := d.Kind.Format(v, dxf.DefaultPrecision)
		if err != nil {
			return fmt.Errorf("%w: case %v for %v selector", ErrBadValue, v, d.Kind)
		}
		d.Cases[key] = s
	}
	if sel.Fallback != nil {
		s, err := b.lookup(*sel.Fallback)
		if err != nil {
			return err
		}
		d.DefaultCase = s
	}
	return nil
}

func check(cd *CheckDecl) (dxf.Check, error) {
	c := dxf.Check{Fields: cd.Fields, Against: cd.Against}
	switch cd.Kind {
	case "nonempty":
		c.Kind = dxf.CheckNonEmpty
	case "nonzero":
		c.Kind = dxf.CheckNonZero
	case "distinct":
		c.Kind = dxf.CheckDistinct
		if len(c.Fields) != len(c.Against) {
			return c, fmt.Errorf("%w: distinct needs as many fields after \"against\"", ErrBadValue)
		}
	case "range":
		c.Kind = dxf.CheckRange
		if cd.Min == nil || cd.Max == nil {
			return c, fmt.Errorf("%w: range needs bounds", ErrBadValue)
		}
		var err error
		if c.Min, err = cd.Min.number(); err != nil {
			return c, err
		}
		if c.Max, err = cd.Max.number(); err != nil {
			return c, err
		}
	}
	var err error
	if c.Since, c.Until, err = versions(cd.Range); err != nil {
		return c, err
	}
	if cd.Message != nil {
		c.Message = *cd.Message
	}
	return c, nil
}

func versions(r Range) (since, until dxf.Version, err error) {
	if r.Since != nil {
		if since, err = version(*r.Since); err != nil {
			return
		}
	}
	if r.Until != nil {
		until, err = version(*r.Until)
	}
	return
}

func version(s string) (dxf.Version, error) {
	v, err := dxf.ParseVersion(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadVersion, s)
	}
	return v, nil
}

func (v Value) value() (any, error) {
	switch {
	case v.Float != nil:
		return *v.Float, nil
	case v.Int != nil:
		return *v.Int, nil
	case v.Str != nil:
		return *v.Str, nil
	}
	return nil, fmt.Errorf("%w: empty value", ErrBadValue)
}

func (v Value) number() (float64, error) {
	switch {
	case v.Float != nil:
		return *v.Float, nil
	case v.Int != nil:
		return float64(*v.Int), nil
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrBadValue, v)
}
