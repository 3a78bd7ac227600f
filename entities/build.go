// Package entities holds the built-in schemas for common DXF entities and
// table records. The tables are plain data; all behavior lives in package
// dxf.
package entities

import "github.com/oy3o/dxf"

type mod func(*dxf.FieldDescriptor)

type fields = []dxf.FieldDescriptor

func def(v any) mod               { return func(d *dxf.FieldDescriptor) { d.Default = v } }
func since(v dxf.Version) mod     { return func(d *dxf.FieldDescriptor) { d.Since = v } }
func until(v dxf.Version) mod     { return func(d *dxf.FieldDescriptor) { d.Until = v } }
func always(d *dxf.FieldDescriptor)   { d.Always = true }
func required(d *dxf.FieldDescriptor) { d.Required = true }
func blankIs(s string) mod {
	return func(d *dxf.FieldDescriptor) { d.Default, d.DefaultIfBlank = s, s }
}

// repeat makes the field the leading code of group.
func repeat(group string) mod {
	return func(d *dxf.FieldDescriptor) { d.Role, d.Group = dxf.RoleRepeatStart, group }
}

// member binds the field into the open unit of group.
func member(group string) mod {
	return func(d *dxf.FieldDescriptor) { d.Role, d.Group = dxf.RoleRepeatMember, group }
}

// like makes a repeat member default to the value of a record scalar.
func like(scalar string) mod {
	return func(d *dxf.FieldDescriptor) { d.DefaultFrom = scalar }
}

// counts marks the field as the derived length of a group or child slot.
func counts(group string) mod {
	return func(d *dxf.FieldDescriptor) { d.Role, d.Group = dxf.RoleCount, group }
}

// selector opens a child in slot whose grammar is picked by the value.
func selector(code int, name string, kind dxf.FieldKind, slot string, fallback *dxf.Schema, cases map[string]*dxf.Schema) fields {
	return fields{{
		Code:        code,
		Name:        name,
		Kind:        kind,
		Role:        dxf.RoleSelector,
		Group:       slot,
		Cases:       cases,
		DefaultCase: fallback,
	}}
}

func field(code int, name string, kind dxf.FieldKind, mods ...mod) fields {
	d := dxf.FieldDescriptor{Code: code, Name: name, Kind: kind}
	for _, m := range mods {
		m(&d)
	}
	return fields{d}
}

func double(code int, name string, mods ...mod) fields {
	return field(code, name, dxf.KindReal, mods...)
}

func integer(code int, name string, mods ...mod) fields {
	return field(code, name, dxf.KindInteger, mods...)
}

func text(code int, name string, mods ...mod) fields {
	return field(code, name, dxf.KindText, mods...)
}

func flags(code int, name string, mods ...mod) fields {
	return field(code, name, dxf.KindFlags, mods...)
}

func handle(code int, name string, mods ...mod) fields {
	return field(code, name, dxf.KindHandle, mods...)
}

// xyz returns the three coordinate fields at base, base+10 and base+20.
// Mods apply to all three; the Y and Z members of a repeat group are
// turned into members of the same group.
func xyz(base int, name string, mods ...mod) fields {
	return coords(base, name, "xyz", mods...)
}

func xy(base int, name string, mods ...mod) fields {
	return coords(base, name, "xy", mods...)
}

func coords(base int, name, axes string, mods ...mod) fields {
	var out fields
	for i, axis := range axes {
		d := field(base+10*i, name+"_"+string(axis), dxf.KindReal, mods...)[0]
		if i > 0 && d.Role == dxf.RoleRepeatStart {
			d.Role = dxf.RoleRepeatMember
			d.Always = true
		}
		// Planar callers may leave Z out; it is still written.
		if axis == 'z' && d.Required {
			d.Required, d.Always = false, true
		}
		out = append(out, d)
	}
	return out
}

// extrusion is the 210/220/230 normal vector, defaulting to +Z.
func extrusion() fields {
	out := xyz(210, "extrusion")
	out[2].Default = 1.0
	return out
}

// in concatenates parts and writes them after the named marker.
func in(section string, parts ...fields) fields {
	var out fields
	for _, p := range parts {
		for _, d := range p {
			d.Section = section
			out = append(out, d)
		}
	}
	return out
}

func join(parts ...fields) fields {
	var out fields
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func subclass(name string, v dxf.Version) dxf.Marker {
	return dxf.Marker{Code: dxf.CodeSubclass, Name: name, Since: v}
}
