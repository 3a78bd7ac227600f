package entities

import "github.com/oy3o/dxf"

// Default names that blank text fields revert to.
const (
	DefaultLayer    = "0"
	DefaultLinetype = "BYLAYER"
	ColorByLayer    = 256
)

// Reactors is the {ACAD_REACTORS application group: the handles of the
// objects that react to this one.
var Reactors = &dxf.Schema{
	Kind:            "ACAD_REACTORS",
	Fields:          handle(330, "handle", repeat("handles")),
	Terminator:      dxf.CodeAppGroup,
	TerminatorValue: "}",
}

// XDictionary is the {ACAD_XDICTIONARY application group.
var XDictionary = &dxf.Schema{
	Kind:            "ACAD_XDICTIONARY",
	Fields:          handle(360, "handle"),
	Terminator:      dxf.CodeAppGroup,
	TerminatorValue: "}",
}

func appGroups() []dxf.Marker {
	return []dxf.Marker{
		{Code: dxf.CodeAppGroup, Name: "{ACAD_REACTORS", Since: dxf.R14, Nested: Reactors, Slot: "reactors"},
		{Code: dxf.CodeAppGroup, Name: "{ACAD_XDICTIONARY", Since: dxf.R14, Nested: XDictionary, Slot: "xdictionary"},
	}
}

// entityMarkers returns the markers every graphical entity starts with,
// followed by sub.
func entityMarkers(sub ...dxf.Marker) []dxf.Marker {
	out := appGroups()
	out = append(out, subclass("AcDbEntity", dxf.R13))
	return append(out, sub...)
}

// entityHead returns the handle, owner and AcDbEntity fields. R12 writers
// put the elevation in code 38; kinds introduced later have no such field.
func entityHead(elevation bool) fields {
	out := join(
		handle(dxf.CodeHandle, "handle"),
		in("{ACAD_XDICTIONARY", handle(330, "owner", since(dxf.R13))),
		in("AcDbEntity",
			integer(67, "paperspace"),
			text(8, "layer", blankIs(DefaultLayer), always),
			text(6, "linetype", blankIs(DefaultLinetype)),
			text(347, "material", since(dxf.R2007)),
			integer(62, "color", def(ColorByLayer)),
			integer(370, "lineweight", def(-1), since(dxf.R2000)),
			double(48, "linetype_scale", def(1.0), since(dxf.R13)),
			integer(60, "visibility", since(dxf.R13)),
			integer(420, "true_color", since(dxf.R2004)),
			text(430, "color_name", since(dxf.R2004)),
			integer(440, "transparency", since(dxf.R2004)),
			integer(284, "shadow_mode", since(dxf.R2007)),
		),
	)
	if elevation {
		out = append(out, in("AcDbEntity", double(38, "elevation", until(dxf.R12)))...)
	}
	return out
}

// entityChecks are shared by every graphical entity.
func entityChecks(extra ...dxf.Check) []dxf.Check {
	return append([]dxf.Check{dxf.NonEmpty("layer")}, extra...)
}

// recordMarkers returns the markers of a symbol table record.
func recordMarkers(name string) []dxf.Marker {
	out := appGroups()
	return append(out, subclass("AcDbSymbolTableRecord", dxf.R13), subclass(name, dxf.R13))
}

func recordHead() fields {
	return join(
		handle(dxf.CodeHandle, "handle"),
		in("{ACAD_XDICTIONARY", handle(330, "owner", since(dxf.R13))),
	)
}
