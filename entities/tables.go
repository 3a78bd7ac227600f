package entities

import "github.com/oy3o/dxf"

// Attrib is an attribute value attached to an INSERT.
var Attrib = &dxf.Schema{
	Kind:    "ATTRIB",
	Markers: entityMarkers(subclass("AcDbText", dxf.R13), subclass("AcDbAttribute", dxf.R13)),
	Fields: join(entityHead(false),
		in("AcDbText",
			double(39, "thickness"),
			xyz(10, "start", required),
			double(40, "height", required),
			text(1, "value", always),
			double(50, "rotation"),
			double(41, "scale_x", def(1.0)),
			double(51, "oblique"),
			text(7, "style", blankIs("STANDARD")),
			integer(71, "generation"),
			integer(72, "halign"),
			xyz(11, "align"),
			extrusion(),
		),
		in("AcDbAttribute",
			text(2, "tag", required),
			flags(70, "flags"),
			integer(73, "field_length"),
			integer(74, "valign"),
		),
	),
	Checks: entityChecks(dxf.NonEmpty("tag"), dxf.NonZero("height")),
}

// Insert is a block reference. Its attributes are ATTRIB records that
// follow it, closed by SEQEND; code 66 tells whether they are present.
var Insert = &dxf.Schema{
	Kind:    "INSERT",
	Markers: entityMarkers(subclass("AcDbBlockReference", dxf.R13)),
	Fields: join(entityHead(true), in("AcDbBlockReference",
		integer(66, "attributes_follow"),
		text(2, "block", required),
		xyz(10, "insertion", required),
		double(41, "scale_x", def(1.0)),
		double(42, "scale_y", def(1.0)),
		double(43, "scale_z", def(1.0)),
		double(50, "rotation"),
		integer(70, "columns", def(1)),
		integer(71, "rows", def(1)),
		double(44, "column_spacing"),
		double(45, "row_spacing"),
		extrusion(),
	)),
	Follows: &dxf.Run{Members: []*dxf.Schema{Attrib}, End: Seqend, Slot: "attributes", When: "attributes_follow"},
	Checks: entityChecks(
		dxf.NonEmpty("block"),
		dxf.NonZero("scale_x"),
		dxf.NonZero("scale_y"),
		dxf.NonZero("scale_z"),
	),
}

// Standard flag bits of symbol table records (code 70).
const (
	RecordXRefDependent dxf.Flags = 16
	RecordXRefResolved  dxf.Flags = 32
	RecordReferenced    dxf.Flags = 64
)

var AppID = &dxf.Schema{
	Kind:    "APPID",
	Markers: recordMarkers("AcDbRegAppTableRecord"),
	Fields: join(recordHead(), in("AcDbRegAppTableRecord",
		text(2, "name", required),
		flags(70, "flags"),
	)),
	Checks: []dxf.Check{dxf.NonEmpty("name")},
}

var BlockRecord = &dxf.Schema{
	Kind:    "BLOCK_RECORD",
	Markers: recordMarkers("AcDbBlockTableRecord"),
	Fields: join(recordHead(), in("AcDbBlockTableRecord",
		text(2, "name", required),
		handle(340, "layout", since(dxf.R2000)),
		integer(70, "insert_units", since(dxf.R2007)),
		integer(280, "explodable", def(1), since(dxf.R2007)),
		integer(281, "scalable", def(1), since(dxf.R2007)),
	)),
	Checks: []dxf.Check{dxf.NonEmpty("name")},
}

// Layer flag bits (code 70).
const (
	LayerFrozen      dxf.Flags = 1
	LayerFrozenNewVP dxf.Flags = 2
	LayerLocked      dxf.Flags = 4
)

const (
	DefaultLayerColor    = 7
	DefaultLayerLinetype = "CONTINUOUS"
)

var Layer = &dxf.Schema{
	Kind:    "LAYER",
	Markers: recordMarkers("AcDbLayerTableRecord"),
	Fields: join(recordHead(), in("AcDbLayerTableRecord",
		text(2, "name", required),
		flags(70, "flags"),
		integer(62, "color", def(DefaultLayerColor), always),
		text(6, "linetype", blankIs(DefaultLayerLinetype), always),
		integer(290, "plot", def(1), since(dxf.R2000)),
		integer(370, "lineweight", def(-3), since(dxf.R2000)),
		handle(390, "plot_style", since(dxf.R2000)),
		handle(347, "material", since(dxf.R2007)),
	)),
	Checks: []dxf.Check{dxf.NonEmpty("name"), dxf.NonEmpty("linetype")},
}
