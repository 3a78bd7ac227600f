package entities

import "github.com/oy3o/dxf"

// Polyline flag bits (code 70).
const (
	PolylineClosed    dxf.Flags = 1
	PolylineCurveFit  dxf.Flags = 2
	PolylineSplineFit dxf.Flags = 4
	Polyline3D        dxf.Flags = 8
	PolylineMesh      dxf.Flags = 16
	PolylinePlinegen  dxf.Flags = 128
)

// LWPolyline is the lightweight polyline. Its vertices form the repeat
// group "vertices". A vertex's widths default to the constant width and
// are written as a pair only when one of them differs from it.
var LWPolyline = &dxf.Schema{
	Kind:    "LWPOLYLINE",
	Markers: entityMarkers(subclass("AcDbPolyline", dxf.R13)),
	Fields: join(entityHead(false), in("AcDbPolyline",
		integer(90, "vertex_count", counts("vertices")),
		flags(70, "flags"),
		double(43, "constant_width"),
		double(38, "elevation"),
		double(39, "thickness"),
		xy(10, "vertex", repeat("vertices")),
		integer(91, "vertex_id", member("vertices"), since(dxf.R2010)),
		double(40, "start_width", member("vertices"), like("constant_width")),
		double(41, "end_width", member("vertices"), like("constant_width")),
		double(42, "bulge", member("vertices")),
		extrusion(),
	)),
	Checks: entityChecks(dxf.InRange("constant_width", 0, 1e308)),
}

// Vertex flag bits (code 70).
const (
	VertexExtra      dxf.Flags = 1
	VertexTangent    dxf.Flags = 2
	VertexSplineFit  dxf.Flags = 8
	VertexSplineCtrl dxf.Flags = 16
	Vertex3D         dxf.Flags = 32
)

// Vertex is one vertex record of a POLYLINE.
var Vertex = &dxf.Schema{
	Kind:    "VERTEX",
	Markers: entityMarkers(subclass("AcDbVertex", dxf.R13), subclass("AcDb2dVertex", dxf.R13)),
	Fields: join(entityHead(false), in("AcDb2dVertex",
		xyz(10, "location", required),
		double(40, "start_width"),
		double(41, "end_width"),
		double(42, "bulge"),
		flags(70, "flags"),
		double(50, "tangent"),
	)),
	Checks: entityChecks(),
}

// Seqend closes the records owned by a POLYLINE or an INSERT.
var Seqend = &dxf.Schema{
	Kind:    "SEQEND",
	Markers: entityMarkers(),
	Fields:  entityHead(true),
	Checks:  entityChecks(),
}

// Polyline is the heavy polyline: its vertices are VERTEX records that
// follow it, closed by SEQEND. The elevation is the Z of the origin point,
// whose X and Y are always zero.
var Polyline = &dxf.Schema{
	Kind:    "POLYLINE",
	Markers: entityMarkers(subclass("AcDb2dPolyline", dxf.R13)),
	Fields: join(entityHead(false), in("AcDb2dPolyline",
		integer(66, "vertices_follow", def(1), always),
		xyz(10, "origin", always),
		double(39, "thickness"),
		flags(70, "flags"),
		double(40, "start_width"),
		double(41, "end_width"),
		integer(71, "mesh_m"),
		integer(72, "mesh_n"),
		integer(73, "density_m"),
		integer(74, "density_n"),
		integer(75, "surface_type"),
		extrusion(),
	)),
	Follows: &dxf.Run{Members: []*dxf.Schema{Vertex}, End: Seqend, Slot: "vertices"},
	Checks:  entityChecks(),
}
