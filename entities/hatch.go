package entities

import (
	"strconv"

	"github.com/oy3o/dxf"
)

// Boundary path type bits (code 92).
const (
	PathExternal  dxf.Flags = 1
	PathPolyline  dxf.Flags = 2
	PathDerived   dxf.Flags = 4
	PathTextbox   dxf.Flags = 8
	PathOutermost dxf.Flags = 16
)

// Edge types (code 72 of an edge boundary path).
const (
	EdgeLine    = 1
	EdgeArc     = 2
	EdgeEllipse = 3
	EdgeSpline  = 4
)

var LineEdge = &dxf.Schema{
	Kind:   "LINE_EDGE",
	Fields: join(xy(10, "start"), xy(11, "end")),
	Checks: []dxf.Check{{
		Kind:    dxf.CheckDistinct,
		Fields:  []string{"start_x", "start_y"},
		Against: []string{"end_x", "end_y"},
		Message: "edge start and end are identical",
	}},
}

var ArcEdge = &dxf.Schema{
	Kind: "ARC_EDGE",
	Fields: join(
		xy(10, "center"),
		double(40, "radius"),
		double(50, "start_angle"),
		double(51, "end_angle", def(360.0)),
		integer(73, "ccw", def(1)),
	),
	Checks: []dxf.Check{dxf.NonZero("radius")},
}

var EllipseEdge = &dxf.Schema{
	Kind: "ELLIPSE_EDGE",
	Fields: join(
		xy(10, "center"),
		xy(11, "major_axis"),
		double(40, "ratio", def(1.0)),
		double(50, "start_angle"),
		double(51, "end_angle", def(360.0)),
		integer(73, "ccw", def(1)),
	),
	Checks: []dxf.Check{dxf.InRange("ratio", 1e-6, 1)},
}

var SplineEdge = &dxf.Schema{
	Kind: "SPLINE_EDGE",
	Fields: join(
		integer(94, "degree", def(3)),
		integer(73, "rational"),
		integer(74, "periodic"),
		integer(95, "knot_count", counts("knots")),
		integer(96, "control_count", counts("control")),
		double(40, "knot", repeat("knots")),
		xy(10, "control", repeat("control")),
		double(42, "weight", repeat("weights"), def(1.0)),
	),
	Pairs: [][2]string{{"control", "weights"}},
}

// sources are the handles of the objects a boundary path was derived from.
func sources() fields {
	return join(
		integer(97, "source_count", counts("sources")),
		handle(330, "source", repeat("sources")),
	)
}

// EdgePath is a boundary path made of edges. Each 72 opens a new edge
// whose grammar depends on the edge type.
var EdgePath = &dxf.Schema{
	Kind: "EDGE_PATH",
	Fields: join(
		integer(93, "edge_count", counts("edges")),
		selector(72, "edge_type", dxf.KindInteger, "edges", nil, map[string]*dxf.Schema{
			strconv.Itoa(EdgeLine):    LineEdge,
			strconv.Itoa(EdgeArc):     ArcEdge,
			strconv.Itoa(EdgeEllipse): EllipseEdge,
			strconv.Itoa(EdgeSpline):  SplineEdge,
		}),
		sources(),
	),
}

// PolylinePath is a boundary path given as a polyline.
var PolylinePath = &dxf.Schema{
	Kind: "POLYLINE_PATH",
	Fields: join(
		integer(72, "has_bulge"),
		integer(73, "closed", def(1)),
		integer(93, "vertex_count", counts("vertices")),
		xy(10, "vertex", repeat("vertices")),
		double(42, "bulge", member("vertices")),
		sources(),
	),
}

// polylinePathCases maps every path type with the polyline bit set to
// PolylinePath; the others fall back to EdgePath.
func polylinePathCases() map[string]*dxf.Schema {
	out := make(map[string]*dxf.Schema)
	for v := dxf.Flags(0); v < 256; v++ {
		if v.Has(PathPolyline) {
			out[strconv.FormatUint(uint64(v), 10)] = PolylinePath
		}
	}
	return out
}

// PatternLine is one line of a hatch pattern definition.
var PatternLine = &dxf.Schema{
	Kind: "PATTERN_LINE",
	Fields: join(
		double(43, "base_x"),
		double(44, "base_y"),
		double(45, "offset_x"),
		double(46, "offset_y"),
		integer(79, "dash_count", counts("dashes")),
		double(49, "dash", repeat("dashes")),
	),
}

// Hatch owns boundary paths, which own edges. Codes 10 and 20 are shared
// by the elevation point and the seed points; they are told apart by
// position.
var Hatch = &dxf.Schema{
	Kind:    "HATCH",
	Markers: entityMarkers(subclass("AcDbHatch", dxf.R13)),
	Fields: join(entityHead(false), in("AcDbHatch",
		xyz(10, "elevation"),
		extrusion(),
		text(2, "pattern", required),
		integer(70, "solid"),
		integer(71, "associative"),
		integer(91, "path_count", counts("paths")),
		selector(92, "path_type", dxf.KindFlags, "paths", EdgePath, polylinePathCases()),
		integer(75, "style"),
		integer(76, "pattern_type", def(1)),
		double(52, "pattern_angle"),
		double(41, "pattern_scale", def(1.0)),
		integer(77, "pattern_double"),
		integer(78, "pattern_line_count", counts("pattern_lines")),
		selector(53, "angle", dxf.KindReal, "pattern_lines", PatternLine, nil),
		double(47, "pixel_size"),
		integer(98, "seed_count", counts("seeds")),
		xy(10, "seed", repeat("seeds")),
	)),
	Checks: entityChecks(dxf.NonEmpty("pattern")),
}
