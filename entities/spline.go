package entities

import "github.com/oy3o/dxf"

// Spline flag bits (code 70).
const (
	SplineClosed   dxf.Flags = 1
	SplinePeriodic dxf.Flags = 2
	SplineRational dxf.Flags = 4
	SplinePlanar   dxf.Flags = 8
	SplineLinear   dxf.Flags = 16
)

// splineFields are the AcDbSpline fields, shared by SPLINE and the curve
// embedded in HELIX. Knots, weights, control points and fit points are four
// independently indexed repeat groups; weights are paired with control
// points but may be omitted.
func splineFields(section string) fields {
	return in(section,
		extrusion(),
		flags(70, "flags"),
		integer(71, "degree", def(3)),
		integer(72, "knot_count", counts("knots")),
		integer(73, "control_count", counts("control")),
		integer(74, "fit_count", counts("fit")),
		double(42, "knot_tolerance", def(1e-10)),
		double(43, "control_tolerance", def(1e-10)),
		double(44, "fit_tolerance", def(1e-10)),
		xyz(12, "start_tangent"),
		xyz(13, "end_tangent"),
		double(40, "knot", repeat("knots")),
		double(41, "weight", repeat("weights"), def(1.0)),
		xyz(10, "control", repeat("control")),
		xyz(11, "fit", repeat("fit")),
	)
}

var splinePairs = [][2]string{{"control", "weights"}}

var Spline = &dxf.Schema{
	Kind:    "SPLINE",
	Markers: entityMarkers(subclass("AcDbSpline", dxf.R13)),
	Fields:  join(entityHead(true), splineFields("AcDbSpline")),
	Pairs:   splinePairs,
	Checks:  entityChecks(dxf.InRange("degree", 1, 25)),
}

// HelixCurve is the spline sub-record a HELIX embeds after its AcDbSpline
// marker. It ends where the AcDbHelix marker begins.
var HelixCurve = &dxf.Schema{
	Kind:   "AcDbSpline",
	Fields: splineFields(""),
	Pairs:  splinePairs,
	Checks: []dxf.Check{dxf.InRange("degree", 1, 25)},
}

var Helix = &dxf.Schema{
	Kind: "HELIX",
	Markers: entityMarkers(
		dxf.Marker{Code: dxf.CodeSubclass, Name: "AcDbSpline", Since: dxf.R13, Nested: HelixCurve, Slot: "spline"},
		subclass("AcDbHelix", dxf.R13),
	),
	Fields: join(entityHead(false), in("AcDbHelix",
		integer(90, "major_release", def(29)),
		integer(91, "maintenance_release", def(63)),
		xyz(10, "axis_base"),
		xyz(11, "start"),
		func() fields {
			v := xyz(12, "axis_vector")
			v[2].Default = 1.0
			return v
		}(),
		double(40, "radius", def(1.0)),
		double(41, "turns", def(1.0)),
		double(42, "turn_height", def(1.0)),
		integer(290, "handedness", def(1)),
		integer(280, "constraint"),
	)),
	Checks: entityChecks(dxf.NonZero("radius")),
}
