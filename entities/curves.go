package entities

import (
	"math"

	"github.com/oy3o/dxf"
)

var Line = &dxf.Schema{
	Kind:    "LINE",
	Markers: entityMarkers(subclass("AcDbLine", dxf.R13)),
	Fields: join(entityHead(true), in("AcDbLine",
		double(39, "thickness"),
		xyz(10, "start", required),
		xyz(11, "end", required),
		extrusion(),
	)),
	Checks: entityChecks(
		dxf.Check{
			Kind:    dxf.CheckDistinct,
			Fields:  []string{"start_x", "start_y", "start_z"},
			Against: []string{"end_x", "end_y", "end_z"},
			Message: "start point and end point are identical",
		},
	),
}

var Point = &dxf.Schema{
	Kind:    "POINT",
	Markers: entityMarkers(subclass("AcDbPoint", dxf.R13)),
	Fields: join(entityHead(true), in("AcDbPoint",
		xyz(10, "location", required),
		double(39, "thickness"),
		extrusion(),
		double(50, "x_axis_angle"),
	)),
	Checks: entityChecks(),
}

func circleFields() fields {
	return in("AcDbCircle",
		double(39, "thickness"),
		xyz(10, "center", required),
		double(40, "radius", required),
		extrusion(),
	)
}

var Circle = &dxf.Schema{
	Kind:    "CIRCLE",
	Markers: entityMarkers(subclass("AcDbCircle", dxf.R13)),
	Fields:  join(entityHead(true), circleFields()),
	Checks:  entityChecks(dxf.NonZero("radius")),
}

var Arc = &dxf.Schema{
	Kind:    "ARC",
	Markers: entityMarkers(subclass("AcDbCircle", dxf.R13), subclass("AcDbArc", dxf.R13)),
	Fields: join(entityHead(true), circleFields(), in("AcDbArc",
		double(50, "start_angle", required),
		double(51, "end_angle", required),
	)),
	Checks: entityChecks(
		dxf.NonZero("radius"),
		dxf.Check{
			Kind:    dxf.CheckDistinct,
			Fields:  []string{"start_angle"},
			Against: []string{"end_angle"},
			Message: "start angle and end angle are identical",
		},
	),
}

var Ellipse = &dxf.Schema{
	Kind:    "ELLIPSE",
	Markers: entityMarkers(subclass("AcDbEllipse", dxf.R13)),
	Fields: join(entityHead(false), in("AcDbEllipse",
		xyz(10, "center", required),
		xyz(11, "major_axis", required),
		extrusion(),
		double(40, "ratio", def(1.0), required),
		double(41, "start_param"),
		double(42, "end_param", def(2*math.Pi)),
	)),
	Checks: entityChecks(
		dxf.InRange("ratio", 1e-6, 1),
		dxf.Check{
			Kind:    dxf.CheckDistinct,
			Fields:  []string{"start_param"},
			Against: []string{"end_param"},
			Message: "start parameter and end parameter are identical",
		},
	),
}
