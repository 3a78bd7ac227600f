package entities_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/entities"
)

func point(e *dxf.Entity, name string, x, y, z float64) *dxf.Entity {
	return e.Set(name+"_x", x).Set(name+"_y", y).Set(name+"_z", z)
}

// samples holds one valid entity per built-in schema.
func samples() map[*dxf.Schema]*dxf.Entity {
	spline := point(dxf.NewEntity("SPLINE").Set("layer", "CURVES").Set("degree", 2).Set("handle", dxf.Handle(0xA1)), "start_tangent", 1, 0, 0)
	for _, k := range []float64{0, 0, 0, 1, 1, 1} {
		spline.AddUnit("knots", dxf.Unit{"knot": k})
	}
	for _, p := range [][2]float64{{0, 0}, {1, 2}, {2, 0}} {
		spline.AddUnit("control", dxf.Unit{"control_x": p[0], "control_y": p[1], "control_z": 0.0})
		spline.AddUnit("weights", dxf.Unit{"weight": 1.0})
	}
	spline.AddUnit("fit", dxf.Unit{"fit_x": 0.5, "fit_y": 0.75, "fit_z": 0.0})

	curve := dxf.NewEntity("AcDbSpline").Set("degree", 3)
	for _, k := range []float64{0, 0, 0, 0, 1, 1, 1, 1} {
		curve.AddUnit("knots", dxf.Unit{"knot": k})
	}
	for i := 0; i < 4; i++ {
		curve.AddUnit("control", dxf.Unit{"control_x": float64(i), "control_y": 1.0, "control_z": float64(i) / 4})
	}

	lw := dxf.NewEntity("LWPOLYLINE").Set("layer", "0").Set("constant_width", 0.25).Set("elevation", 3.0)
	for _, p := range [][2]float64{{0, 0}, {5, 0}, {5, 5}} {
		lw.AddUnit("vertices", dxf.Unit{"vertex_x": p[0], "vertex_y": p[1], "start_width": 0.125})
	}

	edge := dxf.NewEntity("EDGE_PATH").
		AddChild("edges", dxf.NewEntity("ELLIPSE_EDGE").
			Set("center_x", 0.0).Set("center_y", 0.0).
			Set("major_axis_x", 2.0).Set("ratio", 0.5)).
		AddChild("edges", dxf.NewEntity("SPLINE_EDGE").
			AddUnit("knots", dxf.Unit{"knot": 0.0}).
			AddUnit("knots", dxf.Unit{"knot": 1.0}).
			AddUnit("control", dxf.Unit{"control_x": 0.0, "control_y": 0.0}).
			AddUnit("control", dxf.Unit{"control_x": 1.0, "control_y": 1.0}))

	attrib := point(dxf.NewEntity("ATTRIB").Set("layer", "0").Set("tag", "WIDTH").Set("value", "900").
		Set("height", 0.25).Set("valign", 2), "start", 4, 4, 0)

	poly := dxf.NewEntity("POLYLINE").Set("layer", "0").Set("flags", entities.PolylineClosed)
	for _, p := range [][2]float64{{0, 0}, {2, 0}, {2, 1}} {
		poly.AddChild("vertices", point(dxf.NewEntity("VERTEX").Set("layer", "0"), "location", p[0], p[1], 0))
	}

	return map[*dxf.Schema]*dxf.Entity{
		entities.Line: point(point(dxf.NewEntity("LINE").Set("layer", "0").Set("color", 1), "start", 0, 0, 0), "end", 10, 5, 0).
			Set("thickness", 0.5),
		entities.Point: point(dxf.NewEntity("POINT").Set("layer", "MARKS").Set("x_axis_angle", 90.0), "location", 1, 2, 3),
		entities.Circle: point(dxf.NewEntity("CIRCLE").Set("layer", "0").Set("radius", 2.5).Set("linetype", "DASHED"), "center", 1, 1, 0),
		entities.Arc: point(dxf.NewEntity("ARC").Set("layer", "0").Set("radius", 1.0).
			Set("start_angle", 0.0).Set("end_angle", 90.0).Set("true_color", 0xFF0000), "center", 0, 0, 0),
		entities.Ellipse: point(point(dxf.NewEntity("ELLIPSE").Set("layer", "0").Set("ratio", 0.5), "center", 0, 0, 0), "major_axis", 3, 0, 0),
		entities.LWPolyline: lw,
		entities.Spline:     spline,
		entities.Helix:      dxf.NewEntity("HELIX").Set("layer", "0").Set("turns", 3.0).Set("radius", 2.0).AddChild("spline", curve),
		entities.Hatch: dxf.NewEntity("HATCH").Set("layer", "0").Set("pattern", "SOLID").Set("solid", 1).
			AddChild("paths", edge).
			AddUnit("seeds", dxf.Unit{"seed_x": 0.5, "seed_y": 0.5}),
		entities.Insert: point(dxf.NewEntity("INSERT").Set("layer", "0").Set("block", "DOOR").Set("rotation", 45.0).
			Set("scale_x", 2.0), "insertion", 4, 4, 0).AddChild("attributes", attrib),
		entities.Attrib:   attrib.Clone(),
		entities.Polyline: poly,
		entities.Vertex:   point(dxf.NewEntity("VERTEX").Set("layer", "0").Set("bulge", 0.5), "location", 1, 2, 0),
		entities.Seqend:   dxf.NewEntity("SEQEND").Set("layer", "0"),
		entities.AppID:       dxf.NewEntity("APPID").Set("name", "ACAD").Set("handle", dxf.Handle(0x12)),
		entities.BlockRecord: dxf.NewEntity("BLOCK_RECORD").Set("name", "*Model_Space").Set("layout", dxf.Handle(0x1E)),
		entities.Layer: dxf.NewEntity("LAYER").Set("name", "WALLS").Set("color", 3).
			Set("flags", entities.LayerFrozen).Set("plot_style", dxf.Handle(0xF)),
	}
}

func TestSchemasRoundTrip(t *testing.T) {
	all := samples()
	require.Len(t, all, len(entities.All()), "one sample per schema")

	for _, v := range []dxf.Version{dxf.R12, dxf.R2000, dxf.R2010, dxf.Latest} {
		for s, e := range all {
			t.Run(s.Kind+"@"+v.String(), func(t *testing.T) {
				data, err := dxf.MarshalRecord(e, s, v)
				require.NoError(t, err)
				got, diags, err := dxf.UnmarshalRecord(data, s, v)
				require.NoError(t, err, "stream:\n%s", data)
				for _, d := range diags {
					assert.Equal(t, dxf.AmbiguousCode, d.Kind, "%v", d)
				}

				want, err := dxf.Normalize(e, s)
				require.NoError(t, err)
				if diff := cmp.Diff(gated(want, s, v), gated(got, s, v)); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s\nstream:\n%s", diff, data)
				}

				_, err = dxf.Validate(got, s, v)
				assert.NoError(t, err)
			})
		}
	}
}

// gated drops the top-level fields and nested sub-records a version does
// not write, so that values lost to version gating do not count as
// differences.
func gated(e *dxf.Entity, s *dxf.Schema, v dxf.Version) *dxf.Entity {
	out := e.Clone()
	for i := range s.Fields {
		if !s.Fields[i].AppliesTo(v) {
			delete(out.Fields, s.Fields[i].Name)
		}
	}
	for i := range s.Markers {
		if m := &s.Markers[i]; m.Nested != nil && !m.Expected(v) {
			delete(out.Children, m.SlotName())
		}
	}
	if len(out.Children) == 0 {
		out.Children = nil
	}
	return out
}

func TestRegistry(t *testing.T) {
	reg := entities.Registry()
	assert.Same(t, reg, entities.Registry(), "built once")
	assert.Equal(t, len(entities.All()), reg.Len())
	for _, s := range entities.All() {
		got, err := reg.Resolve(s.Kind)
		require.NoError(t, err)
		assert.Same(t, s, got)
	}
}

func TestPolylinePathCases(t *testing.T) {
	sel := entities.Hatch.Field("path_type")
	require.NotNil(t, sel)
	assert.Same(t, entities.EdgePath, sel.DefaultCase)
	for key, c := range sel.Cases {
		assert.Same(t, entities.PolylinePath, c, key)
	}
	assert.Same(t, entities.PolylinePath, sel.Cases["18"], "outermost polyline")
	assert.NotContains(t, sel.Cases, "17")
}

func TestCoordinateHelpers(t *testing.T) {
	start := entities.Line.Field("start_z")
	require.NotNil(t, start)
	assert.False(t, start.Required)
	assert.True(t, start.Always)
	assert.True(t, entities.Line.Field("start_x").Required)

	vy := entities.LWPolyline.Field("vertex_y")
	require.NotNil(t, vy)
	assert.Equal(t, dxf.RoleRepeatMember, vy.Role)
	assert.Equal(t, "vertices", vy.Group)

	ext := entities.Circle.Field("extrusion_z")
	require.NotNil(t, ext)
	assert.Equal(t, 1.0, ext.Default)
}

func TestOwnedRunTables(t *testing.T) {
	require.NotNil(t, entities.Polyline.Follows)
	assert.Same(t, entities.Seqend, entities.Polyline.Follows.End)
	assert.Equal(t, []*dxf.Schema{entities.Vertex}, entities.Polyline.Follows.Members)
	assert.Empty(t, entities.Polyline.Follows.When, "vertices always follow")

	require.NotNil(t, entities.Insert.Follows)
	assert.Equal(t, "attributes_follow", entities.Insert.Follows.When)
	assert.Equal(t, "end", entities.Insert.Follows.EndSlotName())

	sw := entities.LWPolyline.Field("start_width")
	require.NotNil(t, sw)
	assert.Equal(t, "constant_width", sw.DefaultFrom)
	assert.Equal(t, "constant_width", entities.LWPolyline.Field("end_width").DefaultFrom)
}
