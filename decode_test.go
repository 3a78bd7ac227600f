package dxf_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/entities"
)

// roundTrip encodes e, decodes the result and checks that it matches the
// normalized input.
func roundTrip(t *testing.T, e *dxf.Entity, s *dxf.Schema, v dxf.Version) (*dxf.Entity, dxf.Diagnostics, []byte) {
	t.Helper()
	data, err := dxf.MarshalRecord(e, s, v)
	require.NoError(t, err)
	got, diags, err := dxf.UnmarshalRecord(data, s, v)
	require.NoError(t, err, "stream:\n%s", data)

	want, err := dxf.Normalize(e, s)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\nstream:\n%s", diff, data)
	}
	return got, diags, data
}

func polyline() *dxf.Entity {
	return dxf.NewEntity("LWPOLYLINE").
		Set("layer", "WALLS").
		Set("flags", entities.PolylineClosed).
		AddUnit("vertices", dxf.Unit{"vertex_x": 0.0, "vertex_y": 0.0}).
		AddUnit("vertices", dxf.Unit{"vertex_x": 1.0, "vertex_y": 0.0, "bulge": 0.5}).
		AddUnit("vertices", dxf.Unit{"vertex_x": 1.0, "vertex_y": 1.0})
}

func TestRepeatGroupRoundTrip(t *testing.T) {
	got, diags, data := roundTrip(t, polyline(), entities.LWPolyline, dxf.R2000)
	assert.Empty(t, diags)

	units := got.Groups["vertices"]
	require.Len(t, units, 3)
	assert.Equal(t, 0.5, units[1]["bulge"])
	assert.Equal(t, 0.0, units[2]["bulge"], "absent members take their default")
	assert.Equal(t, entities.PolylineClosed, got.Fields["flags"])
	assert.Contains(t, string(data), " 90\n3\n", "the vertex count is derived")
	assert.Equal(t, 1, strings.Count(string(data), " 42\n"), "default bulges are not written")
}

func TestUnitBoundaries(t *testing.T) {
	// A member before any leading code opens a unit, and a repeated leading
	// code closes the open unit even when members are missing.
	src := dxf.NewTokens(
		dxf.Token{Code: 0, Value: "LWPOLYLINE"},
		dxf.Token{Code: 8, Value: "0"},
		dxf.Token{Code: 20, Value: "9"},
		dxf.Token{Code: 10, Value: "1"},
		dxf.Token{Code: 10, Value: "2"},
		dxf.Token{Code: 10, Value: "5"},
		dxf.Token{Code: 20, Value: "3"},
		dxf.Token{Code: 0, Value: "EOF"},
	)
	e, diags, err := dxf.Decode(src, entities.LWPolyline, dxf.R2000)
	require.NoError(t, err)
	assert.Empty(t, diags)

	units := e.Groups["vertices"]
	require.Len(t, units, 3)
	assert.Equal(t, 9.0, units[0]["vertex_y"])
	assert.Equal(t, 1.0, units[0]["vertex_x"])
	assert.Equal(t, 2.0, units[1]["vertex_x"])
	assert.Equal(t, 0.0, units[1]["vertex_y"])
	assert.Equal(t, dxf.Unit{"vertex_x": 5.0, "vertex_y": 3.0, "vertex_id": int64(0), "start_width": 0.0, "end_width": 0.0, "bulge": 0.0}, units[2])

	// The sentinel is left for the next record.
	assert.Equal(t, []dxf.Token{{Code: 0, Value: "EOF", Line: 15}}, src.Remaining())
}

func line(x1, y1, x2, y2 float64) *dxf.Entity {
	return dxf.NewEntity("LINE").
		Set("layer", "0").
		Set("start_x", x1).Set("start_y", y1).
		Set("end_x", x2).Set("end_y", y2)
}

func TestVersionGating(t *testing.T) {
	e := line(0, 0, 1, 1).Set("lineweight", 13).Set("elevation", 2.5)

	r12, err := dxf.MarshalRecord(e, entities.Line, dxf.R12)
	require.NoError(t, err)
	assert.NotContains(t, string(r12), "AcDbEntity")
	assert.NotContains(t, string(r12), "370\n")
	assert.Contains(t, string(r12), " 38\n2.500000\n")

	r2000, err := dxf.MarshalRecord(e, entities.Line, dxf.R2000)
	require.NoError(t, err)
	assert.Contains(t, string(r2000), "100\nAcDbEntity\n")
	assert.Contains(t, string(r2000), "370\n13\n")
	assert.NotContains(t, string(r2000), " 38\n")

	t.Run("out of version field is kept", func(t *testing.T) {
		got, diags, err := dxf.UnmarshalRecord(r2000, entities.Line, dxf.R12)
		require.NoError(t, err)
		assert.Equal(t, int64(13), got.Fields["lineweight"])
		assert.True(t, diags.Has(dxf.OutOfVersion))
		assert.Equal(t, 2, diags.Count(dxf.UnexpectedSubclass), "AcDbEntity and AcDbLine")
	})
	t.Run("older stream at newer version", func(t *testing.T) {
		got, diags, err := dxf.UnmarshalRecord(r12, entities.Line, dxf.R2000)
		require.NoError(t, err)
		assert.Equal(t, 2.5, got.Fields["elevation"])
		assert.True(t, diags.Has(dxf.OutOfVersion))
		assert.Equal(t, int64(-1), got.Fields["lineweight"], "backfilled default")
	})
}

func TestDefaultOmission(t *testing.T) {
	plain, err := dxf.MarshalRecord(line(0, 0, 1, 1).Set("color", entities.ColorByLayer), entities.Line, dxf.R2000)
	require.NoError(t, err)
	assert.NotContains(t, string(plain), " 62\n")
	assert.Contains(t, string(plain), "  8\n0\n", "the layer is always written")
	assert.Contains(t, string(plain), " 30\n0.000000\n", "Z is always written")

	red, err := dxf.MarshalRecord(line(0, 0, 1, 1).Set("color", 1), entities.Line, dxf.R2000)
	require.NoError(t, err)
	assert.Contains(t, string(red), " 62\n1\n")
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		entity *dxf.Entity
		schema *dxf.Schema
		want   error
	}{
		{"missing required", dxf.NewEntity("CIRCLE").Set("center_x", 1.0).Set("center_y", 1.0), entities.Circle, dxf.ErrUnencodable},
		{"wrong type", dxf.NewEntity("CIRCLE").Set("center_x", 1.0).Set("center_y", 1.0).Set("radius", "big"), entities.Circle, dxf.ErrUnencodable},
		{"wrong unit type", polyline().AddUnit("vertices", dxf.Unit{"vertex_x": "left"}), entities.LWPolyline, dxf.ErrUnencodable},
		{"kind mismatch", line(0, 0, 1, 1), entities.Circle, dxf.ErrKindMismatch},
		{"nil entity", nil, entities.Line, dxf.ErrUnencodable},
		{"line break in text", line(0, 0, 1, 1).Set("layer", "A\nB"), entities.Line, dxf.ErrUnencodable},
		{"carriage return in text", line(0, 0, 1, 1).Set("linetype", "DASHED\r"), entities.Line, dxf.ErrUnencodable},
		{"line break in comment", func() *dxf.Entity {
			e := line(0, 0, 1, 1)
			e.Comments = []string{"two\nlines"}
			return e
		}(), entities.Line, dxf.ErrUnencodable},
		{"attribute without tag", dxf.NewEntity("INSERT").Set("block", "DOOR").
			Set("insertion_x", 0.0).Set("insertion_y", 0.0).
			AddChild("attributes", dxf.NewEntity("ATTRIB").Set("height", 1.0).Set("start_x", 0.0).Set("start_y", 0.0)),
			entities.Insert, dxf.ErrUnencodable},
		{"foreign record in run", dxf.NewEntity("POLYLINE").AddChild("vertices", line(0, 0, 1, 1)), entities.Polyline, dxf.ErrUnencodable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := dxf.EncodeTo(&buf, tt.entity, tt.schema, dxf.R2000)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, n)
			assert.Zero(t, buf.Len(), "nothing is written on failure")
		})
	}

	var uv *dxf.UnencodableValueError
	_, err := dxf.MarshalRecord(dxf.NewEntity("CIRCLE").Set("center_x", 1.0).Set("center_y", 1.0), entities.Circle, dxf.R2000)
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "radius", uv.Field)

	_, err = dxf.Normalize(line(0, 0, 1, 1).Set("layer", "A\nB"), entities.Line)
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "layer", uv.Field)
}

func TestWidthsFollowConstantWidth(t *testing.T) {
	e := dxf.NewEntity("LWPOLYLINE").
		Set("layer", "0").
		Set("constant_width", 0.5).
		AddUnit("vertices", dxf.Unit{"vertex_x": 0.0, "vertex_y": 0.0, "start_width": 0.5, "end_width": 0.5}).
		AddUnit("vertices", dxf.Unit{"vertex_x": 1.0, "vertex_y": 0.0, "start_width": 0.5}).
		AddUnit("vertices", dxf.Unit{"vertex_x": 2.0, "vertex_y": 0.0, "end_width": 1.0})

	got, _, data := roundTrip(t, e, entities.LWPolyline, dxf.R2000)
	s := string(data)
	assert.Equal(t, 1, strings.Count(s, " 40\n"), "uniform vertices write no widths")
	assert.Equal(t, 1, strings.Count(s, " 41\n"))
	assert.Contains(t, s, " 40\n0.500000\n 41\n1.000000\n", "widths are written as a pair")

	units := got.Groups["vertices"]
	require.Len(t, units, 3)
	assert.Equal(t, 0.5, units[1]["end_width"], "absent widths take the constant width")
	assert.Equal(t, 1.0, units[2]["end_width"])

	thin, err := dxf.MarshalRecord(polyline(), entities.LWPolyline, dxf.R2000)
	require.NoError(t, err)
	assert.NotContains(t, string(thin), " 40\n")
}

func TestEncodeDoesNotMutate(t *testing.T) {
	e := polyline()
	before := e.Clone()
	_, err := dxf.MarshalRecord(e, entities.LWPolyline, dxf.R2000)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(before, e))
}

func TestNormalize(t *testing.T) {
	e := dxf.NewEntity("LINE").
		Set("layer", "   ").
		Set("linetype", "").
		Set("color", 3).
		Set("start_x", 1).Set("start_y", float32(2)).
		Set("end_x", 3.0).Set("end_y", 4.0)

	n, err := dxf.Normalize(e, entities.Line)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultLayer, n.Fields["layer"])
	assert.Equal(t, entities.DefaultLinetype, n.Fields["linetype"])
	assert.Equal(t, int64(3), n.Fields["color"])
	assert.Equal(t, 1.0, n.Fields["start_x"])
	assert.Equal(t, 2.0, n.Fields["start_y"])
	assert.Equal(t, 0.0, n.Fields["start_z"])
	assert.Equal(t, 1.0, n.Fields["extrusion_z"])
	assert.Equal(t, "   ", e.Fields["layer"], "the input is not modified")

	again, err := dxf.Normalize(n, entities.Line)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(n, again), "Normalize is idempotent")

	_, err = dxf.Normalize(dxf.NewEntity("LINE").Set("color", "red"), entities.Line)
	assert.ErrorIs(t, err, dxf.ErrUnencodable)
}

func helix() *dxf.Entity {
	curve := dxf.NewEntity("AcDbSpline").Set("degree", 3).Set("flags", entities.SplinePlanar)
	for _, k := range []float64{0, 0, 0, 0, 1, 1, 1, 1} {
		curve.AddUnit("knots", dxf.Unit{"knot": k})
	}
	for _, p := range [][3]float64{{1, 0, 0}, {1, 0.5, 0.25}, {0.5, 1, 0.5}, {0, 1, 0.75}} {
		curve.AddUnit("control", dxf.Unit{"control_x": p[0], "control_y": p[1], "control_z": p[2]})
	}
	return dxf.NewEntity("HELIX").
		Set("layer", "0").
		Set("radius", 1.0).
		Set("turns", 2.0).
		Set("start_x", 1.0).
		AddChild("spline", curve)
}

func TestNestedSubRecord(t *testing.T) {
	got, diags, data := roundTrip(t, helix(), entities.Helix, dxf.R2010)
	assert.Empty(t, diags)

	text := string(data)
	assert.Less(t, strings.Index(text, "AcDbSpline"), strings.Index(text, "AcDbHelix"))
	require.Len(t, got.Children["spline"], 1)
	curve := got.Children["spline"][0]
	assert.Len(t, curve.Groups["knots"], 8)
	assert.Len(t, curve.Groups["control"], 4)
	assert.Equal(t, 2.0, got.Fields["turns"], "the helix resumes after its spline")
	assert.Equal(t, 1.0, got.Fields["start_x"])
}

func hatch() *dxf.Entity {
	square := dxf.NewEntity("POLYLINE_PATH").Set("closed", 1)
	for _, p := range [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}} {
		square.AddUnit("vertices", dxf.Unit{"vertex_x": p[0], "vertex_y": p[1]})
	}
	edges := dxf.NewEntity("EDGE_PATH").
		AddChild("edges", dxf.NewEntity("LINE_EDGE").
			Set("start_x", 1.0).Set("start_y", 1.0).Set("end_x", 2.0).Set("end_y", 1.0)).
		AddChild("edges", dxf.NewEntity("ARC_EDGE").
			Set("center_x", 1.5).Set("center_y", 1.0).Set("radius", 0.5).Set("end_angle", 180.0)).
		AddUnit("sources", dxf.Unit{"source": dxf.Handle(0x2F)})
	pattern := dxf.NewEntity("PATTERN_LINE").
		Set("angle", 45.0).
		Set("offset_y", 0.125).
		AddUnit("dashes", dxf.Unit{"dash": 0.5}).
		AddUnit("dashes", dxf.Unit{"dash": -0.25})

	return dxf.NewEntity("HATCH").
		Set("layer", "HATCH").
		Set("pattern", "ANSI31").
		AddChild("paths", square).
		AddChild("paths", edges).
		AddChild("pattern_lines", pattern).
		AddUnit("seeds", dxf.Unit{"seed_x": 2.0, "seed_y": 2.0}).
		AddUnit("seeds", dxf.Unit{"seed_x": 3.0, "seed_y": 3.0})
}

func TestCompositeAndSharedCodes(t *testing.T) {
	got, diags, data := roundTrip(t, hatch(), entities.Hatch, dxf.R2000)
	assert.Equal(t, 4, diags.Count(dxf.AmbiguousCode), "seed codes 10 and 20 twice each")
	assert.Equal(t, len(diags), diags.Count(dxf.AmbiguousCode))
	for _, d := range diags {
		assert.Contains(t, []string{"seed_x", "seed_y"}, d.Field)
	}
	assert.Contains(t, string(data), " 92\n2\n", "polyline paths select with the polyline bit")
	assert.Contains(t, string(data), " 92\n0\n", "edge paths use the fallback grammar")

	paths := got.Children["paths"]
	require.Len(t, paths, 2)
	assert.Equal(t, "POLYLINE_PATH", paths[0].Kind)
	assert.Len(t, paths[0].Groups["vertices"], 4)
	assert.Equal(t, "EDGE_PATH", paths[1].Kind)
	edges := paths[1].Children["edges"]
	require.Len(t, edges, 2)
	assert.Equal(t, "LINE_EDGE", edges[0].Kind)
	assert.Equal(t, "ARC_EDGE", edges[1].Kind)
	assert.Equal(t, int64(entities.EdgeArc), edges[1].Fields["edge_type"])
	assert.Len(t, got.Groups["seeds"], 2)
	assert.Equal(t, 0.0, got.Fields["elevation_x"], "seed points do not leak into the elevation")
}

func TestApplicationGroups(t *testing.T) {
	e := line(0, 0, 1, 0).
		Set("owner", dxf.Handle(0x1F0)).
		AddChild("reactors", dxf.NewEntity("ACAD_REACTORS").
			AddUnit("handles", dxf.Unit{"handle": dxf.Handle(0x1F)}).
			AddUnit("handles", dxf.Unit{"handle": dxf.Handle(0x20)}))

	got, diags, data := roundTrip(t, e, entities.Line, dxf.R2000)
	assert.Empty(t, diags)
	assert.Contains(t, string(data), "102\n{ACAD_REACTORS\n330\n1f\n330\n20\n102\n}\n")
	assert.Equal(t, dxf.Handle(0x1F0), got.Fields["owner"], "330 after the group belongs to the entity")

	t.Run("group stays open until its terminator", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "LINE"},
			dxf.Token{Code: 102, Value: "{ACAD_REACTORS"},
			dxf.Token{Code: 330, Value: "1F"},
			dxf.Token{Code: 5, Value: "2A"},
			dxf.Token{Code: 330, Value: "20"},
			dxf.Token{Code: 102, Value: "}"},
			dxf.Token{Code: 330, Value: "1F0"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		got, diags, err := dxf.Decode(src, entities.Line, dxf.R2000)
		require.NoError(t, err)
		reactors := got.Children["reactors"]
		require.Len(t, reactors, 1)
		assert.Len(t, reactors[0].Groups["handles"], 2)
		assert.Equal(t, dxf.Handle(0x1F0), got.Fields["owner"])
		assert.Equal(t, dxf.Handle(0), got.Fields["handle"], "a code of the entity inside the group is not applied to it")

		require.Len(t, diags, 1)
		assert.Equal(t, dxf.UnknownCode, diags[0].Kind)
		assert.Equal(t, "ACAD_REACTORS", diags[0].Entity)
		assert.Equal(t, 5, diags[0].Code)
	})

	t.Run("unknown group is skipped", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "POINT"},
			dxf.Token{Code: 102, Value: "{MY_APP"},
			dxf.Token{Code: 10, Value: "99"},
			dxf.Token{Code: 102, Value: "}"},
			dxf.Token{Code: 10, Value: "1"},
			dxf.Token{Code: 1001, Value: "ACAD"},
			dxf.Token{Code: 999, Value: "a comment"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		got, diags, err := dxf.Decode(src, entities.Point, dxf.R2000)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Fields["location_x"])
		assert.Equal(t, []string{"a comment"}, got.Comments)
		assert.Equal(t, 1, diags.Count(dxf.UnexpectedSubclass))
		assert.Equal(t, 1, diags.Count(dxf.UnknownCode))
	})
}

func TestStructuralDiagnostics(t *testing.T) {
	t.Run("count mismatch", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "LWPOLYLINE"},
			dxf.Token{Code: 90, Value: "3"},
			dxf.Token{Code: 10, Value: "0"}, dxf.Token{Code: 20, Value: "0"},
			dxf.Token{Code: 10, Value: "1"}, dxf.Token{Code: 20, Value: "1"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		e, diags, err := dxf.Decode(src, entities.LWPolyline, dxf.R2000)
		require.NoError(t, err)
		assert.Len(t, e.Groups["vertices"], 2)
		require.Equal(t, 1, diags.Count(dxf.CountMismatch))
		assert.Equal(t, "vertices", diags[0].Field)
	})
	t.Run("pair mismatch", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "SPLINE"},
			dxf.Token{Code: 41, Value: "1"},
			dxf.Token{Code: 10, Value: "0"}, dxf.Token{Code: 20, Value: "0"}, dxf.Token{Code: 30, Value: "0"},
			dxf.Token{Code: 10, Value: "1"}, dxf.Token{Code: 20, Value: "1"}, dxf.Token{Code: 30, Value: "0"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		_, diags, err := dxf.Decode(src, entities.Spline, dxf.R2000)
		require.NoError(t, err)
		assert.Equal(t, 1, diags.Count(dxf.PairMismatch))
	})
	t.Run("coercion", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "CIRCLE"},
			dxf.Token{Code: 40, Value: "wide"},
			dxf.Token{Code: 62, Value: " 5 "},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		e, diags, err := dxf.Decode(src, entities.Circle, dxf.R2000)
		require.NoError(t, err)
		assert.Equal(t, 0.0, e.Fields["radius"])
		assert.Equal(t, int64(5), e.Fields["color"])
		require.Len(t, diags, 1)
		assert.Equal(t, dxf.FieldCoercion, diags[0].Kind)
		assert.Equal(t, "radius", diags[0].Field)
		assert.Equal(t, 3, diags[0].Line)
	})
}

func TestDecodeErrors(t *testing.T) {
	t.Run("malformed token", func(t *testing.T) {
		r, err := dxf.NewTokenReader(strings.NewReader("  0\nLINE\n  8\n0\nten\n1.0\n"))
		require.NoError(t, err)
		_, _, err = dxf.Decode(r, entities.Line, dxf.R2000)
		var me *dxf.MalformedTokenError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, 5, me.Line)
	})
	t.Run("unterminated", func(t *testing.T) {
		src := dxf.NewTokens(dxf.Token{Code: 0, Value: "LINE"}, dxf.Token{Code: 8, Value: "0"})
		_, _, err := dxf.Decode(src, entities.Line, dxf.R2000)
		assert.ErrorIs(t, err, dxf.ErrUnterminatedRecord)
	})
	t.Run("kind mismatch", func(t *testing.T) {
		src := dxf.NewTokens(dxf.Token{Code: 0, Value: "ARC"}, dxf.Token{Code: 0, Value: "EOF"})
		_, _, err := dxf.Decode(src, entities.Line, dxf.R2000)
		assert.ErrorIs(t, err, dxf.ErrKindMismatch)
	})
	t.Run("trailing data", func(t *testing.T) {
		data, err := dxf.MarshalRecord(line(0, 0, 1, 1), entities.Line, dxf.R2000)
		require.NoError(t, err)
		data = append(data, "  0\nLINE\n"...)
		_, _, err = dxf.UnmarshalRecord(data, entities.Line, dxf.R2000)
		assert.ErrorIs(t, err, dxf.ErrTrailingData)
	})
}

func TestSkip(t *testing.T) {
	src := dxf.NewTokens(
		dxf.Token{Code: 0, Value: "MYSTERY"},
		dxf.Token{Code: 1, Value: "x"},
		dxf.Token{Code: 2, Value: "y"},
		dxf.Token{Code: 0, Value: "EOF"},
	)
	kind, n, err := dxf.Skip(src)
	require.NoError(t, err)
	assert.Equal(t, "MYSTERY", kind)
	assert.Equal(t, 3, n)
	assert.Len(t, src.Remaining(), 1)
}

const r12Drawing = `  0
SECTION
  2
HEADER
  9
$ACADVER
  1
AC1009
  0
ENDSEC
  0
SECTION
  2
ENTITIES
  0
LINE
  8
0
 10
0.0
 20
0.0
 30
0.0
 11
1.0
 21
1.0
 31
0.0
 38
4.0
  0
ENDSEC
  0
EOF
`

func TestDecoder(t *testing.T) {
	r, err := dxf.NewTokenReader(strings.NewReader(r12Drawing))
	require.NoError(t, err)
	dec := dxf.NewDecoder(r, entities.Registry(), dxf.WithVersionDetection())
	ctx := context.Background()

	var got []*dxf.Entity
	var unknown []string
	for {
		e, diags, err := dec.Next(ctx)
		var uk *dxf.UnknownKindError
		if errors.As(err, &uk) {
			unknown = append(unknown, uk.Kind)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Empty(t, diags)
		got = append(got, e)
	}
	assert.Equal(t, dxf.R12, dec.Version())
	assert.Equal(t, []string{"SECTION", "ENDSEC", "SECTION", "ENDSEC"}, unknown)
	assert.Equal(t, 4, dec.Skipped())
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].Fields["elevation"])

	_, _, err = dec.Next(ctx)
	assert.ErrorIs(t, err, io.EOF, "the decoder stays finished")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	r.Reset(strings.NewReader(r12Drawing))
	_, _, err = dxf.NewDecoder(r, entities.Registry()).Next(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncoderStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := dxf.NewTokenWriter(&buf)
	require.NoError(t, err)
	enc := dxf.NewEncoder(w, entities.Registry(), dxf.R2000)
	require.NoError(t, enc.Encode(line(0, 0, 1, 1)))
	require.NoError(t, enc.Encode(polyline()))
	assert.ErrorIs(t, enc.Encode(dxf.NewEntity("MYSTERY")), dxf.ErrUnknownKind)
	require.NoError(t, enc.Close())
	assert.Equal(t, 2, enc.Records())
	assert.True(t, strings.HasSuffix(buf.String(), "  0\nEOF\n"))

	l := &dxf.List{Codec: dxf.NewCodec(entities.Registry())}
	l.Codec.Version = dxf.R2000
	_, err = l.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "LINE", l.Items[0].Kind)
	assert.Equal(t, "LWPOLYLINE", l.Items[1].Kind)
}

func TestList(t *testing.T) {
	codec := dxf.NewCodec(entities.Registry())
	codec.Version = dxf.R2000
	out := dxf.NewList(codec, line(0, 0, 1, 1), hatch(), helix())

	var buf bytes.Buffer
	n, err := out.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	in := dxf.NewList(codec)
	m, err := in.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, n, m)
	require.Equal(t, 3, in.Len())
	require.Len(t, in.Diagnostics, 3)
	for i, e := range out.Items {
		s, err := codec.Registry.Resolve(e.Kind)
		require.NoError(t, err)
		want, err := dxf.Normalize(e, s)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, in.Items[i]), "item %d", i)
	}

	bad := dxf.NewList(codec, line(0, 0, 1, 1), dxf.NewEntity("CIRCLE"))
	_, err = bad.WriteTo(io.Discard)
	assert.ErrorIs(t, err, dxf.ErrUnencodable)
}

func attrib(tag, value string) *dxf.Entity {
	return dxf.NewEntity("ATTRIB").
		Set("layer", "0").
		Set("tag", tag).
		Set("value", value).
		Set("height", 0.25).
		Set("start_x", 0.0).Set("start_y", 0.0)
}

func vertex(x, y float64) *dxf.Entity {
	return dxf.NewEntity("VERTEX").Set("layer", "0").Set("location_x", x).Set("location_y", y)
}

func TestOwnedRuns(t *testing.T) {
	insert := dxf.NewEntity("INSERT").
		Set("layer", "0").
		Set("block", "DOOR").
		Set("insertion_x", 1.0).Set("insertion_y", 2.0).
		AddChild("attributes", attrib("WIDTH", "900")).
		AddChild("attributes", attrib("HEIGHT", "2100"))
	poly := dxf.NewEntity("POLYLINE").
		Set("layer", "0").
		Set("flags", entities.PolylineClosed).
		AddChild("vertices", vertex(0, 0)).
		AddChild("vertices", vertex(4, 0).Set("bulge", 1.0)).
		AddChild("vertices", vertex(4, 3))

	t.Run("attributes", func(t *testing.T) {
		got, diags, data := roundTrip(t, insert, entities.Insert, dxf.R2000)
		assert.Empty(t, diags)
		assert.Equal(t, int64(1), got.Fields["attributes_follow"], "the flag is derived from the attributes")
		require.Len(t, got.Children["attributes"], 2)
		assert.Equal(t, "HEIGHT", got.Children["attributes"][1].Text("tag"))
		require.Len(t, got.Children["end"], 1)
		assert.Equal(t, "SEQEND", got.Children["end"][0].Kind)

		s := string(data)
		assert.Equal(t, 2, strings.Count(s, "  0\nATTRIB\n"))
		assert.Greater(t, strings.Index(s, "  0\nSEQEND\n"), strings.LastIndex(s, "  0\nATTRIB\n"))
	})

	t.Run("no attributes", func(t *testing.T) {
		bare := dxf.NewEntity("INSERT").
			Set("block", "DOOR").
			Set("insertion_x", 1.0).Set("insertion_y", 2.0).
			Set("attributes_follow", 1)
		got, _, data := roundTrip(t, bare, entities.Insert, dxf.R2000)
		assert.Equal(t, int64(0), got.Fields["attributes_follow"])
		assert.NotContains(t, string(data), "SEQEND")
		assert.NotContains(t, string(data), " 66\n")
	})

	t.Run("vertices", func(t *testing.T) {
		for _, v := range []dxf.Version{dxf.R12, dxf.R2000} {
			got, diags, _ := roundTrip(t, poly, entities.Polyline, v)
			assert.Empty(t, diags)
			require.Len(t, got.Children["vertices"], 3)
			assert.Equal(t, 1.0, got.Children["vertices"][1].Real("bulge"))
		}
	})

	t.Run("stream", func(t *testing.T) {
		codec := dxf.NewCodec(entities.Registry())
		codec.Version = dxf.R2000
		var buf bytes.Buffer
		_, err := dxf.NewList(codec, insert, poly, line(0, 0, 1, 1)).WriteTo(&buf)
		require.NoError(t, err)

		in := dxf.NewList(codec)
		_, err = in.ReadFrom(&buf)
		require.NoError(t, err)
		assert.Empty(t, in.Unknown)
		require.Equal(t, 3, in.Len())
		assert.Len(t, in.Items[0].Children["attributes"], 2)
		assert.Len(t, in.Items[1].Children["vertices"], 3)
		assert.Len(t, in.Items[1].Children["end"], 1)
		assert.Equal(t, "LINE", in.Items[2].Kind)
	})

	t.Run("missing closing record", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "POLYLINE"},
			dxf.Token{Code: 66, Value: "1"},
			dxf.Token{Code: 0, Value: "VERTEX"},
			dxf.Token{Code: 10, Value: "1"},
			dxf.Token{Code: 20, Value: "2"},
			dxf.Token{Code: 0, Value: "LINE"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		got, diags, err := dxf.Decode(src, entities.Polyline, dxf.R2000)
		require.NoError(t, err)
		assert.Len(t, got.Children["vertices"], 1)
		assert.Empty(t, got.Children["end"])
		assert.Equal(t, 1, diags.Count(dxf.UnterminatedRun))
		assert.Equal(t, "LINE", src.Remaining()[0].Value, "the next record is left for the caller")
	})

	t.Run("flag off", func(t *testing.T) {
		src := dxf.NewTokens(
			dxf.Token{Code: 0, Value: "INSERT"},
			dxf.Token{Code: 2, Value: "DOOR"},
			dxf.Token{Code: 0, Value: "ATTRIB"},
			dxf.Token{Code: 0, Value: "EOF"},
		)
		got, diags, err := dxf.Decode(src, entities.Insert, dxf.R2000)
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.Nil(t, got.Children)
		assert.Equal(t, "ATTRIB", src.Remaining()[0].Value)
	})
}
