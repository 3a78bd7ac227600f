package entities

import (
	"sync"

	"github.com/oy3o/dxf"
)

// All returns every built-in schema.
func All() []*dxf.Schema {
	return []*dxf.Schema{
		Line, Point, Circle, Arc, Ellipse,
		LWPolyline, Polyline, Vertex, Seqend, Spline, Helix, Hatch,
		Insert, Attrib, AppID, BlockRecord, Layer,
	}
}

var registry = sync.OnceValue(func() *dxf.Registry {
	return dxf.MustRegistry(All()...)
})

// Registry returns the registry of built-in schemas. It is built on first
// use and shared afterwards.
func Registry() *dxf.Registry { return registry() }
