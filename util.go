package dxf

import (
	"strings"

	"golang.org/x/exp/constraints"
)

const BUFFER_SIZE = 4096

func widenInt[T constraints.Integer](v T) int64 { return int64(v) }

func widenFloat[T constraints.Float](v T) float64 { return float64(v) }

// within reports whether lo <= v <= hi.
func within[T constraints.Integer | constraints.Float](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// numeric returns v as a float64 for the numeric canonical types.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case Flags:
		return float64(x), true
	case Handle:
		return float64(x), true
	}
	return 0, false
}

// blank reports whether a text value carries no visible characters.
func blank(s string) bool { return strings.TrimSpace(s) == "" }

// markerKey identifies a marker by its code and value.
func markerKey(code int, name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	b.WriteString(name)
	b.WriteByte(0)
	b.WriteByte(byte(code))
	b.WriteByte(byte(code >> 8))
	return b.String()
}
