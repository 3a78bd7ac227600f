package dxf

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind selects how a raw value is coerced and formatted.
type FieldKind uint8

const (
	KindInteger FieldKind = iota + 1 // int64
	KindReal                         // float64
	KindText                         // string
	KindFlags                        // Flags
	KindHandle                       // Handle
)

func (k FieldKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindFlags:
		return "flags"
	case KindHandle:
		return "handle"
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

// ParseFieldKind is the inverse of FieldKind.String.
func ParseFieldKind(s string) (FieldKind, bool) {
	for k := KindInteger; k <= KindHandle; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Flags is a bit-coded integer field such as a polyline's closed flag.
type Flags uint32

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Handle is a reference to another object, written in lower-case hex.
type Handle uint64

func (h Handle) String() string { return strconv.FormatUint(uint64(h), 16) }

// MarshalText keeps handles in hex when entities are rendered as JSON.
func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Handle) UnmarshalText(b []byte) error {
	v, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return err
	}
	*h = Handle(v)
	return nil
}

// Zero returns the zero value of k in its canonical Go type.
func (k FieldKind) Zero() any {
	switch k {
	case KindInteger:
		return int64(0)
	case KindReal:
		return float64(0)
	case KindText:
		return ""
	case KindFlags:
		return Flags(0)
	case KindHandle:
		return Handle(0)
	}
	return nil
}

// Parse coerces a raw token value to k's canonical Go type.
func (k FieldKind) Parse(raw string) (any, error) {
	switch k {
	case KindText:
		return raw, nil
	case KindInteger:
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case KindReal:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case KindFlags:
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			// Some writers emit flags as signed 16-bit values.
			n, nerr := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
			if nerr != nil {
				return nil, err
			}
			return Flags(uint32(int32(n))), nil
		}
		return Flags(v), nil
	case KindHandle:
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 16, 64)
		if err != nil {
			return nil, err
		}
		return Handle(v), nil
	}
	return nil, fmt.Errorf("dxf: cannot parse into %v", k)
}

// Format renders v, which must already be canonical for k.
func (k FieldKind) Format(v any, precision int) (string, error) {
	c, ok := k.Canonical(v)
	if !ok {
		return "", fmt.Errorf("dxf: %T is not a %v value", v, k)
	}
	switch c := c.(type) {
	case int64:
		return strconv.FormatInt(c, 10), nil
	case float64:
		return FormatReal(c, precision), nil
	case string:
		return c, nil
	case Flags:
		return strconv.FormatUint(uint64(c), 10), nil
	case Handle:
		return c.String(), nil
	}
	return "", fmt.Errorf("dxf: %T is not a %v value", v, k)
}

// Canonical converts the loose Go values callers tend to use (int, float32,
// uint16, ...) to k's canonical type. It reports false for values that do
// not fit the kind.
func (k FieldKind) Canonical(v any) (any, bool) {
	switch k {
	case KindInteger:
		if n, ok := asInt(v); ok {
			return n, true
		}
	case KindReal:
		switch x := v.(type) {
		case float64:
			return x, true
		case float32:
			return widenFloat(x), true
		case number:
			if f, err := x.Float64(); err == nil {
				return f, true
			}
		}
		if n, ok := asInt(v); ok {
			return float64(n), true
		}
	case KindText:
		// A line break would end the value line early.
		if s, ok := v.(string); ok && !strings.ContainsAny(s, "\r\n") {
			return s, true
		}
	case KindFlags:
		switch x := v.(type) {
		case Flags:
			return x, true
		}
		if n, ok := asInt(v); ok && n >= 0 && n <= 1<<32-1 {
			return Flags(n), true
		}
	case KindHandle:
		switch x := v.(type) {
		case Handle:
			return x, true
		case string:
			h, err := KindHandle.Parse(x)
			if err == nil {
				return h, true
			}
			return nil, false
		}
		if n, ok := asInt(v); ok && n >= 0 {
			return Handle(n), true
		}
	}
	return nil, false
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return widenInt(x), true
	case int8:
		return widenInt(x), true
	case int16:
		return widenInt(x), true
	case int32:
		return widenInt(x), true
	case uint8:
		return widenInt(x), true
	case uint16:
		return widenInt(x), true
	case uint32:
		return widenInt(x), true
	case uint:
		if uint64(x) <= 1<<63-1 {
			return widenInt(x), true
		}
	case uint64:
		if x <= 1<<63-1 {
			return widenInt(x), true
		}
	case number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
	}
	return 0, false
}

// number is the method set of json.Number, which JSON decoders produce
// when asked to keep numbers verbatim.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}
