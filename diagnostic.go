package dxf

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies a recoverable problem found while decoding.
type DiagnosticKind uint8

const (
	// UnknownCode: no descriptor of the active grammars matches the code.
	UnknownCode DiagnosticKind = iota + 1
	// UnexpectedSubclass: a marker is unknown, or known but not expected
	// at the active version.
	UnexpectedSubclass
	// FieldCoercion: a value could not be coerced to its field's kind. The
	// field keeps its default.
	FieldCoercion
	// OutOfVersion: a field outside its version range was read anyway.
	OutOfVersion
	// AmbiguousCode: the code is shared by several descriptors and was
	// resolved by position.
	AmbiguousCode
	// CountMismatch: a count field disagrees with the decoded length.
	CountMismatch
	// PairMismatch: two paired repeat groups have different lengths.
	PairMismatch
	// UnterminatedRun: the records a container owns were followed by a
	// record other than their closing kind.
	UnterminatedRun
)

var diagnosticNames = map[DiagnosticKind]string{
	UnknownCode:        "unknown-code",
	UnexpectedSubclass: "unexpected-subclass",
	FieldCoercion:      "field-coercion",
	OutOfVersion:       "out-of-version",
	AmbiguousCode:      "ambiguous-code",
	CountMismatch:      "count-mismatch",
	PairMismatch:       "pair-mismatch",
	UnterminatedRun:    "unterminated-run",
}

func (k DiagnosticKind) String() string {
	if s, ok := diagnosticNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

func (k DiagnosticKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Diagnostic is a recoverable problem returned next to a decoded entity.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Entity string         `json:"entity"`
	Field  string         `json:"field,omitempty"`
	Code   int            `json:"code"`
	Value  string         `json:"value,omitempty"`
	Line   int            `json:"line,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Entity)
	if d.Field != "" {
		b.WriteString(".")
		b.WriteString(d.Field)
	}
	fmt.Fprintf(&b, " code %d", d.Code)
	if d.Value != "" {
		fmt.Fprintf(&b, " value %q", d.Value)
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, " at line %d", d.Line)
	}
	if d.Detail != "" {
		b.WriteString(": ")
		b.WriteString(d.Detail)
	}
	return b.String()
}

// Diagnostics is the list returned by Decode.
type Diagnostics []Diagnostic

// Count returns the number of diagnostics of kind k.
func (ds Diagnostics) Count(k DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Has reports whether any diagnostic has kind k.
func (ds Diagnostics) Has(k DiagnosticKind) bool { return ds.Count(k) > 0 }
