package dxf

import (
	"errors"
	"fmt"
)

var (
	// ErrNilIO indicates that NewTokenReader/NewTokenWriter was called with a nil interface.
	ErrNilIO = errors.New("dxf: NewTokenReader/NewTokenWriter called with a nil io.Reader/io.Writer")

	// ErrSizeTooSmall indicates a size conflict with bufio.
	ErrSizeTooSmall = errors.New("dxf: NewTokenReaderSize with a size smaller than 16 conflict with bufio")

	// ErrAlreadyBuffered indicates that the reader was already wrapped in a
	// bufio.Reader too small to hold a value line.
	ErrAlreadyBuffered = errors.New("dxf: reader is already buffered")

	// ErrInputTooLarge is returned once a reader created with WithMaxBytes
	// has consumed its budget.
	ErrInputTooLarge = errors.New("dxf: input exceeds size limit")

	// ErrBinaryDXF indicates input in the binary DXF layout, which is not
	// supported.
	ErrBinaryDXF = errors.New("dxf: binary DXF is not supported")

	// ErrMalformedToken indicates a code line that is not a number, or a code
	// line with no value line after it. It aborts the current decode call.
	ErrMalformedToken = errors.New("dxf: malformed token")

	// ErrPushbackFull is returned by Unread when a token is already pending.
	ErrPushbackFull = errors.New("dxf: only one token can be unread")

	// ErrUnknownKind is returned when a record kind has no registered schema.
	// It is not fatal: the record can be skipped.
	ErrUnknownKind = errors.New("dxf: unknown entity kind")

	// ErrDuplicateKind is returned by NewRegistry when two schemas share a kind.
	ErrDuplicateKind = errors.New("dxf: duplicate entity kind")

	// ErrInvalidSchema is returned when a schema cannot be compiled.
	ErrInvalidSchema = errors.New("dxf: invalid schema")

	// ErrKindMismatch indicates that the type-announcing token names a
	// different kind than the schema passed to Decode.
	ErrKindMismatch = errors.New("dxf: record kind does not match schema")

	// ErrUnterminatedRecord indicates the input ended before the sentinel code.
	ErrUnterminatedRecord = errors.New("dxf: record not terminated by sentinel")

	// ErrUnencodable is a programming-contract violation: a required field is
	// absent or holds a value of the wrong type at encode time.
	ErrUnencodable = errors.New("dxf: unencodable value")

	// ErrInvalidEntity wraps all validation failures.
	ErrInvalidEntity = errors.New("dxf: invalid entity")

	// ErrUnknownVersion is returned by ParseVersion for unrecognised names.
	ErrUnknownVersion = errors.New("dxf: unknown version")

	// ErrTrailingData is returned by UnmarshalRecord when tokens other than the
	// closing sentinel follow the record.
	ErrTrailingData = errors.New("dxf: trailing data found after record")
)

// MalformedTokenError carries the line of the offending code line.
type MalformedTokenError struct {
	Line   int
	Code   string
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("%v at line %d: %s (%q)", ErrMalformedToken, e.Line, e.Reason, e.Code)
}

func (e *MalformedTokenError) Unwrap() error { return ErrMalformedToken }

// UnknownKindError names the kind that could not be resolved.
type UnknownKindError struct {
	Kind string
	Line int
}

func (e *UnknownKindError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v %q at line %d", ErrUnknownKind, e.Kind, e.Line)
	}
	return fmt.Sprintf("%v %q", ErrUnknownKind, e.Kind)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownKind }

// UnencodableValueError reports the field that violated the encode contract.
type UnencodableValueError struct {
	Kind  string
	Field string
	Value any
}

func (e *UnencodableValueError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%v: %s.%s is required but absent", ErrUnencodable, e.Kind, e.Field)
	}
	return fmt.Sprintf("%v: %s.%s holds %T", ErrUnencodable, e.Kind, e.Field, e.Value)
}

func (e *UnencodableValueError) Unwrap() error { return ErrUnencodable }
