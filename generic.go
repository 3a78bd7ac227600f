package dxf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MarshalRecord encodes e as a self-contained stream: the record followed
// by the closing (0, EOF).
func MarshalRecord(e *Entity, s *Schema, v Version, opts ...WriterOption) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if _, err := EncodeTo(buf, e, s, v, opts...); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// UnmarshalRecord decodes exactly one record from data. The record may be
// followed by the closing (0, EOF) but by nothing else.
func UnmarshalRecord(data []byte, s *Schema, v Version, opts ...ReaderOption) (*Entity, Diagnostics, error) {
	r, err := NewTokenReader(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, nil, err
	}
	e, diags, err := Decode(r, s, v)
	if err != nil {
		return nil, diags, err
	}

	// Ensure no unexpected trailing data remains.
	tok, err := r.Next()
	switch {
	case errors.Is(err, io.EOF):
		return e, diags, nil
	case err != nil:
		return nil, diags, err
	case tok.Code != CodeSentinel || tok.Value != EndOfFile:
		return nil, diags, fmt.Errorf("%w: %v at line %d", ErrTrailingData, tok, tok.Line)
	}
	if tok, err := r.Next(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, diags, err
		}
		return nil, diags, fmt.Errorf("%w: %v at line %d", ErrTrailingData, tok, tok.Line)
	}
	return e, diags, nil
}
