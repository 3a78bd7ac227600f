package dxf

import (
	"context"
	"errors"
	"io"
)

// Decoder reads consecutive records from a stream. Records of kinds the
// registry does not know are skipped and reported as *UnknownKindError so
// the caller can decide whether to go on.
type Decoder struct {
	r        *TokenReader
	reg      *Registry
	version  Version
	detect   bool
	skipped  int
	finished bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithVersion sets the version used to decode records. It defaults to Latest.
func WithVersion(v Version) DecoderOption { return func(d *Decoder) { d.version = v } }

// WithVersionDetection makes the decoder take the version from a
// "$ACADVER" header variable found in a skipped record.
func WithVersionDetection() DecoderOption { return func(d *Decoder) { d.detect = true } }

// NewDecoder returns a Decoder over r.
func NewDecoder(r *TokenReader, reg *Registry, opts ...DecoderOption) *Decoder {
	d := &Decoder{r: r, reg: reg, version: Latest}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Version returns the version records are currently decoded at.
func (d *Decoder) Version() Version { return d.version }

// Skipped returns the number of records skipped so far.
func (d *Decoder) Skipped() int { return d.skipped }

// Next decodes the next record. It returns io.EOF at the end of input or at
// the closing (0, EOF). For a record of an unregistered kind it consumes the
// record and returns an *UnknownKindError; calling Next again continues
// with the following record. ctx is checked between records.
func (d *Decoder) Next(ctx context.Context) (*Entity, Diagnostics, error) {
	if d.finished {
		return nil, nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	tok, err := d.r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.finished = true
		}
		return nil, nil, err
	}
	if tok.Code != CodeSentinel {
		return nil, nil, &MalformedTokenError{Line: tok.Line, Code: tok.String(), Reason: "record does not start with a type token"}
	}
	if tok.Value == EndOfFile {
		d.finished = true
		return nil, nil, io.EOF
	}
	if err := d.r.Unread(tok); err != nil {
		return nil, nil, err
	}

	s, err := d.reg.Resolve(tok.Value)
	if err != nil {
		if _, _, serr := skip(d.r, d.watchHeader()); serr != nil {
			return nil, nil, serr
		}
		d.skipped++
		var uk *UnknownKindError
		if errors.As(err, &uk) {
			uk.Line = tok.Line
		}
		return nil, nil, err
	}
	return Decode(d.r, s, d.version)
}

// watchHeader returns a visitor that picks the version out of header
// variables, or nil when detection is off.
func (d *Decoder) watchHeader() func(Token) {
	if !d.detect {
		return nil
	}
	var inVer bool
	return func(t Token) {
		switch {
		case t.Code == 9:
			inVer = t.Value == "$ACADVER"
		case inVer && t.Code == 1:
			if v, err := ParseVersion(t.Value); err == nil {
				d.version = v
			}
			inVer = false
		}
	}
}

// Encoder writes consecutive records and closes the stream with (0, EOF).
type Encoder struct {
	w       *TokenWriter
	reg     *Registry
	version Version
	records int
}

// NewEncoder returns an Encoder writing records at version v.
func NewEncoder(w *TokenWriter, reg *Registry, v Version) *Encoder {
	return &Encoder{w: w, reg: reg, version: v}
}

// Encode writes e with the schema registered for its kind.
func (enc *Encoder) Encode(e *Entity) error {
	if e == nil {
		return &UnencodableValueError{Field: "(entity)"}
	}
	s, err := enc.reg.Resolve(e.Kind)
	if err != nil {
		return err
	}
	if err := Encode(enc.w, e, s, enc.version); err != nil {
		return err
	}
	enc.records++
	return nil
}

// Records returns the number of records written.
func (enc *Encoder) Records() int { return enc.records }

// Close writes the closing sentinel and flushes the writer.
func (enc *Encoder) Close() error {
	enc.w.WriteText(CodeSentinel, EndOfFile)
	return enc.w.Close()
}
