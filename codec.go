package dxf

import (
	"io"

	"golang.org/x/text/encoding"
)

// Codec bundles a registry with the version and text settings used for
// every record it reads or writes. The zero value is not usable; create
// one with NewCodec. A Codec is safe for concurrent use.
type Codec struct {
	Registry  *Registry
	Version   Version
	Precision int
	// CodePage, when set, is the legacy encoding of text on the wire.
	CodePage encoding.Encoding
	// MaxBytes bounds the input read by Unmarshal and NewDecoder. Zero
	// means no limit.
	MaxBytes int64
}

// NewCodec returns a Codec writing the latest version with the default
// real precision.
func NewCodec(reg *Registry) *Codec {
	return &Codec{Registry: reg, Version: Latest, Precision: DefaultPrecision}
}

func (c *Codec) readerOptions() []ReaderOption {
	var opts []ReaderOption
	if c.CodePage != nil {
		opts = append(opts, WithCodePage(c.CodePage))
	}
	if c.MaxBytes > 0 {
		opts = append(opts, WithMaxBytes(c.MaxBytes))
	}
	return opts
}

func (c *Codec) writerOptions() []WriterOption {
	opts := []WriterOption{WithPrecision(c.Precision)}
	if c.CodePage != nil {
		opts = append(opts, WithOutputCodePage(c.CodePage))
	}
	return opts
}

// Marshal encodes e as a single-record stream.
func (c *Codec) Marshal(e *Entity) ([]byte, error) {
	if e == nil {
		return nil, &UnencodableValueError{Field: "(entity)"}
	}
	s, err := c.Registry.Resolve(e.Kind)
	if err != nil {
		return nil, err
	}
	return MarshalRecord(e, s, c.Version, c.writerOptions()...)
}

// Unmarshal decodes a single-record stream of the given kind.
func (c *Codec) Unmarshal(data []byte, kind string) (*Entity, Diagnostics, error) {
	s, err := c.Registry.Resolve(kind)
	if err != nil {
		return nil, nil, err
	}
	return UnmarshalRecord(data, s, c.Version, c.readerOptions()...)
}

// NewDecoder returns a record Decoder over r.
func (c *Codec) NewDecoder(r io.Reader, opts ...DecoderOption) (*Decoder, error) {
	tr, err := NewTokenReader(r, c.readerOptions()...)
	if err != nil {
		return nil, err
	}
	return NewDecoder(tr, c.Registry, append([]DecoderOption{WithVersion(c.Version)}, opts...)...), nil
}

// NewEncoder returns a record Encoder over w. Close it to end the stream.
func (c *Codec) NewEncoder(w io.Writer) (*Encoder, error) {
	tw, err := NewTokenWriter(w, c.writerOptions()...)
	if err != nil {
		return nil, err
	}
	return NewEncoder(tw, c.Registry, c.Version), nil
}
