package dxf

import (
	"context"
	"errors"
	"io"
)

// List is an ordered run of records read from or written to one stream.
type List struct {
	Codec *Codec
	Items []*Entity

	// Filled by ReadFrom.
	Diagnostics []Diagnostics // per item
	Unknown     []string      // kinds of skipped records
}

var (
	_ io.WriterTo   = (*List)(nil)
	_ io.ReaderFrom = (*List)(nil)
)

// NewList returns a List using c for its records.
func NewList(c *Codec, items ...*Entity) *List {
	return &List{Codec: c, Items: items}
}

func (l *List) Len() int { return len(l.Items) }

// WriteTo writes every item followed by the closing (0, EOF).
func (l *List) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc, err := l.Codec.NewEncoder(cw)
	if err != nil {
		return 0, err
	}
	for _, e := range l.Items {
		if err := enc.Encode(e); err != nil {
			enc.w.Flush()
			return cw.n, err
		}
	}
	err = enc.Close()
	return cw.n, err
}

// ReadFrom appends every record of r to the list. Unknown kinds are skipped
// and remembered in Unknown. Reading stops at the end of input, at the
// closing (0, EOF), or at the first hard error.
func (l *List) ReadFrom(r io.Reader) (int64, error) {
	return l.ReadFromContext(context.Background(), r)
}

// ReadFromContext is ReadFrom with cooperative cancellation between records.
func (l *List) ReadFromContext(ctx context.Context, r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	dec, err := l.Codec.NewDecoder(cr, WithVersionDetection())
	if err != nil {
		return 0, err
	}
	for {
		e, diags, err := dec.Next(ctx)
		var uk *UnknownKindError
		switch {
		case errors.Is(err, io.EOF):
			return cr.n, nil
		case errors.As(err, &uk):
			l.Unknown = append(l.Unknown, uk.Kind)
			continue
		case err != nil:
			return cr.n, err
		}
		l.Items = append(l.Items, e)
		l.Diagnostics = append(l.Diagnostics, diags)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
