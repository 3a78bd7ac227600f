package dxf

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DefaultPrecision is the number of decimals written for real values. It
// matches C's "%f".
const DefaultPrecision = 6

type writer interface {
	io.Writer
	io.StringWriter
	Flush() error
}

// TokenWriter writes tokens in the DXF text layout: the group code
// right-aligned to width 3 on one line, the value on the next.
// It tracks the first error that occurs. After an error, all subsequent
// write operations become no-ops.
type TokenWriter struct {
	w         writer
	c         io.Closer // transform writer that needs a final flush
	count     int64     // total bytes written
	tokens    int64     // total tokens written
	err       error     // first error encountered. Subsequent writes become no-ops.
	depth     int
	precision int
	scratch   []byte
}

// WriterOption configures a TokenWriter.
type WriterOption func(*writerOptions)

type writerOptions struct {
	codepage  encoding.Encoding
	precision int
}

// WithOutputCodePage encodes text values to the given legacy code page.
func WithOutputCodePage(enc encoding.Encoding) WriterOption {
	return func(o *writerOptions) { o.codepage = enc }
}

// WithPrecision sets the number of decimals written for real values.
func WithPrecision(n int) WriterOption {
	return func(o *writerOptions) { o.precision = n }
}

// NewTokenWriterSize creates a TokenWriter with a specified buffer size.
func NewTokenWriterSize(w io.Writer, size int, opts ...WriterOption) (*TokenWriter, error) {
	if w == nil {
		return nil, ErrNilIO
	}
	o := writerOptions{precision: DefaultPrecision}
	for _, opt := range opts {
		opt(&o)
	}
	if o.precision < 0 {
		o.precision = DefaultPrecision
	}

	var c io.Closer
	if o.codepage != nil {
		tw := transform.NewWriter(w, o.codepage.NewEncoder())
		w, c = tw, tw
	}

	switch bw := w.(type) {
	// Reuse the underlying buffer if it's already a compatible TokenWriter.
	case *TokenWriter:
		return &TokenWriter{w: bw.w, depth: bw.depth + 1, precision: o.precision}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Writer:
		if bw.Size() >= size {
			return &TokenWriter{w: bw, c: c, depth: 1, precision: o.precision}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *bytes.Buffer:
		return &TokenWriter{w: &bytesBufferWriterAdapter{bw}, c: c, precision: o.precision}, nil
	}

	if size == 0 {
		size = BUFFER_SIZE
	}
	return &TokenWriter{w: bufio.NewWriterSize(w, size), c: c, precision: o.precision}, nil
}

// NewTokenWriter creates a TokenWriter with a default buffer size.
func NewTokenWriter(w io.Writer, opts ...WriterOption) (*TokenWriter, error) {
	return NewTokenWriterSize(w, 0, opts...)
}

// Write implements io.Writer so that a TokenWriter can be nested.
func (w *TokenWriter) Write(p []byte) (int, error) {
	if len(p) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

func (w *TokenWriter) Count() int64   { return w.count }
func (w *TokenWriter) Tokens() int64  { return w.tokens }
func (w *TokenWriter) Err() error     { return w.err }
func (w *TokenWriter) Precision() int { return w.precision }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *TokenWriter) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result flushes the buffer and returns the final count and error state.
func (w *TokenWriter) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *TokenWriter) Flush() error {
	// Only the outermost writer should be responsible for the final flush.
	if w.depth > 0 || w.err != nil {
		return w.err
	}
	err := w.w.Flush()
	w.setError(err)
	return err
}

// Close flushes and releases the code page transformer, if any. It does not
// close the destination writer.
func (w *TokenWriter) Close() error {
	w.Flush()
	if w.c != nil {
		w.setError(w.c.Close())
		w.c = nil
	}
	return w.err
}

// WriteToken writes one code line and one value line.
func (w *TokenWriter) WriteToken(code int, value string) {
	if w.err != nil {
		return
	}
	b := w.scratch[:0]
	switch {
	case code >= 0 && code < 10:
		b = append(b, ' ', ' ')
	case code >= 10 && code < 100:
		b = append(b, ' ')
	}
	b = strconv.AppendInt(b, int64(code), 10)
	b = append(b, '\n')
	b = append(b, value...)
	b = append(b, '\n')
	w.scratch = b
	if _, err := w.Write(b); err == nil {
		w.tokens++
	}
}

// --- Typed value writes ---

func (w *TokenWriter) WriteText(code int, v string) { w.WriteToken(code, v) }

func (w *TokenWriter) WriteInt(code int, v int64) {
	w.WriteToken(code, strconv.FormatInt(v, 10))
}

func (w *TokenWriter) WriteReal(code int, v float64) {
	w.WriteToken(code, FormatReal(v, w.precision))
}

func (w *TokenWriter) WriteFlags(code int, v Flags) {
	w.WriteToken(code, strconv.FormatUint(uint64(v), 10))
}

func (w *TokenWriter) WriteHandle(code int, v Handle) {
	w.WriteToken(code, v.String())
}

// FormatReal formats v with a fixed number of decimals.
func FormatReal(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}
