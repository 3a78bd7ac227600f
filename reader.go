package dxf

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// TokenReader turns a DXF text stream into line-numbered tokens.
// It wraps bufio.Reader and tracks the first error. Subsequent reads return
// that error again. One token can be pushed back with Unread.
type TokenReader struct {
	r       *bufio.Reader
	c       io.Closer
	line    int   // lines consumed
	count   int64 // tokens returned
	err     error // first error encountered
	pending *Token
}

var (
	_ TokenSource = (*TokenReader)(nil)
	_ Unreader    = (*TokenReader)(nil)
)

// ReaderOption configures a TokenReader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	codepage encoding.Encoding
	maxBytes int64
}

// WithCodePage decodes every line from the given legacy code page (for
// example charmap.Windows1252) to UTF-8 before tokenizing.
func WithCodePage(enc encoding.Encoding) ReaderOption {
	return func(o *readerOptions) { o.codepage = enc }
}

// WithMaxBytes makes the reader fail with ErrInputTooLarge after n bytes of
// input. Zero means no limit.
func WithMaxBytes(n int64) ReaderOption {
	return func(o *readerOptions) { o.maxBytes = n }
}

// NewTokenReaderSize creates a TokenReader with a specified buffer size.
func NewTokenReaderSize(r io.Reader, size int, opts ...ReaderOption) (*TokenReader, error) {
	if r == nil {
		return nil, ErrNilIO
	}
	var o readerOptions
	for _, opt := range opts {
		opt(&o)
	}
	c, _ := r.(io.Closer)

	if o.maxBytes > 0 {
		r = LimitReader(r, o.maxBytes)
	}
	if o.codepage != nil {
		r = transform.NewReader(r, o.codepage.NewDecoder())
	}

	// prevent unpredictable double-buffering.
	if reader, ok := r.(*bufio.Reader); ok {
		if reader.Size() >= size {
			return &TokenReader{r: reader, c: c}, nil
		}
		return nil, ErrAlreadyBuffered
	}

	if size == 0 {
		size = BUFFER_SIZE
	}
	if size < 16 {
		return nil, ErrSizeTooSmall
	}
	return &TokenReader{r: bufio.NewReaderSize(r, size), c: c}, nil
}

// NewTokenReader creates a TokenReader with a default buffer size.
func NewTokenReader(r io.Reader, opts ...ReaderOption) (*TokenReader, error) {
	return NewTokenReaderSize(r, 0, opts...)
}

// Close closes the underlying reader if it implements io.Closer.
func (r *TokenReader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// Reset discards all state and reads from src. It is the one way to restart
// a TokenReader.
func (r *TokenReader) Reset(src io.Reader) {
	r.r.Reset(src)
	r.c, _ = src.(io.Closer)
	r.line = 0
	r.count = 0
	r.err = nil
	r.pending = nil
}

func (r *TokenReader) Line() int    { return r.line }
func (r *TokenReader) Count() int64 { return r.count }
func (r *TokenReader) Err() error   { return r.err }
func (r *TokenReader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *TokenReader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Unread pushes t back so the next call to Next returns it.
func (r *TokenReader) Unread(t Token) error {
	if r.pending != nil {
		return ErrPushbackFull
	}
	r.pending = &t
	r.count--
	return nil
}

// Next returns the next token.
func (r *TokenReader) Next() (Token, error) {
	if r.pending != nil {
		t := *r.pending
		r.pending = nil
		r.count++
		return t, nil
	}
	if r.err != nil {
		return Token{}, r.err
	}

	if r.line == 0 {
		if err := r.sniff(); err != nil {
			r.setError(err)
			return Token{}, r.err
		}
	}

	raw, ok, err := r.readLine()
	if err != nil {
		r.setError(err)
		return Token{}, r.err
	}
	if !ok {
		// A clean end is only possible between tokens.
		r.setError(io.EOF)
		return Token{}, r.err
	}
	line := r.line
	code, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil {
		r.setError(&MalformedTokenError{Line: line, Code: raw, Reason: "group code is not numeric"})
		return Token{}, r.err
	}

	value, ok, err := r.readLine()
	if err != nil {
		r.setError(err)
		return Token{}, r.err
	}
	if !ok {
		r.setError(&MalformedTokenError{Line: line, Code: raw, Reason: "group code has no value"})
		return Token{}, r.err
	}
	r.count++
	return Token{Code: code, Value: value, Line: line}, nil
}

var (
	utf8BOM        = []byte("\xef\xbb\xbf")
	binarySentinel = []byte("AutoCAD Binary DXF")
)

// sniff drops a leading UTF-8 byte order mark and refuses binary DXF.
func (r *TokenReader) sniff() error {
	head, err := r.r.Peek(len(binarySentinel))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if bytes.HasPrefix(head, utf8BOM) {
		_, err := r.r.Discard(len(utf8BOM))
		return err
	}
	if bytes.Equal(head, binarySentinel) {
		return ErrBinaryDXF
	}
	return nil
}

// readLine reads one line without its terminator. ok is false when the input
// ended before any byte of the line.
func (r *TokenReader) readLine() (string, bool, error) {
	s, err := r.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if err == io.EOF && s == "" {
		return "", false, nil
	}
	r.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}
