package dxf

import "io"

// limitedReader fails with ErrInputTooLarge once more than n bytes have
// been read. Unlike io.LimitedReader it never reports a clean io.EOF at the
// limit, so an oversized input cannot pass for a short, complete one.
type limitedReader struct {
	r io.Reader
	n int64 // bytes left
}

// LimitReader returns a reader over r that refuses to read more than n
// bytes.
func LimitReader(r io.Reader, n int64) io.ReadCloser {
	return &limitedReader{r: r, n: n}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n < 0 {
		return 0, ErrInputTooLarge
	}
	// Read one byte past the limit to tell "exactly n" from "more than n".
	if int64(len(p)) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if l.n < 0 {
		return n + int(l.n), ErrInputTooLarge
	}
	return n, err
}

// Close closes the underlying reader if it implements io.Closer.
func (l *limitedReader) Close() error {
	if c, ok := l.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
