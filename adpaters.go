package dxf

import "bytes"

// bytesBufferWriterAdapter lets a *bytes.Buffer act as an unbuffered sink.
type bytesBufferWriterAdapter struct{ *bytes.Buffer }

func (w *bytesBufferWriterAdapter) Flush() error { return nil }
