package dxf

import (
	"bytes"
	"sync"
)

// recordBufPool reuses buffers for whole encoded records.
// This reduces GC pressure when many small records are marshalled.
var recordBufPool = sync.Pool{
	New: func() any {
		// 4KB holds most single records without growing.
		return bytes.NewBuffer(make([]byte, 0, BUFFER_SIZE))
	},
}

// maxPooledBuffer keeps one huge record from pinning memory in the pool.
const maxPooledBuffer = 1 << 20

func getBuffer() *bytes.Buffer {
	buf := recordBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	recordBufPool.Put(buf)
}
