package transport

import (
	"sync"
)

// bufferPool recycles receive buffers sized to the server's UDP
// datagram ceiling (1232 bytes, the commonly recommended safe EDNS payload size),
// avoiding a fresh allocation on every read in serveUDP's hot path.
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 1232)
		return &buf
	},
}

// GetBuffer returns a pointer to a 1232-byte buffer from the pool.
// Callers must return it via PutBuffer once they're done with it.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer returns a buffer to the pool for reuse. The caller must not
// use the buffer after calling PutBuffer.
func PutBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	bufferPool.Put(bufPtr)
}
