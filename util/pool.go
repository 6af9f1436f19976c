package util

import "sync"

// ChunkSize is the buffer size for network reads and file-transfer
// chunks (8 KiB, one chunk per UDP datagram).
const ChunkSize = 8192

// BufPool provides reusable byte buffers for network I/O, reducing
// GC pressure on hot paths like the duplex pump and relay loops.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
