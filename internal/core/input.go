package core

import (
	"io"

	"ndog/util"
)

// inputChunk is one read off the local input stream.
type inputChunk struct {
	data []byte
	err  error
}

// feedInput performs the blocking reads from the local input on a
// dedicated goroutine so listener loops only ever block on select.
// The feeder exits after delivering the first error (EOF included) or
// when stop closes.
func feedInput(in io.Reader, stop <-chan struct{}) <-chan inputChunk {
	ch := make(chan inputChunk)
	go func() {
		for {
			buf := make([]byte, util.ChunkSize)
			n, err := in.Read(buf)
			select {
			case ch <- inputChunk{data: buf[:n], err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
