package util

import "testing"

func TestBufPool(t *testing.T) {
	buf := GetBuf()
	if len(*buf) != ChunkSize {
		t.Fatalf("buffer length = %d, want %d", len(*buf), ChunkSize)
	}
	(*buf)[0] = 0xFF
	PutBuf(buf)

	// A recycled buffer keeps its full length.
	again := GetBuf()
	defer PutBuf(again)
	if len(*again) != ChunkSize {
		t.Fatalf("recycled buffer length = %d, want %d", len(*again), ChunkSize)
	}
}
