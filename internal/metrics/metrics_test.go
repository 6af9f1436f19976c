package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector

	// None of these may panic.
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.BytesReceived(100)
	c.BytesSent(50)
	c.MessageRelayed()
	c.PeerEvicted()
	c.TransferCompleted()
	c.RecordError("boom")

	if c.ActiveConnections() != 0 || c.TotalBytesIn() != 0 {
		t.Error("nil collector returned non-zero")
	}
	if s := c.Snapshot(); s.ConnectionsTotal != 0 {
		t.Error("nil collector snapshot not zero")
	}
}

func TestCounters(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.BytesReceived(100)
	c.BytesSent(40)
	c.BytesSent(2)
	c.MessageRelayed()
	c.PeerEvicted()
	c.TransferCompleted()
	c.RecordError("first")
	c.RecordError("second")

	s := c.Snapshot()
	if s.ConnectionsActive != 1 || s.ConnectionsTotal != 2 {
		t.Errorf("connections: active=%d total=%d", s.ConnectionsActive, s.ConnectionsTotal)
	}
	if s.BytesIn != 100 || s.BytesOut != 42 {
		t.Errorf("bytes: in=%d out=%d", s.BytesIn, s.BytesOut)
	}
	if s.Relayed != 1 || s.PeersEvicted != 1 || s.Transfers != 1 {
		t.Errorf("relayed=%d evicted=%d transfers=%d", s.Relayed, s.PeersEvicted, s.Transfers)
	}
	if s.ErrorsTotal != 2 || s.LastErrorMessage != "second" {
		t.Errorf("errors=%d last=%q", s.ErrorsTotal, s.LastErrorMessage)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.BytesReceived(1)
				c.MessageRelayed()
			}
		}()
	}
	wg.Wait()

	if got := c.TotalBytesIn(); got != 1000 {
		t.Errorf("bytes in = %d, want 1000", got)
	}
	if got := c.RelayedTotal(); got != 1000 {
		t.Errorf("relayed = %d, want 1000", got)
	}
}

func TestJSONSnapshot(t *testing.T) {
	c := New()
	c.BytesReceived(7)

	var s Snapshot
	if err := json.Unmarshal([]byte(c.JSON()), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.BytesIn != 7 {
		t.Errorf("BytesIn = %d, want 7", s.BytesIn)
	}
}
