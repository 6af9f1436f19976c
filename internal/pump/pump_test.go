package pump

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"ndog/internal/session"
	"ndog/util"
)

const testInterval = 20 * time.Millisecond

func testLogger() *util.Logger { return util.NewLogger(0) }

// tcpPair returns two ends of a loopback TCP connection.
func tcpPair(t *testing.T) (local, remote net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	acceptErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		remote = c
		acceptErr <- err
	}()

	local, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := <-acceptErr; err != nil {
		t.Fatal(err)
	}
	return local, remote
}

// lockedBuffer is an io.Writer safe for the pump's inbound goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// blockedReader never produces data and never returns EOF.
type blockedReader struct{}

func (blockedReader) Read(p []byte) (int, error) {
	select {} // block forever
}

func TestPumpOutbound(t *testing.T) {
	local, remote := tcpPair(t)
	defer remote.Close()

	sess := session.Wrap(local, session.TCP, false, testLogger())
	out := &lockedBuffer{}

	p := &Pump{
		Session:      sess,
		In:           strings.NewReader("hello over the wire"),
		Out:          out,
		PollInterval: testInterval,
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	got := make([]byte, 64)
	remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := remote.Read(got)
	if err != nil {
		t.Fatalf("remote read: %v", err)
	}
	if string(got[:n]) != "hello over the wire" {
		t.Errorf("remote got %q", got[:n])
	}

	// Local EOF half-closes the stream; the remote sees EOF next.
	if _, err := remote.Read(got); err != io.EOF {
		t.Errorf("remote expected EOF, got %v", err)
	}
	remote.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("pump returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after EOF")
	}
}

func TestPumpInbound(t *testing.T) {
	local, remote := tcpPair(t)

	sess := session.Wrap(local, session.TCP, false, testLogger())
	out := &lockedBuffer{}

	p := &Pump{
		Session:      sess,
		In:           blockedReader{},
		Out:          out,
		PollInterval: testInterval,
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	remote.Write([]byte("inbound payload"))
	remote.Close() // peer closes; pump must stop

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("pump returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after peer close")
	}

	if out.String() != "inbound payload" {
		t.Errorf("local output = %q", out.String())
	}
}

func TestPumpStopsWithinPollInterval(t *testing.T) {
	local, remote := tcpPair(t)

	sess := session.Wrap(local, session.TCP, false, testLogger())
	p := &Pump{
		Session:      sess,
		In:           blockedReader{},
		Out:          &lockedBuffer{},
		PollInterval: testInterval,
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	time.Sleep(2 * testInterval) // let the loops settle into polling
	start := time.Now()
	remote.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump never stopped")
	}
	if elapsed := time.Since(start); elapsed > 10*testInterval {
		t.Errorf("shutdown took %v, want bounded by the poll interval", elapsed)
	}
}

func TestPumpContextCancel(t *testing.T) {
	local, remote := tcpPair(t)
	defer remote.Close()

	sess := session.Wrap(local, session.TCP, false, testLogger())
	p := &Pump{
		Session:      sess,
		In:           blockedReader{},
		Out:          &lockedBuffer{},
		PollInterval: testInterval,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(2 * testInterval)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("pump returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on cancel")
	}

	if sess.State() != session.Closed {
		t.Errorf("session state = %v, want closed", sess.State())
	}
}

func TestPumpKeepOpenSurvivesInputEOF(t *testing.T) {
	local, remote := tcpPair(t)

	sess := session.Wrap(local, session.TCP, false, testLogger())
	out := &lockedBuffer{}
	p := &Pump{
		Session:      sess,
		In:           strings.NewReader(""), // immediate EOF
		Out:          out,
		KeepOpen:     true,
		PollInterval: testInterval,
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	// The pump must still be receiving after local input ended.
	time.Sleep(3 * testInterval)
	if _, err := remote.Write([]byte("late data")); err != nil {
		t.Fatalf("remote write: %v", err)
	}
	remote.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("pump returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after peer close")
	}

	if out.String() != "late data" {
		t.Errorf("local output = %q", out.String())
	}
}
