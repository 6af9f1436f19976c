package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"ndog/internal/capability"
	"ndog/internal/display"
	"ndog/internal/session"
	"ndog/util"
)

const testInterval = 20 * time.Millisecond

func testLogger() *util.Logger { return util.NewLogger(0) }

func testPrinter() *display.Printer {
	return display.New(display.Options{Out: io.Discard, Color: false})
}

func dialWithin(t *testing.T, addr string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", addr, err)
	return nil
}

func readWithin(t *testing.T, c net.Conn, d time.Duration) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(d))
	buf := make([]byte, 256)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(buf[:n])
}

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	return util.FormatAddr("127.0.0.1", port)
}

// ── broadcast relay ──────────────────────────────────────────────────

func TestBroadcastRelayNeverEchoes(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address:      addr,
		Broadcast:    true,
		KeepOpen:     true,
		PollInterval: testInterval,
		In:           blockedReader{},
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	a := dialWithin(t, addr)
	b := dialWithin(t, addr)
	c := dialWithin(t, addr)
	time.Sleep(5 * testInterval) // let all client loops start

	if _, err := a.Write([]byte("from-a")); err != nil {
		t.Fatal(err)
	}

	if got := readWithin(t, b, 2*time.Second); got != "from-a" {
		t.Errorf("b got %q", got)
	}
	if got := readWithin(t, c, 2*time.Second); got != "from-a" {
		t.Errorf("c got %q", got)
	}

	// The sender must not see its own data back.
	a.SetReadDeadline(time.Now().Add(5 * testInterval))
	buf := make([]byte, 16)
	if n, _ := a.Read(buf); n > 0 {
		t.Errorf("sender received echo: %q", buf[:n])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestBroadcastShutdownClosesClients(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address:      addr,
		Broadcast:    true,
		KeepOpen:     true,
		PollInterval: testInterval,
		In:           blockedReader{},
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	client := dialWithin(t, addr)
	time.Sleep(5 * testInterval)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	// The client sees its connection die shortly after shutdown.
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8)
	if _, err := client.Read(buf); err == nil {
		t.Error("client read succeeded after listener shutdown")
	}
}

func TestBroadcastDisconnectLeavesOthersRunning(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address:      addr,
		Broadcast:    true,
		KeepOpen:     true,
		PollInterval: testInterval,
		In:           blockedReader{},
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	a := dialWithin(t, addr)
	b := dialWithin(t, addr)
	c := dialWithin(t, addr)
	time.Sleep(5 * testInterval)

	a.Close()
	time.Sleep(5 * testInterval) // give the relay time to unregister a

	if _, err := b.Write([]byte("still here")); err != nil {
		t.Fatal(err)
	}
	if got := readWithin(t, c, 2*time.Second); got != "still here" {
		t.Errorf("c got %q", got)
	}
}

func TestBroadcastStopsOnLocalInputEOF(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address:      addr,
		Broadcast:    true,
		PollInterval: testInterval,
		In:           strings.NewReader(""), // immediate EOF
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	// Default close policy: local-input EOF without keep-open must
	// unblock the accept loop and end the listener.
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listener returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener still running after local-input EOF")
	}
}

func TestBroadcastKeepOpenSurvivesInputEOF(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address:      addr,
		Broadcast:    true,
		KeepOpen:     true,
		PollInterval: testInterval,
		In:           strings.NewReader(""),
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// With keep-open the relay keeps serving after stdin ends.
	a := dialWithin(t, addr)
	b := dialWithin(t, addr)
	time.Sleep(5 * testInterval)

	if _, err := a.Write([]byte("still relaying")); err != nil {
		t.Fatal(err)
	}
	if got := readWithin(t, b, 2*time.Second); got != "still relaying" {
		t.Errorf("b got %q", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}

// ── one-shot capability serving ──────────────────────────────────────

func TestListenOneShotCapability(t *testing.T) {
	addr := freeTCPAddr(t)

	m := &ListenMode{
		Address: addr,
		Capability: &capability.Message{
			Text:    "greetings",
			Printer: testPrinter(),
		},
		PollInterval: testInterval,
		Printer:      testPrinter(),
		Logger:       testLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	client := dialWithin(t, addr)
	if got := readWithin(t, client, 2*time.Second); got != "greetings\n" {
		t.Errorf("client got %q", got)
	}

	// One-shot: the listener returns after serving the connection.
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listener returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot listener kept running")
	}
}

// failingCapability reports an error for every connection served.
type failingCapability struct{ err error }

func (f failingCapability) Handle(ctx context.Context, sess *session.Session) error {
	return f.err
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestKeepOpenServeErrorIsReported(t *testing.T) {
	addr := freeTCPAddr(t)

	var logged syncBuffer
	logger := util.NewLogger(0)
	logger.SetOutput(&logged)

	m := &ListenMode{
		Address:      addr,
		Capability:   failingCapability{err: errors.New("handler exploded")},
		KeepOpen:     true,
		PollInterval: testInterval,
		Printer:      testPrinter(),
		Logger:       logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	client := dialWithin(t, addr)
	client.Close()

	// Keep-open serving runs each connection on its own goroutine; the
	// error must still surface through the logger.
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(logged.String(), "handler exploded") {
		if time.Now().After(deadline) {
			t.Fatal("serve error was never logged")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	m := &ListenMode{
		Address:   ln.Addr().String(), // already taken
		Broadcast: true,
		Printer:   testPrinter(),
		Logger:    testLogger(),
	}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected bind error")
	}
}

// blockedReader stands in for stdin that never produces data.
type blockedReader struct{}

func (blockedReader) Read(p []byte) (int, error) {
	select {} // block forever
}
