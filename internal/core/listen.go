package core

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"ndog/internal/capability"
	"ndog/internal/display"
	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/internal/peers"
	"ndog/internal/session"
	"ndog/util"
)

// ListenMode accepts inbound TCP connections.  With a one-shot
// capability configured (file transfer, chat) it serves connections
// through that capability; otherwise it runs the multi-client
// broadcast relay, forwarding data received from one client verbatim
// to every other.
type ListenMode struct {
	Address string
	TLSConf *tls.Config // nil for plaintext

	// Broadcast selects the multi-client relay; Capability is used
	// otherwise.
	Broadcast  bool
	Capability capability.Capability

	KeepOpen     bool
	MaxClients   int // 0 = unlimited
	PollInterval time.Duration

	// In defaults to os.Stdin; override in tests.
	In io.Reader

	Printer *display.Printer
	Metrics *metrics.Collector
	Logger  *util.Logger
}

func (m *ListenMode) in() io.Reader {
	if m.In != nil {
		return m.In
	}
	return os.Stdin
}

func (m *ListenMode) interval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return 200 * time.Millisecond
}

// Run starts listening and serves until the context is cancelled.
func (m *ListenMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return ndogerr.WrapBind("tcp", m.Address, err)
	}
	if m.MaxClients > 0 {
		ln = netutil.LimitListener(ln, m.MaxClients)
	}
	defer ln.Close()

	m.Logger.Verbose("listening on %s (tcp)", ln.Addr())
	m.Printer.Notice("listening on %s (TCP)", ln.Addr())

	// Shut the listener down when the context expires; Accept
	// unblocks immediately, so the shutdown bound holds without an
	// accept deadline.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	if m.Broadcast {
		return m.runBroadcast(ctx, ln)
	}
	return m.runCapability(ctx, ln)
}

// ── one-shot / capability serving ────────────────────────────────────

func (m *ListenMode) runCapability(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return ndogerr.WrapBind("tcp", m.Address, err)
			}
		}

		m.Logger.Verbose("connection from %s", conn.RemoteAddr())

		sess, ok := m.newSession(ctx, conn)
		if !ok {
			continue // TLS failure rejects only this connection
		}

		if m.KeepOpen {
			go func(remote net.Addr) {
				if err := m.serve(ctx, sess); err != nil {
					m.Logger.Error("client %s: %v", remote, err)
					m.Printer.Failure("client %s: %v", remote, err)
					m.Metrics.RecordError(err.Error())
				}
			}(conn.RemoteAddr())
		} else {
			return m.serve(ctx, sess)
		}
	}
}

func (m *ListenMode) serve(ctx context.Context, sess *session.Session) error {
	defer sess.Close()

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()

	return m.Capability.Handle(ctx, sess)
}

// ── multi-client broadcast relay ─────────────────────────────────────

func (m *ListenMode) runBroadcast(ctx context.Context, ln net.Listener) error {
	clients := peers.NewClientSet()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The watcher in Run only sees the parent context; local stop
	// reasons (stdin EOF) cancel the derived one, so Accept needs its
	// own unblocking here.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup

	// Local input fans out to every client.
	wg.Add(1)
	go func() {
		defer wg.Done()
		in := feedInput(m.in(), ctx.Done())
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-in:
				if len(c.data) > 0 {
					n := clients.Broadcast(c.data, "")
					m.Metrics.BytesSent(int64(len(c.data) * n))
				}
				if c.err != nil {
					if !m.KeepOpen {
						cancel()
					}
					return
				}
			}
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				m.Logger.Error("accept: %v", err)
				cancel()
			}
			break
		}

		m.Logger.Verbose("connection from %s", conn.RemoteAddr())
		m.Printer.Notice("connection from %v", conn.RemoteAddr())

		tlsConn, ok := m.wrapTLS(ctx, conn)
		if !ok {
			continue
		}

		clients.Add(tlsConn)
		m.Metrics.ConnectionOpened()

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			m.handleClient(ctx, c, clients)
		}(tlsConn)
	}

	// Stop accepting first, then force-close every registered client;
	// their loops exit within one poll interval.
	cancel()
	clients.CloseAll()
	wg.Wait()
	return nil
}

// handleClient reads from one client and relays to all others.  A
// send failure to an individual peer is swallowed; that peer's own
// loop cleans it up on its next read failure.
func (m *ListenMode) handleClient(ctx context.Context, conn net.Conn, clients *peers.ClientSet) {
	addr := conn.RemoteAddr().String()

	defer func() {
		clients.Remove(conn)
		conn.Close()
		m.Metrics.ConnectionClosed()
	}()

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(m.interval())) //nolint:errcheck
		n, err := conn.Read(*buf)
		if n > 0 {
			data := (*buf)[:n]
			m.Metrics.BytesReceived(int64(n))
			m.Printer.Payload(addr, data)

			delivered := clients.Broadcast(data, addr)
			for i := 0; i < delivered; i++ {
				m.Metrics.MessageRelayed()
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			m.Logger.Verbose("connection closed by %s", addr)
			m.Printer.Notice("connection closed by %s", addr)
			return
		}
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// newSession TLS-wraps (if configured) and adopts an accepted conn.
// A handshake failure rejects only that connection.
func (m *ListenMode) newSession(ctx context.Context, conn net.Conn) (*session.Session, bool) {
	c, ok := m.wrapTLS(ctx, conn)
	if !ok {
		return nil, false
	}
	return session.Wrap(c, session.TCP, m.TLSConf != nil, m.Logger), true
}

func (m *ListenMode) wrapTLS(ctx context.Context, conn net.Conn) (net.Conn, bool) {
	if m.TLSConf == nil {
		return conn, true
	}
	tc := tls.Server(conn, m.TLSConf)
	if err := tc.HandshakeContext(ctx); err != nil {
		terr := ndogerr.WrapTLS("handshake", conn.RemoteAddr().String(), err)
		m.Logger.Error("%v", terr)
		m.Metrics.RecordError(terr.Error())
		conn.Close()
		return nil, false
	}
	return tc, true
}

func isTimeout(err error) bool {
	var ne net.Error
	return ndogerr.As(err, &ne) && ne.Timeout()
}
