// Package session represents a single connection lifecycle: one
// transport handle (TCP or UDP, optionally TLS-wrapped) moving through
// Idle -> Connecting -> Connected -> Closing -> Closed.
//
// Capabilities operate on sessions rather than raw connections, so
// they never care whether bytes travel over a stream, a connected UDP
// socket, or an unconnected listener socket with a tagged target.
package session

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	ndogerr "ndog/internal/errors"
	"ndog/internal/transport"
	"ndog/util"
)

// Kind is the transport variant.  UDP sessions carry a logical target
// address because the protocol has no connections.
type Kind int

const (
	TCP Kind = iota
	UDP
)

func (k Kind) String() string {
	if k == UDP {
		return "udp"
	}
	return "tcp"
}

// State is the lifecycle position of a session.
type State int32

const (
	Idle State = iota
	Connecting
	Connected
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Session owns one transport handle.  It is created by exactly one
// loop and closed exactly once; Close is safe to call from any
// goroutine that detects termination.
type Session struct {
	conn  net.Conn       // nil for unconnected packet sessions
	pconn net.PacketConn // set instead of conn for UDP listeners
	kind  Kind
	tlsOn bool

	// target is the UDP logical remote, nil until known.  Read
	// records the last sender into it while Write routes to it, and
	// those calls run on different goroutines (chat, relay).
	targetMu sync.RWMutex
	target   net.Addr

	state     atomic.Int32
	closeOnce sync.Once
	logger    *util.Logger
}

// Connect dials the remote endpoint and returns a Connected session.
// For TCP this is a real connect with the dialer's timeout; for UDP it
// is a socket association plus a probe datagram.  When tlsConf is
// non-nil a TLS handshake follows the transport-level connect; a
// handshake failure closes the socket and the session never reaches
// Connected.
func Connect(ctx context.Context, d transport.Dialer, kind Kind, address string,
	tlsConf *tls.Config, logger *util.Logger) (*Session, error) {

	s := &Session{kind: kind, logger: logger}
	s.state.Store(int32(Connecting))

	conn, err := d.Dial(ctx, kind.String(), address)
	if err != nil {
		s.state.Store(int32(Closed))
		return nil, ndogerr.WrapConnect(kind.String(), address, err)
	}

	if tlsConf != nil {
		tc := tls.Client(conn, tlsConf)
		if err := tc.HandshakeContext(ctx); err != nil {
			conn.Close()
			s.state.Store(int32(Closed))
			return nil, ndogerr.WrapTLS("handshake", address, err)
		}
		conn = tc
		s.tlsOn = true
	}

	s.conn = conn
	if kind == UDP {
		s.target = conn.RemoteAddr()
	}
	s.state.Store(int32(Connected))

	logger.Verbose("connected to %s (%s)", conn.RemoteAddr(), s.describe())
	return s, nil
}

// Wrap adopts an already-established connection (an accepted TCP
// client, possibly TLS-wrapped) as a Connected session.
func Wrap(conn net.Conn, kind Kind, tlsOn bool, logger *util.Logger) *Session {
	s := &Session{conn: conn, kind: kind, tlsOn: tlsOn, logger: logger}
	if kind == UDP {
		s.target = conn.RemoteAddr()
	}
	s.state.Store(int32(Connected))
	return s
}

// WrapPacket adopts an unconnected UDP listener socket.  target may be
// nil until the first datagram reveals a correspondent; writes before
// that fail with ErrNotConnected.
func WrapPacket(pc net.PacketConn, target net.Addr, logger *util.Logger) *Session {
	s := &Session{pconn: pc, kind: UDP, target: target, logger: logger}
	s.state.Store(int32(Connected))
	return s
}

// ── Accessors ────────────────────────────────────────────────────────

// Kind returns the transport variant.
func (s *Session) Kind() Kind { return s.kind }

// TLS reports whether the session is TLS-wrapped.
func (s *Session) TLS() bool { return s.tlsOn }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// LocalAddr returns the local endpoint.
func (s *Session) LocalAddr() net.Addr {
	if s.pconn != nil {
		return s.pconn.LocalAddr()
	}
	if s.conn != nil {
		return s.conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote endpoint: the peer for TCP, the
// logical target for UDP (nil when no correspondent is known yet).
func (s *Session) RemoteAddr() net.Addr {
	s.targetMu.RLock()
	target := s.target
	s.targetMu.RUnlock()
	if target != nil {
		return target
	}
	if s.conn != nil {
		return s.conn.RemoteAddr()
	}
	return nil
}

// SetTarget records the UDP correspondent for subsequent writes.
func (s *Session) SetTarget(addr net.Addr) {
	s.targetMu.Lock()
	s.target = addr
	s.targetMu.Unlock()
}

// Conn exposes the underlying stream connection (nil for packet
// sessions).  Used by the acceptor for relay fan-out.
func (s *Session) Conn() net.Conn { return s.conn }

// ── I/O ──────────────────────────────────────────────────────────────

// Read reads payload bytes.  On an unconnected UDP socket this
// accepts a datagram from any source and records the sender as the
// new target, so replies go to whoever spoke last.
func (s *Session) Read(p []byte) (int, error) {
	if s.pconn != nil {
		n, addr, err := s.pconn.ReadFrom(p)
		if err == nil && addr != nil {
			s.SetTarget(addr)
		}
		return n, err
	}
	return s.conn.Read(p)
}

// Write writes payload bytes, routing unconnected-UDP writes to the
// tagged target address.  Writing on a closed session fails with
// ErrClosed.
func (s *Session) Write(p []byte) (int, error) {
	if s.State() == Closed {
		return 0, ndogerr.ErrClosed
	}
	if s.pconn != nil {
		s.targetMu.RLock()
		target := s.target
		s.targetMu.RUnlock()
		if target == nil {
			return 0, ndogerr.ErrNotConnected
		}
		return s.pconn.WriteTo(p, target)
	}
	return s.conn.Write(p)
}

// SetReadDeadline bounds the next Read; the duplex pump uses this for
// its poll interval.
func (s *Session) SetReadDeadline(t time.Time) error {
	if s.pconn != nil {
		return s.pconn.SetReadDeadline(t)
	}
	return s.conn.SetReadDeadline(t)
}

// CloseWrite half-closes the send direction when the transport
// supports it (plain TCP), signalling EOF to the peer while the read
// direction keeps draining.
func (s *Session) CloseWrite() error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	if tc, ok := s.conn.(*tls.Conn); ok {
		return tc.CloseWrite()
	}
	return nil
}

// BeginClose marks the session as shutting down.  The first loop that
// detects termination calls this; the state drives display decisions
// only, Close does the actual teardown.
func (s *Session) BeginClose() {
	s.state.CompareAndSwap(int32(Connected), int32(Closing))
}

// Close shuts the transport down exactly once and transitions the
// session to Closed.  Idempotent and safe for concurrent use.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		if s.conn != nil {
			err = s.conn.Close()
		}
		if s.pconn != nil {
			err = s.pconn.Close()
		}
		s.state.Store(int32(Closed))
		if s.logger != nil {
			s.logger.Verbose("session closed (%s)", s.describe())
		}
	})
	return err
}

func (s *Session) describe() string {
	d := s.kind.String()
	if s.tlsOn {
		d += "+tls"
	}
	return d
}
