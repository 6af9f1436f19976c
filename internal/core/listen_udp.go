package core

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"ndog/internal/capability"
	"ndog/internal/display"
	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/internal/peers"
	"ndog/internal/session"
	"ndog/util"
)

// UDPListenMode binds a UDP socket.  With a capability configured it
// wraps the socket in a packet session (replies go to the most recent
// sender).  Otherwise it runs the datagram relay: every sender is
// registered as a peer, inbound datagrams fan out to all other peers,
// and idle peers are evicted by a periodic sweep.
type UDPListenMode struct {
	Address    string
	Capability capability.Capability // nil selects the relay

	KeepOpen      bool
	PollInterval  time.Duration
	SweepInterval time.Duration
	IdleThreshold time.Duration

	// In defaults to os.Stdin; override in tests.
	In io.Reader

	Printer *display.Printer
	Metrics *metrics.Collector
	Logger  *util.Logger
}

func (m *UDPListenMode) in() io.Reader {
	if m.In != nil {
		return m.In
	}
	return os.Stdin
}

func (m *UDPListenMode) interval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return 200 * time.Millisecond
}

func (m *UDPListenMode) sweepEvery() time.Duration {
	if m.SweepInterval > 0 {
		return m.SweepInterval
	}
	return 5 * time.Second
}

func (m *UDPListenMode) idleAfter() time.Duration {
	if m.IdleThreshold > 0 {
		return m.IdleThreshold
	}
	return 60 * time.Second
}

// Run binds the socket and serves until the context is cancelled.
func (m *UDPListenMode) Run(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", m.Address)
	if err != nil {
		return ndogerr.WrapBind("udp", m.Address, err)
	}
	defer pc.Close()

	m.Logger.Verbose("listening on %s (udp)", pc.LocalAddr())
	m.Printer.Notice("listening on %s (UDP)", pc.LocalAddr())

	if m.Capability != nil {
		sess := session.WrapPacket(pc, nil, m.Logger)
		defer sess.Close()

		m.Metrics.ConnectionOpened()
		defer m.Metrics.ConnectionClosed()

		return m.Capability.Handle(ctx, sess)
	}

	return m.runRelay(ctx, pc)
}

func (m *UDPListenMode) runRelay(ctx context.Context, pc net.PacketConn) error {
	reg := peers.NewRegistry()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	// Evict peers that have gone quiet.
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(m.sweepEvery())
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				for _, addr := range reg.Sweep(now, m.idleAfter()) {
					m.Logger.Verbose("evicted idle peer %s", addr)
					m.Printer.Notice("peer %s timed out", addr)
					m.Metrics.PeerEvicted()
				}
			}
		}
	}()

	// Local input goes to every registered peer.
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
					for _, addr := range reg.Snapshot() {
						if _, werr := pc.WriteTo(c.data, addr); werr != nil {
							m.Logger.Debug("send to %s: %v", addr, werr)
							continue
						}
						m.Metrics.BytesSent(int64(len(c.data)))
					}
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

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		default:
		}

		pc.SetReadDeadline(time.Now().Add(m.interval())) //nolint:errcheck
		n, from, err := pc.ReadFrom(*buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-ctx.Done():
			default:
				m.Logger.Error("read: %v", err)
			}
			cancel()
			wg.Wait()
			return nil
		}

		// Zero-length datagrams still register the sender; clients
		// announce themselves with an empty probe on connect.
		others := reg.OnReceive(from, time.Now())
		if n == 0 {
			m.Logger.Debug("probe from %s", from)
			continue
		}

		data := (*buf)[:n]
		m.Metrics.BytesReceived(int64(n))
		m.Printer.Payload(from.String(), data)

		for _, addr := range others {
			if _, werr := pc.WriteTo(data, addr); werr != nil {
				m.Logger.Debug("relay to %s: %v", addr, werr)
				continue
			}
			m.Metrics.MessageRelayed()
		}
	}
}
