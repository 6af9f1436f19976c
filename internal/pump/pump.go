// Package pump implements the duplex byte pump: two concurrently
// scheduled directions moving data between a session and the local
// input/output, with a bounded shutdown latency.
//
// The network direction polls with per-iteration read deadlines; the
// local-input direction feeds a channel so the pump's select observes
// the shared stop signal within one poll interval even when no data is
// flowing.  Within each direction bytes are forwarded in the exact
// order they were read; no ordering exists between directions.
package pump

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/internal/session"
	"ndog/util"
)

// DefaultPollInterval bounds how long either direction waits before
// re-checking the stop signal.
const DefaultPollInterval = 200 * time.Millisecond

// Pump moves bytes bidirectionally between a session and a local
// reader/writer pair.  Run owns the session: it closes it on the way
// out, so the caller must not reuse the session afterwards.
type Pump struct {
	Session *session.Session
	In      io.Reader // local input (stdin, a test buffer, ...)
	Out     io.Writer // local output for inbound payload

	// KeepOpen leaves the session receiving after local-input EOF
	// instead of closing it.
	KeepOpen bool

	// PollInterval overrides DefaultPollInterval when > 0.
	PollInterval time.Duration

	Metrics *metrics.Collector
	Logger  *util.Logger
}

type chunk struct {
	data []byte
	err  error
}

// Run pumps until the peer closes, local input ends (unless
// KeepOpen), an error occurs, or ctx is cancelled.  Total shutdown
// latency after any of these is bounded by one poll interval.
func (p *Pump) Run(ctx context.Context) error {
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// ── inbound: session -> local output ─────────────────────────
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer halt()

		buf := util.GetBuf()
		defer util.PutBuf(buf)

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			p.Session.SetReadDeadline(time.Now().Add(interval)) //nolint:errcheck
			n, err := p.Session.Read(*buf)
			if n > 0 {
				p.Metrics.BytesReceived(int64(n))
				if _, werr := p.Out.Write((*buf)[:n]); werr != nil {
					errCh <- werr
					return
				}
			}
			if err != nil {
				if isTimeout(err) {
					continue
				}
				// A zero-length stream read is the peer closing.
				if !isHarmless(err) {
					errCh <- err
				} else if p.Logger != nil {
					p.Logger.Verbose("connection closed by remote host")
				}
				p.Session.BeginClose()
				return
			}
		}
	}()

	// ── outbound: local input -> session ─────────────────────────
	//
	// The feeder performs the blocking reads; the direction loop only
	// ever blocks on select, so stop is always observed promptly.
	inCh := make(chan chunk)
	go func() {
		for {
			buf := make([]byte, util.ChunkSize)
			n, err := p.In.Read(buf)
			select {
			case inCh <- chunk{data: buf[:n], err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				halt()
				return
			case c := <-inCh:
				if len(c.data) > 0 {
					if _, err := p.Session.Write(c.data); err != nil {
						if !isHarmless(err) {
							errCh <- err
						}
						halt()
						return
					}
					p.Metrics.BytesSent(int64(len(c.data)))
				}
				if c.err != nil {
					if p.KeepOpen {
						// Stop sending, keep receiving indefinitely.
						return
					}
					p.Session.CloseWrite() //nolint:errcheck
					p.Session.BeginClose()
					halt()
					return
				}
			}
		}
	}()

	select {
	case <-stop:
	case <-ctx.Done():
		halt()
	}

	p.Session.Close() // unblock any pending reads/writes
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isHarmless(err) {
			return err
		}
	}
	return nil
}

// isTimeout reports whether err is a read-deadline expiry, which is
// the normal poll tick rather than a failure.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isHarmless returns true for errors that are expected during
// shutdown or peer-initiated close.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	if errors.Is(err, ndogerr.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
