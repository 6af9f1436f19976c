// Package transfer implements the minimal file-transfer framing: a
// textual "name:size" header followed by exactly size payload bytes in
// 8 KiB chunks.
//
// On TCP the header is one newline-terminated line at the start of the
// stream; on UDP it is a single bare datagram and every chunk after it
// is its own unacknowledged datagram.  Loss of any UDP datagram is
// silently unrecoverable; the receiver's idle deadline converts that
// into an incomplete-transfer warning instead of a hang.
package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ndog/internal/display"
	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/internal/session"
	"ndog/util"
)

// PlaceholderName is used when the header cannot be parsed.
const PlaceholderName = "unknown"

const (
	// headerSettle gives a UDP receiver time to process the header
	// datagram before payload follows.
	headerSettle = 100 * time.Millisecond

	// chunkPace throttles UDP payload datagrams so a slow receiver
	// is not overwhelmed.
	chunkPace = 10 * time.Millisecond

	// defaultIdleTimeout bounds how long the receiver waits for the
	// next chunk before declaring the transfer over.
	defaultIdleTimeout = 5 * time.Second
)

// Header is the transfer preamble.  Size is the exact count of payload
// bytes that follow.
type Header struct {
	Name string
	Size int64
}

// Encode renders the wire form "name:size" (no terminator; the TCP
// sender appends the newline itself).
func (h Header) Encode() []byte {
	return []byte(fmt.Sprintf("%s:%d", h.Name, h.Size))
}

// ParseHeader recovers name and size from the first line/datagram of a
// transfer.  Parsing never fails: a missing separator degrades the
// name to PlaceholderName, an unparseable size degrades to 0.
func ParseHeader(raw []byte) Header {
	s := strings.TrimRight(string(raw), "\r\n")

	name, sizeStr, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Header{Name: PlaceholderName, Size: 0}
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil || size < 0 {
		return Header{Name: name, Size: 0}
	}
	return Header{Name: name, Size: size}
}

// Result describes a finished receive.
type Result struct {
	Path     string // where the bytes were written
	Name     string // sender-declared name
	Declared int64
	Received int64
}

// Complete reports whether every declared byte arrived.
func (r *Result) Complete() bool { return r.Received >= r.Declared }

// Codec drives file transfers over a session.
type Codec struct {
	Logger  *util.Logger
	Printer *display.Printer
	Metrics *metrics.Collector

	// IdleTimeout overrides defaultIdleTimeout when > 0.
	IdleTimeout time.Duration
}

// ── Send ─────────────────────────────────────────────────────────────

// Send writes the header and then the file in fixed-size chunks.  No
// acknowledgment is expected on either transport.  For TCP the write
// side is half-closed afterwards so the receiver sees a clean EOF.
func (c *Codec) Send(ctx context.Context, sess *session.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ndogerr.TransferError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &ndogerr.TransferError{Path: path, Err: err}
	}

	hdr := Header{Name: filepath.Base(path), Size: info.Size()}
	c.Printer.Notice("sending %s (%d bytes)", path, hdr.Size)

	udp := sess.Kind() == session.UDP
	record := hdr.Encode()
	if !udp {
		record = append(record, '\n')
	}
	if _, err := sess.Write(record); err != nil {
		return &ndogerr.TransferError{Path: path, Err: err}
	}
	if udp {
		time.Sleep(headerSettle)
	}

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	var sent int64
	for sent < hdr.Size {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, rerr := f.Read(*buf)
		if n > 0 {
			if _, werr := sess.Write((*buf)[:n]); werr != nil {
				return &ndogerr.TransferError{Path: path, Err: werr}
			}
			sent += int64(n)
			c.Metrics.BytesSent(int64(n))
			c.Logger.Verbose("sent %d/%d bytes", sent, hdr.Size)
			if udp {
				time.Sleep(chunkPace)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return &ndogerr.TransferError{Path: path, Err: rerr}
		}
	}

	if !udp {
		sess.CloseWrite() //nolint:errcheck
	}
	c.Metrics.TransferCompleted()
	c.Printer.Success("file sent (%d bytes)", sent)
	return nil
}

// ── Receive ──────────────────────────────────────────────────────────

// Receive reads the header, then exactly the declared byte count (or
// until the transport closes or goes idle, whichever comes first),
// writing incrementally to dest.  dest "" or "-" means use the
// sender-declared name.  A short transfer is a warning, not an error;
// bytes already written stay on disk.
func (c *Codec) Receive(ctx context.Context, sess *session.Session, dest string) (*Result, error) {
	idle := c.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}

	hdr, payload, err := c.readHeader(ctx, sess, idle)
	if err != nil {
		return nil, &ndogerr.TransferError{Path: dest, Err: err}
	}

	if dest == "" || dest == "-" {
		dest = hdr.Name
	}
	c.Printer.Notice("receiving %s (%d bytes) -> %s", hdr.Name, hdr.Size, dest)

	f, err := os.Create(dest)
	if err != nil {
		return nil, &ndogerr.TransferError{Path: dest, Err: err}
	}
	defer f.Close()

	res := &Result{Path: dest, Name: hdr.Name, Declared: hdr.Size}

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for res.Received < hdr.Size {
		select {
		case <-ctx.Done():
			c.warnIfShort(res)
			return res, nil
		default:
		}

		want := int64(len(*buf))
		if remaining := hdr.Size - res.Received; remaining < want {
			want = remaining
		}

		sess.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck
		n, rerr := payload.Read((*buf)[:want])
		if n > 0 {
			if _, werr := f.Write((*buf)[:n]); werr != nil {
				return res, &ndogerr.TransferError{Path: dest, Received: res.Received, Err: werr}
			}
			res.Received += int64(n)
			c.Metrics.BytesReceived(int64(n))
			c.Logger.Verbose("received %d/%d bytes", res.Received, hdr.Size)
		}
		if rerr != nil {
			// EOF, close, or idle expiry all end the transfer; how
			// much arrived decides complete vs. short.
			break
		}
	}

	c.Metrics.TransferCompleted()
	if res.Complete() {
		c.Printer.Success("file received: %s (%d bytes)", dest, res.Received)
	} else {
		c.warnIfShort(res)
	}
	return res, nil
}

// readHeader consumes the first line (TCP) or first datagram (UDP) and
// returns the parsed header plus the reader to continue payload reads
// from.  On TCP a buffered reader is returned because bytes after the
// newline already read into the buffer belong to the payload.
func (c *Codec) readHeader(ctx context.Context, sess *session.Session, idle time.Duration) (Header, io.Reader, error) {
	sess.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck

	if sess.Kind() == session.UDP {
		buf := make([]byte, util.ChunkSize)
		for {
			select {
			case <-ctx.Done():
				return Header{}, nil, ctx.Err()
			default:
			}
			n, err := sess.Read(buf)
			if err != nil {
				return Header{}, nil, err
			}
			if n == 0 {
				// Empty probe datagram from a connecting client.
				sess.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck
				continue
			}
			return ParseHeader(buf[:n]), sess, nil
		}
	}

	br := bufio.NewReaderSize(sess, util.ChunkSize)
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return Header{}, nil, err
	}
	return ParseHeader([]byte(line)), br, nil
}

func (c *Codec) warnIfShort(res *Result) {
	if !res.Complete() {
		c.Printer.Failure("incomplete transfer: %d/%d bytes (kept %s)",
			res.Received, res.Declared, res.Path)
		c.Metrics.RecordError(ndogerr.Incomplete(res.Path, res.Received, res.Declared).Error())
	}
}
