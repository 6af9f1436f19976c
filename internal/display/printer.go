// Package display renders operator-facing output: payload data,
// status notices, hex dumps, and the optional plain-text log mirror.
//
// Diagnostics go through util.Logger; everything the operator is meant
// to read goes through a Printer so that colour, timestamps, and the
// log mirror apply uniformly.
package display

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ansiRe matches SGR colour escape sequences for the log mirror.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Options configures a Printer.
type Options struct {
	Out        io.Writer // defaults to os.Stdout
	LogFile    io.Writer // optional plain-text mirror, colours stripped
	Color      bool
	Timestamps bool // prepend HH:MM:SS to each rendered line
	HexDump    bool // render payload as a hex dump instead of raw text
}

// Printer is safe for concurrent use; every rendered line takes the
// same lock so interleaved output stays line-atomic.
type Printer struct {
	mu   sync.Mutex
	out  io.Writer
	log  io.Writer
	opts Options

	notice  *color.Color // yellow: state changes
	success *color.Color // green: completed operations
	failure *color.Color // red: errors
	peer    *color.Color // blue: remote addresses
}

// New builds a Printer from opts.
func New(opts Options) *Printer {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	p := &Printer{
		out:     opts.Out,
		log:     opts.LogFile,
		opts:    opts,
		notice:  color.New(color.FgYellow),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		peer:    color.New(color.FgBlue),
	}
	if !opts.Color {
		for _, c := range []*color.Color{p.notice, p.success, p.failure, p.peer} {
			c.DisableColor()
		}
	}
	return p
}

// HexDump reports whether payload rendering is in hex-dump mode.
func (p *Printer) HexDump() bool { return p.opts.HexDump }

// ColorEnabled reports whether colour output is on.
func (p *Printer) ColorEnabled() bool { return p.opts.Color }

// Notice prints a yellow status line.
func (p *Printer) Notice(format string, args ...interface{}) {
	p.line(p.notice.Sprintf("[*] "+format, args...))
}

// Success prints a green completion line.
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(p.success.Sprintf("[+] "+format, args...))
}

// Failure prints a red error line.
func (p *Printer) Failure(format string, args ...interface{}) {
	p.line(p.failure.Sprintf("[!] "+format, args...))
}

// Payload renders inbound data.  A non-empty from is shown as a
// blue [addr] prefix.  In hex-dump mode the data is formatted as an
// offset/hex/ASCII table; otherwise it is written through verbatim.
func (p *Printer) Payload(from string, data []byte) {
	if p.opts.HexDump {
		if from != "" {
			p.line(p.peer.Sprintf("[%s]", from))
		}
		p.line(FormatHex(data))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if from != "" {
		fmt.Fprint(p.out, p.peer.Sprintf("[%s] ", from))
	}
	p.out.Write(data) //nolint:errcheck
	if p.log != nil {
		if from != "" {
			fmt.Fprintf(p.log, "[%s] ", from)
		}
		p.log.Write(ansiRe.ReplaceAll(data, nil)) //nolint:errcheck
	}
}

// Raw writes bytes through unmodified (outbound echo in pipe mode is
// not rendered; this is for payload that must not gain prefixes).
func (p *Printer) Raw(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Write(data) //nolint:errcheck
	if p.log != nil {
		p.log.Write(ansiRe.ReplaceAll(data, nil)) //nolint:errcheck
	}
}

// line emits one record: timestamped, newline-terminated, mirrored.
func (p *Printer) line(s string) {
	if p.opts.Timestamps {
		s = time.Now().Format("15:04:05") + " " + s
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
	if p.log != nil {
		fmt.Fprintln(p.log, string(ansiRe.ReplaceAll([]byte(s), nil)))
	}
}

// PayloadWriter adapts the Printer to io.Writer for loops that stream
// inbound payload (the duplex pump).  Every Write is rendered through
// Payload with the fixed from prefix.
func (p *Printer) PayloadWriter(from string) io.Writer {
	return &payloadWriter{p: p, from: from}
}

type payloadWriter struct {
	p    *Printer
	from string
}

func (w *payloadWriter) Write(data []byte) (int, error) {
	w.p.Payload(w.from, data)
	return len(data), nil
}

// StripANSI removes colour escape sequences from s.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
