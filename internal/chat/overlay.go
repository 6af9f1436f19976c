package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/internal/session"
	"ndog/util"
)

const commandPrefix = "/"

const helpText = "=== ndog chat commands ===\r\n" +
	"/help     - Show this help message\r\n" +
	"/clear    - Clear the screen\r\n" +
	"/quit     - Exit the chat session\r\n" +
	"/status   - Show connection status\r\n" +
	"/whoami   - Show your address information\r\n"

// Overlay runs an interactive chat session over a duplex channel.
// It owns the session for the duration of Run and closes it on exit.
type Overlay struct {
	Session *session.Session
	Printer *display.Printer
	Logger  *util.Logger
	Metrics *metrics.Collector

	// In is the local key source; defaults to os.Stdin.  When it is a
	// terminal the overlay switches it to raw mode for per-keystroke
	// editing; otherwise input is consumed byte-wise as-is.
	In io.Reader

	// PollInterval bounds the inbound read wait.
	PollInterval time.Duration

	editor Editor
	you    *color.Color
	recv   *color.Color
}

func (o *Overlay) in() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

// Run drives the chat loop until /quit, Ctrl+C, peer disconnect, or
// context cancellation.
func (o *Overlay) Run(ctx context.Context) error {
	interval := o.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	o.you = color.New(color.FgBlue)
	o.recv = color.New(color.FgGreen)
	if o.Printer == nil || !o.Printer.ColorEnabled() {
		o.you.DisableColor()
		o.recv.DisableColor()
	}

	// Raw mode only when the input really is a terminal; tests and
	// pipes fall through to plain byte-wise input.
	if f, ok := o.in().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		old, err := term.MakeRaw(int(f.Fd()))
		if err == nil {
			defer term.Restore(int(f.Fd()), old) //nolint:errcheck
		}
	}

	defer o.Session.Close()

	o.Printer.Notice("chat session started; type %shelp for commands", commandPrefix)
	o.renderPrompt()

	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	// Key feeder: blocking byte reads off the local input.
	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := o.in().Read(buf)
			if n > 0 {
				select {
				case keys <- buf[0]:
				case <-stop:
					return
				}
			}
			if err != nil {
				halt()
				return
			}
		}
	}()

	// Inbound feeder: deadline-polled session reads.
	inbound := make(chan []byte)
	go func() {
		buf := util.GetBuf()
		defer util.PutBuf(buf)
		for {
			select {
			case <-stop:
				return
			default:
			}
			o.Session.SetReadDeadline(time.Now().Add(interval)) //nolint:errcheck
			n, err := o.Session.Read(*buf)
			if n > 0 {
				o.Metrics.BytesReceived(int64(n))
				data := make([]byte, n)
				copy(data, (*buf)[:n])
				select {
				case inbound <- data:
				case <-stop:
					return
				}
			}
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				o.Logger.Verbose("connection closed by remote host")
				halt()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			halt()
			o.write("\r\n")
			o.Printer.Notice("chat session terminated")
			return nil
		case <-stop:
			o.write("\r\n")
			o.Printer.Notice("chat session ended")
			return nil
		case data := <-inbound:
			o.renderInbound(data)
		case key := <-keys:
			if done := o.handleKey(key); done {
				halt()
				o.write("\r\n")
				o.Printer.Notice("chat session terminated")
				return nil
			}
		}
	}
}

// handleKey processes one keystroke; returns true to end the session.
func (o *Overlay) handleKey(key byte) bool {
	switch {
	case key == 3: // Ctrl+C
		return true
	case key == '\r' || key == '\n':
		o.write("\r\n")
		line := o.editor.Submit()
		if line == "" {
			o.renderPrompt()
			return false
		}
		if strings.HasPrefix(line, commandPrefix) {
			quit := o.runCommand(line)
			if quit {
				return true
			}
			o.renderPrompt()
			return false
		}
		if _, err := o.Session.Write([]byte(line + "\n")); err != nil {
			o.Printer.Failure("send failed: %v", err)
			return true
		}
		o.Metrics.BytesSent(int64(len(line) + 1))
		o.renderPrompt()
	case key == 127 || key == 8: // Backspace
		if o.editor.Backspace() {
			o.write("\b \b")
		}
	case key >= 32 && key < 127:
		o.editor.Insert(rune(key))
		o.write(string(rune(key)))
	}
	return false
}

// runCommand dispatches a /command; returns true for /quit.  Commands
// are local side-effects only and never reach the network.
func (o *Overlay) runCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/help":
		o.write(helpText)
	case "/clear":
		o.write("\x1b[2J\x1b[H")
	case "/quit":
		return true
	case "/status":
		s := o.Metrics.Snapshot()
		o.write(fmt.Sprintf("[*] %s to %v (%s), state %s\r\n",
			strings.ToUpper(o.Session.Kind().String()),
			o.Session.RemoteAddr(), uptimeOrDash(s.Uptime), o.Session.State()))
		o.write(fmt.Sprintf("[*] bytes in/out: %d/%d\r\n", s.BytesIn, s.BytesOut))
	case "/whoami":
		o.write(fmt.Sprintf("[*] your address: %v\r\n", o.Session.LocalAddr()))
	default:
		o.write(fmt.Sprintf("[*] unknown command; type %shelp for the list\r\n", commandPrefix))
	}
	return false
}

// renderInbound keeps a half-typed line intact: erase the rendered
// input, print the arriving data, ring the bell, re-render the still
// pending buffer.  Display ordering only; the buffer itself is never
// touched.
func (o *Overlay) renderInbound(data []byte) {
	pending := o.editor.String()
	o.write("\r" + strings.Repeat(" ", len(pending)+promptWidth) + "\r")

	text := strings.TrimRight(string(data), "\n")
	for _, ln := range strings.Split(text, "\n") {
		o.write(o.recv.Sprint("[recv] ") + ln + "\r\n")
	}
	o.write("\a") // bell

	o.renderPrompt()
	o.write(pending)
}

const promptWidth = 6 // len("[you] ")

func (o *Overlay) renderPrompt() {
	o.write(o.you.Sprint("[you] "))
}

func (o *Overlay) write(s string) {
	o.Printer.Raw([]byte(s))
}

func uptimeOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return "up " + s
}
