package capability

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/internal/session"
)

// HTTPGet issues one GET request over the session and renders the
// response: status line, headers, then the body as payload.
type HTTPGet struct {
	Host string
	Path string // "" means "/"

	Printer *display.Printer
	Metrics *metrics.Collector
}

// Handle sends the request and reads the full response.  The server is
// asked to close the connection afterwards, so the body ends at EOF
// even without a Content-Length.
func (h *HTTPGet) Handle(ctx context.Context, sess *session.Session) error {
	defer sess.Close()

	// Cancellation unblocks the response read by tearing the session
	// down under it.
	watch := make(chan struct{})
	defer close(watch)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-watch:
		}
	}()

	path := h.Path
	if path == "" {
		path = "/"
	}

	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, h.Host)
	if _, err := sess.Write([]byte(req)); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	h.Metrics.BytesSent(int64(len(req)))

	resp, err := http.ReadResponse(bufio.NewReader(sess), nil)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	defer resp.Body.Close()

	h.Printer.Success("HTTP Response: %s", resp.Status)
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			h.Printer.Notice("%s: %s", k, v)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if len(body) > 0 {
		h.Metrics.BytesReceived(int64(len(body)))
		h.Printer.Payload(sess.RemoteAddr().String(), body)
	}
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return nil
}
