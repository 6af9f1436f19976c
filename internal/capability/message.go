package capability

import (
	"context"

	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/internal/session"
)

// Message sends one inline text line and closes the session.
type Message struct {
	Text    string
	Printer *display.Printer
	Metrics *metrics.Collector
}

// Handle writes the message followed by a newline.
func (m *Message) Handle(ctx context.Context, sess *session.Session) error {
	defer sess.Close()

	line := []byte(m.Text + "\n")
	if _, err := sess.Write(line); err != nil {
		return err
	}
	m.Metrics.BytesSent(int64(len(line)))
	m.Printer.Success("message sent to %v", sess.RemoteAddr())
	return nil
}
