package capability

import (
	"context"
	"io"
	"time"

	"ndog/internal/chat"
	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/internal/session"
	"ndog/util"
)

// Chat runs the interactive line-editing overlay on the session.
type Chat struct {
	In           io.Reader
	PollInterval time.Duration

	Printer *display.Printer
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Handle runs the chat loop until /quit, interrupt, or peer close.
func (c *Chat) Handle(ctx context.Context, sess *session.Session) error {
	o := &chat.Overlay{
		Session:      sess,
		Printer:      c.Printer,
		Logger:       c.Logger,
		Metrics:      c.Metrics,
		In:           c.In,
		PollInterval: c.PollInterval,
	}
	return o.Run(ctx)
}
