package capability

import (
	"context"
	"io"
	"time"

	"ndog/internal/metrics"
	"ndog/internal/pump"
	"ndog/internal/session"
	"ndog/util"
)

// Relay pumps data bidirectionally between the session and the local
// input/output — the default interactive / pipe mode.
type Relay struct {
	In  io.Reader
	Out io.Writer

	KeepOpen     bool
	PollInterval time.Duration

	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Handle shuttles bytes until one side closes or the context is
// cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	p := &pump.Pump{
		Session:      sess,
		In:           r.In,
		Out:          r.Out,
		KeepOpen:     r.KeepOpen,
		PollInterval: r.PollInterval,
		Metrics:      r.Metrics,
		Logger:       r.Logger,
	}
	return p.Run(ctx)
}
