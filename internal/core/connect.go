package core

import (
	"context"
	"crypto/tls"

	"ndog/internal/capability"
	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/internal/retry"
	"ndog/internal/session"
	"ndog/internal/transport"
	"ndog/util"
)

// ConnectMode dials a remote address and runs a capability on the
// resulting session — the client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Kind       session.Kind
	Address    string
	TLSConf    *tls.Config // nil for plaintext

	// Retry > 1 wraps the dial in exponential backoff for transient
	// failures (refused, timed out).
	Retry int

	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Run dials the remote address, creates a session, and hands it to
// the capability.  The session is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s (%s)", m.Address, m.Kind)

	sess, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()

	return m.Capability.Handle(ctx, sess)
}

func (m *ConnectMode) dial(ctx context.Context) (*session.Session, error) {
	if m.Retry <= 1 {
		return session.Connect(ctx, m.Dialer, m.Kind, m.Address, m.TLSConf, m.Logger)
	}

	var sess *session.Session
	err := retry.DefaultBackoff(m.Retry).Do(ctx, func(attempt int) error {
		s, err := session.Connect(ctx, m.Dialer, m.Kind, m.Address, m.TLSConf, m.Logger)
		if err != nil {
			if !ndogerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			m.Logger.Warn("connect attempt %d failed: %v", attempt, err)
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}
