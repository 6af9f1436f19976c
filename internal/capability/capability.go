// Package capability defines what happens over an established
// session.  Each Capability encapsulates a single behaviour — relay
// bytes, move a file, fire a message, run a chat — and operates on a
// Session rather than a raw net.Conn, which keeps behaviours testable
// and decoupled from transport details.
package capability

import (
	"context"

	"ndog/internal/session"
)

// Capability handles a single session according to a specific
// behaviour.
type Capability interface {
	// Handle runs the capability against the given session.  It
	// blocks until the exchange is done or the context is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
