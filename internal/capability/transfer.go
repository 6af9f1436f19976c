package capability

import (
	"context"

	"ndog/internal/session"
	"ndog/internal/transfer"
)

// SendFile performs a one-shot outbound file transfer and closes the
// session.
type SendFile struct {
	Path  string
	Codec *transfer.Codec
}

// Handle sends the file and closes the session.
func (s *SendFile) Handle(ctx context.Context, sess *session.Session) error {
	defer sess.Close()
	return s.Codec.Send(ctx, sess, s.Path)
}

// ReceiveFile performs a one-shot inbound file transfer and closes the
// session.  A short transfer is reported as a warning by the codec and
// does not surface as an error here.
type ReceiveFile struct {
	Dest  string
	Codec *transfer.Codec
}

// Handle receives into Dest (or the sender-declared name for "-").
func (r *ReceiveFile) Handle(ctx context.Context, sess *session.Session) error {
	defer sess.Close()
	_, err := r.Codec.Receive(ctx, sess, r.Dest)
	return err
}
