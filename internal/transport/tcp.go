package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer opens stream connections.  LocalPort pins the source port
// when set; 0 leaves the kernel to pick an ephemeral one.
type TCPDialer struct {
	Timeout   time.Duration
	LocalPort int
}

// Dial connects to address over TCP within the configured timeout.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	if d.LocalPort > 0 {
		dialer.LocalAddr = &net.TCPAddr{Port: d.LocalPort}
	}
	return dialer.DialContext(ctx, network, address)
}

// Close satisfies Dialer; TCP dialing holds no state to release.
func (d *TCPDialer) Close() error { return nil }
