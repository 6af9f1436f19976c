package peers

import (
	"net"
	"sync"
)

// ClientSet is the registry of accepted TCP clients in multi-client
// mode.  Relay loops iterate over a snapshot, so concurrent removal by
// another client's loop never invalidates an iteration; a peer that
// fails to send is simply skipped and cleaned up by its own loop.
type ClientSet struct {
	mu      sync.Mutex
	clients map[string]net.Conn
}

// NewClientSet returns an empty client set.
func NewClientSet() *ClientSet {
	return &ClientSet{clients: make(map[string]net.Conn)}
}

// Add registers an accepted connection, keyed by its remote address.
func (s *ClientSet) Add(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn.RemoteAddr().String()] = conn
}

// Remove unregisters a connection.  Removing a connection that was
// already removed is a no-op.
func (s *ClientSet) Remove(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn.RemoteAddr().String())
}

// Snapshot returns the current connections.  The returned slice is a
// copy; entries may be concurrently removed while it is iterated.
func (s *ClientSet) Snapshot() []net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]net.Conn, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast writes data to every registered client except the one with
// address exclude ("" broadcasts to all).  A send failure to one peer
// is swallowed: that peer's own read loop will notice and clean up.
// Returns the number of successful deliveries.
func (s *ClientSet) Broadcast(data []byte, exclude string) int {
	sent := 0
	for _, c := range s.Snapshot() {
		if exclude != "" && c.RemoteAddr().String() == exclude {
			continue
		}
		if _, err := c.Write(data); err == nil {
			sent++
		}
	}
	return sent
}

// Len returns the number of registered clients.
func (s *ClientSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// CloseAll force-closes every registered connection and empties the
// set (listener shutdown).
func (s *ClientSet) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.clients {
		c.Close() //nolint:errcheck
		delete(s.clients, k)
	}
}
