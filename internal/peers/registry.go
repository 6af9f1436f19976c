// Package peers tracks correspondents for relay fan-out: a UDP peer
// registry with idle eviction, and the TCP client set using the same
// locked add/remove/snapshot discipline.
package peers

import (
	"net"
	"sync"
	"time"
)

// Entry is one tracked UDP correspondent.
type Entry struct {
	Addr     net.Addr
	LastSeen time.Time
}

// Registry tracks UDP correspondents.  Each address appears at most
// once; only OnReceive adds entries and only Sweep (or Clear on
// shutdown) removes them.  All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// OnReceive records or refreshes addr with the given observation time
// and returns every *other* currently known address, ready for relay
// fan-out.
func (r *Registry) OnReceive(addr net.Addr, now time.Time) []net.Addr {
	key := addr.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[key] = Entry{Addr: addr, LastSeen: now}

	others := make([]net.Addr, 0, len(r.entries)-1)
	for k, e := range r.entries {
		if k != key {
			others = append(others, e.Addr)
		}
	}
	return others
}

// Sweep removes every entry idle longer than threshold and returns the
// evicted addresses for logging.
func (r *Registry) Sweep(now time.Time, threshold time.Duration) []net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []net.Addr
	for k, e := range r.entries {
		if now.Sub(e.LastSeen) > threshold {
			evicted = append(evicted, e.Addr)
			delete(r.entries, k)
		}
	}
	return evicted
}

// Snapshot returns all currently known addresses.
func (r *Registry) Snapshot() []net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]net.Addr, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Addr)
	}
	return out
}

// Contains reports whether addr is currently tracked.
func (r *Registry) Contains(addr net.Addr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[addr.String()]
	return ok
}

// Len returns the number of tracked peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes every entry (listener shutdown).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Entry)
}
