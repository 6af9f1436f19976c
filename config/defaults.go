package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultConnTimeout is the TCP connect timeout.
	DefaultConnTimeout = 3 * time.Second

	// DefaultPollInterval bounds every blocking wait (network reads,
	// accept loops) so the stop signal is observed promptly.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultSweepInterval is how often the UDP peer registry evicts
	// idle correspondents.
	DefaultSweepInterval = 5 * time.Second

	// DefaultIdleThreshold is how long a UDP peer may stay silent
	// before the sweep removes it.
	DefaultIdleThreshold = 60 * time.Second

	// DefaultTransferIdle is how long a file receive waits for the
	// next chunk before declaring the transfer over.
	DefaultTransferIdle = 5 * time.Second
)
