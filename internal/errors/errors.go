// Package errors provides domain-specific error types for ndog.
//
// The taxonomy mirrors how failures propagate: connect and bind
// failures are fatal to the invocation, a TLS failure is fatal only to
// the connection it happened on, and a short file transfer is a
// warning that keeps the bytes already written.
package errors

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("session is closed")
)

// ── Structured error types ───────────────────────────────────────────

// ConnectError represents a failed outbound connection attempt.
// It is fatal to the invocation (exit status 1) unless --retry is
// active and the error classifies as retryable.
type ConnectError struct {
	Network   string // "tcp" or "udp"
	Addr      string
	Err       error
	Retryable bool
}

func (e *ConnectError) Error() string {
	s := fmt.Sprintf("connect %s %s: %v", e.Network, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *ConnectError) Unwrap() error { return e.Err }

// BindError represents a failure to bind or listen on a local port.
// Always fatal.
type BindError struct {
	Network string
	Addr    string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s %s: %v", e.Network, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// TLSError represents a TLS configuration or handshake failure.
// Fatal to a single connection; a listener logs it and keeps serving.
type TLSError struct {
	Op   string // "config", "handshake"
	Addr string
	Err  error
}

func (e *TLSError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("tls %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tls %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// TransferError represents a file-transfer problem.  Incomplete is
// true when fewer bytes arrived than the header declared; the data
// already written stays on disk and the condition is reported as a
// warning, not a failure.
type TransferError struct {
	Path       string
	Received   int64
	Declared   int64
	Incomplete bool
	Err        error
}

func (e *TransferError) Error() string {
	if e.Incomplete {
		return fmt.Sprintf("incomplete transfer %s: %d/%d bytes",
			e.Path, e.Received, e.Declared)
	}
	return fmt.Sprintf("transfer %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// WrapConnect creates a ConnectError, detecting retryability from the
// underlying error.
func WrapConnect(network, addr string, err error) *ConnectError {
	return &ConnectError{
		Network:   network,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapBind creates a BindError.
func WrapBind(network, addr string, err error) *BindError {
	return &BindError{Network: network, Addr: addr, Err: err}
}

// WrapTLS creates a TLSError.
func WrapTLS(op, addr string, err error) *TLSError {
	return &TLSError{Op: op, Addr: addr, Err: err}
}

// Incomplete creates the short-transfer warning.
func Incomplete(path string, received, declared int64) *TransferError {
	return &TransferError{
		Path:       path,
		Received:   received,
		Declared:   declared,
		Incomplete: true,
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether a connect attempt with this error is
// worth repeating (refused / timed out / temporary network state).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return classifyRetryable(err)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Connection refused means the host is up but the port is
		// not listening yet; worth retrying with --retry.
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
