// Package config defines the runtime configuration for ndog and
// validates flag combinations before any socket is opened.
package config

import (
	"fmt"
	"time"
)

// Config holds every tuneable for a single ndog invocation.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host       string
	Port       int // destination port (connect mode)
	LocalPort  int // -p: listen port, or source-port binding in connect mode
	Listen     bool
	UDP        bool
	Timeout    time.Duration
	KeepOpen   bool
	NoDNS      bool
	MaxClients int // cap on concurrent TCP clients (0 = unlimited)
	Retry      int // connect attempts with backoff (0/1 = single try)

	// ── TLS ──────────────────────────────────────────────────────────
	SSL         bool
	SSLCert     string
	SSLKey      string
	SSLNoVerify bool

	// ── Actions ──────────────────────────────────────────────────────
	SendFile    string // -f: path to send
	ReceiveFile string // -r: destination path, "-" = sender-declared name
	Message     string // -m: inline one-shot message
	Chat        bool
	HTTP        bool // GET the remote root, or serve the cwd when listening

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	HexDump    bool
	NoColor    bool
	Timestamp  bool
	OutputFile string // plain-text log mirror
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen {
		if c.LocalPort == 0 {
			return fmt.Errorf("listen mode requires -p <port>")
		}
		if c.Retry > 1 {
			return fmt.Errorf("--retry applies to connect mode only")
		}
	} else {
		if c.Host == "" {
			return fmt.Errorf("hostname is required (use --help for usage)")
		}
		if c.Port == 0 {
			return fmt.Errorf("destination port is required")
		}
	}

	if c.SSL && c.UDP {
		return fmt.Errorf("--ssl is not supported with --udp")
	}
	if (c.SSLCert == "") != (c.SSLKey == "") {
		return fmt.Errorf("--ssl-cert and --ssl-key must be given together")
	}
	if c.Listen && c.SSL && c.SSLCert == "" {
		return fmt.Errorf("listen mode with --ssl requires --ssl-cert and --ssl-key")
	}

	if c.SendFile != "" && c.ReceiveFile != "" {
		return fmt.Errorf("-f and -r are mutually exclusive")
	}
	if c.Listen && c.Message != "" {
		return fmt.Errorf("-m sends from connect mode; listeners receive")
	}
	if c.Chat && c.Message != "" {
		return fmt.Errorf("--chat and -m are mutually exclusive")
	}
	if c.Chat && (c.SendFile != "" || c.ReceiveFile != "") {
		return fmt.Errorf("--chat cannot be combined with file transfer")
	}

	if c.HTTP {
		if c.UDP {
			return fmt.Errorf("--http requires TCP")
		}
		if c.Chat {
			return fmt.Errorf("--http and --chat are mutually exclusive")
		}
		if c.SendFile != "" || c.ReceiveFile != "" {
			return fmt.Errorf("--http cannot be combined with file transfer")
		}
		if c.Message != "" {
			return fmt.Errorf("--http and -m are mutually exclusive")
		}
	}

	if c.MaxClients < 0 {
		return fmt.Errorf("--max-clients must be >= 0")
	}

	return nil
}
