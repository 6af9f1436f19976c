package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the NDOG_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("NDOG_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("NDOG_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("NDOG_LISTEN") {
		cfg.Listen = true
	}
	if envBool("NDOG_UDP") {
		cfg.UDP = true
	}
	if envBool("NDOG_NO_DNS") {
		cfg.NoDNS = true
	}
	if envBool("NDOG_KEEP_OPEN") {
		cfg.KeepOpen = true
	}
	if envBool("NDOG_HTTP") {
		cfg.HTTP = true
	}
	if v := envInt("NDOG_TIMEOUT"); v > 0 {
		cfg.Timeout = time.Duration(v) * time.Second
	}
	if v := envInt("NDOG_MAX_CLIENTS"); v > 0 {
		cfg.MaxClients = v
	}

	// TLS
	if envBool("NDOG_SSL") {
		cfg.SSL = true
	}
	if v := os.Getenv("NDOG_SSL_CERT"); v != "" {
		cfg.SSLCert = v
	}
	if v := os.Getenv("NDOG_SSL_KEY"); v != "" {
		cfg.SSLKey = v
	}
	if envBool("NDOG_SSL_NO_VERIFY") {
		cfg.SSLNoVerify = true
	}

	// Output
	if envBool("NDOG_NO_COLOR") {
		cfg.NoColor = true
	}
	if v := os.Getenv("NDOG_OUTPUT"); v != "" {
		cfg.OutputFile = v
	}
	if v := envInt("NDOG_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
