package core

import (
	"testing"

	"ndog/config"
	"ndog/internal/metrics"
)

func buildFrom(t *testing.T, cfg *config.Config) Mode {
	t.Helper()
	m, err := Build(cfg, testLogger(), testPrinter(), metrics.New())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return m
}

func TestBuildSelectsMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"connect tcp", config.Config{Host: "127.0.0.1", Port: 80}, "*core.ConnectMode"},
		{"connect udp", config.Config{Host: "127.0.0.1", Port: 80, UDP: true}, "*core.ConnectMode"},
		{"listen tcp", config.Config{Listen: true, LocalPort: 9000}, "*core.ListenMode"},
		{"listen udp", config.Config{Listen: true, LocalPort: 9000, UDP: true}, "*core.UDPListenMode"},
		{"connect http", config.Config{Host: "127.0.0.1", Port: 80, HTTP: true}, "*core.ConnectMode"},
		{"listen http", config.Config{Listen: true, LocalPort: 9000, HTTP: true}, "*core.HTTPServeMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := buildFrom(t, &tt.cfg)
			if got := typeName(m); got != tt.want {
				t.Errorf("mode type = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildListenDefaultsToBroadcast(t *testing.T) {
	m := buildFrom(t, &config.Config{Listen: true, LocalPort: 9000})
	lm := m.(*ListenMode)
	if !lm.Broadcast || lm.Capability != nil {
		t.Errorf("broadcast=%v capability=%v, want relay default", lm.Broadcast, lm.Capability)
	}
}

func TestBuildListenWithTransferIsOneShot(t *testing.T) {
	m := buildFrom(t, &config.Config{Listen: true, LocalPort: 9000, ReceiveFile: "-"})
	lm := m.(*ListenMode)
	if lm.Broadcast || lm.Capability == nil {
		t.Errorf("broadcast=%v capability=%v, want one-shot capability", lm.Broadcast, lm.Capability)
	}
}

func TestBuildRejectsNoDNSHostname(t *testing.T) {
	cfg := &config.Config{Host: "example.com", Port: 80, NoDNS: true}
	if _, err := Build(cfg, testLogger(), testPrinter(), nil); err == nil {
		t.Fatal("expected resolve error with -n and a hostname")
	}
}

func TestBuildRejectsMissingCert(t *testing.T) {
	cfg := &config.Config{
		Listen: true, LocalPort: 9000,
		SSL: true, SSLCert: "/nonexistent/cert.pem", SSLKey: "/nonexistent/key.pem",
	}
	if _, err := Build(cfg, testLogger(), testPrinter(), nil); err == nil {
		t.Fatal("expected TLS config error for missing cert files")
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *ConnectMode:
		return "*core.ConnectMode"
	case *ListenMode:
		return "*core.ListenMode"
	case *UDPListenMode:
		return "*core.UDPListenMode"
	case *HTTPServeMode:
		return "*core.HTTPServeMode"
	}
	return "unknown"
}
