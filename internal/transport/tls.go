package transport

import (
	"crypto/tls"

	ndogerr "ndog/internal/errors"
)

// ClientTLS builds the client-side TLS configuration.  serverName is
// the hostname being dialled (used for SNI and verification); with
// skipVerify the peer certificate is accepted unchecked, which is the
// usual mode when talking to ad hoc self-signed listeners.
func ClientTLS(serverName string, skipVerify bool) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: skipVerify, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}
}

// ServerTLS builds the listener-side TLS configuration from a
// certificate/key pair on disk.
func ServerTLS(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, ndogerr.WrapTLS("config", "", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
