package core

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"ndog/internal/display"
	ndogerr "ndog/internal/errors"
	"ndog/internal/metrics"
	"ndog/util"
)

// HTTPServeMode serves a directory tree over HTTP on the listen
// address.  Each request is logged through the Printer so the operator
// sees who fetched what.
type HTTPServeMode struct {
	Address string
	Root    string      // directory to serve, "" means "."
	TLSConf *tls.Config // nil for plaintext

	MaxClients int // 0 = unlimited

	Printer *display.Printer
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Run serves until the context is cancelled.
func (m *HTTPServeMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return ndogerr.WrapBind("tcp", m.Address, err)
	}
	if m.MaxClients > 0 {
		ln = netutil.LimitListener(ln, m.MaxClients)
	}
	if m.TLSConf != nil {
		ln = tls.NewListener(ln, m.TLSConf)
	}

	root := m.Root
	if root == "" {
		root = "."
	}

	srv := &http.Server{
		Handler: m.logRequests(http.FileServer(http.Dir(root))),
		ConnState: func(c net.Conn, s http.ConnState) {
			switch s {
			case http.StateNew:
				m.Metrics.ConnectionOpened()
			case http.StateClosed, http.StateHijacked:
				m.Metrics.ConnectionClosed()
			}
		},
	}

	m.Logger.Verbose("serving %s over http on %s", root, ln.Addr())
	m.Printer.Notice("serving HTTP on %s (root %s)", ln.Addr(), root)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
		<-serveErr
		return nil
	case err := <-serveErr:
		if ndogerr.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (m *HTTPServeMode) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Printer.Notice("[HTTP] %s %s %s", r.RemoteAddr, r.Method, r.URL.Path)
		m.Logger.Verbose("http request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
