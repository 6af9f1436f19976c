package core

import (
	"crypto/tls"
	"os"

	"ndog/config"
	"ndog/internal/capability"
	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/internal/session"
	"ndog/internal/transfer"
	"ndog/internal/transport"
	"ndog/util"
)

// Build assembles the operational mode selected by the configuration.
// The config must already have passed Validate.
func Build(cfg *config.Config, logger *util.Logger, printer *display.Printer, collector *metrics.Collector) (Mode, error) {
	codec := &transfer.Codec{
		Logger:      logger,
		Printer:     printer,
		Metrics:     collector,
		IdleTimeout: config.DefaultTransferIdle,
	}

	act := buildCapability(cfg, codec, printer, collector, logger)

	if cfg.Listen {
		return buildListen(cfg, act, logger, printer, collector)
	}
	return buildConnect(cfg, act, logger, printer, collector)
}

// buildCapability maps the action flags onto a capability.  nil means
// "no explicit action", which listen modes interpret as their relay
// default and connect mode as the bidirectional pump.
func buildCapability(cfg *config.Config, codec *transfer.Codec, printer *display.Printer, collector *metrics.Collector, logger *util.Logger) capability.Capability {
	switch {
	case cfg.HTTP:
		return &capability.HTTPGet{Host: cfg.Host, Printer: printer, Metrics: collector}
	case cfg.SendFile != "":
		return &capability.SendFile{Path: cfg.SendFile, Codec: codec}
	case cfg.ReceiveFile != "":
		return &capability.ReceiveFile{Dest: cfg.ReceiveFile, Codec: codec}
	case cfg.Message != "":
		return &capability.Message{Text: cfg.Message, Printer: printer, Metrics: collector}
	case cfg.Chat:
		return &capability.Chat{
			In:           os.Stdin,
			PollInterval: config.DefaultPollInterval,
			Printer:      printer,
			Metrics:      collector,
			Logger:       logger,
		}
	default:
		return nil
	}
}

func buildListen(cfg *config.Config, act capability.Capability, logger *util.Logger, printer *display.Printer, collector *metrics.Collector) (Mode, error) {
	addr := util.FormatAddr(cfg.Host, cfg.LocalPort)
	if cfg.Host == "" {
		addr = util.FormatAddr("0.0.0.0", cfg.LocalPort)
	}

	if cfg.HTTP {
		var tlsConf *tls.Config
		if cfg.SSL {
			tc, err := transport.ServerTLS(cfg.SSLCert, cfg.SSLKey)
			if err != nil {
				return nil, err
			}
			tlsConf = tc
		}
		return &HTTPServeMode{
			Address:    addr,
			TLSConf:    tlsConf,
			MaxClients: cfg.MaxClients,
			Printer:    printer,
			Metrics:    collector,
			Logger:     logger,
		}, nil
	}

	if cfg.UDP {
		return &UDPListenMode{
			Address:       addr,
			Capability:    act,
			KeepOpen:      cfg.KeepOpen,
			PollInterval:  config.DefaultPollInterval,
			SweepInterval: config.DefaultSweepInterval,
			IdleThreshold: config.DefaultIdleThreshold,
			Printer:       printer,
			Metrics:       collector,
			Logger:        logger,
		}, nil
	}

	var tlsConf *tls.Config
	if cfg.SSL {
		tc, err := transport.ServerTLS(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			return nil, err
		}
		tlsConf = tc
	}

	return &ListenMode{
		Address:      addr,
		TLSConf:      tlsConf,
		Broadcast:    act == nil,
		Capability:   act,
		KeepOpen:     cfg.KeepOpen,
		MaxClients:   cfg.MaxClients,
		PollInterval: config.DefaultPollInterval,
		Printer:      printer,
		Metrics:      collector,
		Logger:       logger,
	}, nil
}

func buildConnect(cfg *config.Config, act capability.Capability, logger *util.Logger, printer *display.Printer, collector *metrics.Collector) (Mode, error) {
	addr, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultConnTimeout
	}

	kind := session.TCP
	var dialer transport.Dialer
	if cfg.UDP {
		kind = session.UDP
		dialer = &transport.UDPDialer{Timeout: timeout, LocalPort: cfg.LocalPort}
	} else {
		dialer = &transport.TCPDialer{Timeout: timeout, LocalPort: cfg.LocalPort}
	}

	var tlsConf *tls.Config
	if cfg.SSL {
		tlsConf = transport.ClientTLS(cfg.Host, cfg.SSLNoVerify)
	}

	if act == nil {
		act = &capability.Relay{
			In:           os.Stdin,
			Out:          printer.PayloadWriter(""),
			KeepOpen:     cfg.KeepOpen,
			PollInterval: config.DefaultPollInterval,
			Metrics:      collector,
			Logger:       logger,
		}
	}

	return &ConnectMode{
		Dialer:     dialer,
		Capability: act,
		Kind:       kind,
		Address:    addr,
		TLSConf:    tlsConf,
		Retry:      cfg.Retry,
		Metrics:    collector,
		Logger:     logger,
	}, nil
}
