// Package cmd wires the command line to the core builder: flag
// parsing, environment overlay, validation, and output plumbing.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"ndog/config"
	"ndog/internal/core"
	"ndog/internal/display"
	"ndog/internal/metrics"
	"ndog/util"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const usageHeader = `ndog - TCP/UDP data exchange, file transfer, and chat

Usage:
  ndog [options] <host> <port>       connect to a remote endpoint
  ndog -l -p <port> [options]        listen for inbound connections

Environment:
  NDOG_HOST, NDOG_PORT, NDOG_LISTEN, NDOG_UDP, NDOG_HTTP, NDOG_SSL,
  NDOG_SSL_CERT, NDOG_SSL_KEY, NDOG_SSL_NO_VERIFY, NDOG_KEEP_OPEN,
  NDOG_NO_DNS, NDOG_TIMEOUT, NDOG_MAX_CLIENTS, NDOG_NO_COLOR,
  NDOG_OUTPUT, NDOG_VERBOSE.  Flags take precedence over the
  environment.

Options:
`

// Execute parses args, builds the selected mode, and runs it until
// completion or context cancellation.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("ndog", flag.ContinueOnError)
	fs.SortFlags = false

	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "listen for inbound connections")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "listen port, or source port in connect mode")
	fs.BoolVarP(&cfg.UDP, "udp", "u", cfg.UDP, "use UDP instead of TCP")
	timeoutSecs := fs.IntP("timeout", "w", int(envTimeoutSecs(cfg)), "connect timeout in seconds")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "keep serving after local input ends or a client disconnects")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "numeric IP only, skip DNS resolution")

	fs.BoolVar(&cfg.SSL, "ssl", cfg.SSL, "wrap the connection in TLS")
	fs.StringVar(&cfg.SSLCert, "ssl-cert", cfg.SSLCert, "TLS certificate file (PEM)")
	fs.StringVar(&cfg.SSLKey, "ssl-key", cfg.SSLKey, "TLS private key file (PEM)")
	fs.BoolVar(&cfg.SSLNoVerify, "ssl-no-verify", cfg.SSLNoVerify, "skip peer certificate verification")

	fs.StringVarP(&cfg.SendFile, "file", "f", "", "send the given file and exit")
	fs.StringVarP(&cfg.ReceiveFile, "receive", "r", "", "receive a file into the given path (\"-\" keeps the sender's name)")
	fs.Lookup("receive").NoOptDefVal = "-"
	fs.StringVarP(&cfg.Message, "message", "m", "", "send a one-shot message and exit")
	fs.BoolVar(&cfg.Chat, "chat", false, "interactive chat with line editing")
	fs.BoolVar(&cfg.HTTP, "http", cfg.HTTP, "HTTP mode: GET the remote root, or serve the current directory when listening")

	fs.BoolVarP(&cfg.HexDump, "hex-dump", "x", false, "render received data as a hex dump")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable coloured output")
	fs.BoolVarP(&cfg.Timestamp, "timestamp", "t", false, "prefix output lines with a timestamp")
	fs.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "mirror session output to a file (colours stripped)")

	fs.IntVar(&cfg.Retry, "retry", 0, "connect attempts with exponential backoff")
	fs.IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "cap on concurrent TCP clients (0 = unlimited)")

	fs.CountVarP(&cfg.Verbose, "verbose", "v", "increase diagnostic verbosity (repeatable)")
	showVersion := fs.Bool("version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageHeader)
		fmt.Fprintln(os.Stderr, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("ndog %s\n", Version)
		return nil
	}

	if *timeoutSecs > 0 {
		cfg.Timeout = time.Duration(*timeoutSecs) * time.Second
	}

	if err := applyPositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	logger.SetTimestamps(cfg.Timestamp)

	var logFile io.Writer
	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open output log: %w", err)
		}
		defer f.Close()
		logFile = f
	}

	printer := display.New(display.Options{
		Out:        os.Stdout,
		LogFile:    logFile,
		Color:      !cfg.NoColor,
		Timestamps: cfg.Timestamp,
		HexDump:    cfg.HexDump,
	})

	collector := metrics.New()

	mode, err := core.Build(cfg, logger, printer, collector)
	if err != nil {
		return err
	}

	runErr := mode.Run(ctx)

	s := collector.Snapshot()
	logger.Verbose("totals: %d bytes in, %d bytes out, %d connection(s), %d relayed",
		s.BytesIn, s.BytesOut, s.ConnectionsTotal, s.Relayed)

	return runErr
}

// applyPositional fills Host and Port from the trailing arguments.
// Connect mode takes "host port"; listen mode optionally takes a bind
// address.
func applyPositional(cfg *config.Config, rest []string) error {
	switch {
	case cfg.Listen:
		if len(rest) > 1 {
			return fmt.Errorf("listen mode takes at most a bind address, got %d arguments", len(rest))
		}
		if len(rest) == 1 {
			cfg.Host = rest[0]
		}
	default:
		if len(rest) > 0 {
			cfg.Host = rest[0]
		}
		if len(rest) > 1 {
			port, err := strconv.Atoi(rest[1])
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid port %q", rest[1])
			}
			cfg.Port = port
		}
		if len(rest) > 2 {
			return fmt.Errorf("unexpected argument %q", rest[2])
		}
	}
	return nil
}

func envTimeoutSecs(cfg *config.Config) int64 {
	if cfg.Timeout > 0 {
		return int64(cfg.Timeout / time.Second)
	}
	return 0
}
