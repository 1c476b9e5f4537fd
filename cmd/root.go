// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"databridge/config"
	"databridge/internal/core"
	"databridge/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X databridge/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version, --dry-run and --list output.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the appropriate databridge mode.
func Execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("databridge", flag.ContinueOnError)

	// ── endpoint ─────────────────────────────────────────────────
	fs.String("host", "", "Endpoint host (default "+config.Defaults().Host+")")
	fs.IntP("port", "p", 0, fmt.Sprintf("Endpoint TCP port (default %d)", config.Defaults().Port))
	fs.Duration("retry-delay", 0, "Pause before every attempt (default 1s)")
	fs.Duration("dial-timeout", 0, "Endpoint connect timeout (default 10s)")

	// ── discovery ────────────────────────────────────────────────
	fs.StringP("serial-device", "d", "", "Use this serial device instead of the first USB port")
	fs.StringSlice("cellular-prefix", nil, "Interface name prefix counted as cellular (repeatable)")
	fs.StringSlice("restricted", nil, "Interface never to use (repeatable)")

	// ── SSH uplink ───────────────────────────────────────────────
	fs.StringP("tunnel", "T", "", "Reach the endpoint through SSH gateway user@host[:port]")
	fs.String("ssh-key", "", "SSH private key file")
	fs.Bool("ssh-password", false, "Prompt for SSH password")
	fs.Bool("ssh-agent", false, "Use SSH agent")
	fs.Bool("strict-hostkey", false, "Verify SSH host keys")
	fs.String("known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	var verbose int
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	quiet := fs.BoolP("quiet", "q", false, "Only log errors")
	fs.String("log-file", "", "Also write logs to this file (rotated)")
	fs.String("log-format", "", "Log format: console or json")
	fs.Duration("stats-interval", 0, "Log bridge statistics at this interval (0 = off)")
	fs.Duration("shutdown-grace", 0, "Wait this long for the bridge to stop (default 5s)")

	// ── control ──────────────────────────────────────────────────
	cfgFile := fs.StringP("config", "c", "", "Config file (YAML, TOML or JSON)")
	list := fs.Bool("list", false, "List network paths and serial devices, then exit")
	dryRun := fs.Bool("dry-run", false, "Validate configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "databridge %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s (use --help for usage)", strings.Join(fs.Args(), " "))
	}

	// ── load & validate ──────────────────────────────────────────
	cfg, err := config.Load(fs, *cfgFile)
	if err != nil {
		return err
	}
	cfg.Verbose += verbose
	if *quiet {
		cfg.Verbose = 0
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *dryRun {
		printConfig(cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLoggerWith(util.LogOptions{
		Verbosity: cfg.Verbose,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
	})
	defer logger.Close() //nolint:errcheck

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	mode, err := core.Build(cfg, core.Options{List: *list, Reload: reload}, logger)
	if err != nil {
		return err
	}
	if lm, ok := mode.(*core.ListMode); ok {
		lm.Out = stdout
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(cfg *config.Config) {
	fmt.Fprintf(stdout, "endpoint       %s\n", cfg.Endpoint())
	fmt.Fprintf(stdout, "retry delay    %s\n", cfg.RetryDelay)
	fmt.Fprintf(stdout, "dial timeout   %s\n", cfg.DialTimeout)
	fmt.Fprintf(stdout, "cellular       %s\n", strings.Join(cfg.CellularPrefixes, ","))
	if len(cfg.Restricted) > 0 {
		fmt.Fprintf(stdout, "restricted     %s\n", strings.Join(cfg.Restricted, ","))
	}
	if cfg.SerialDevice != "" {
		fmt.Fprintf(stdout, "serial device  %s\n", cfg.SerialDevice)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(stdout, "ssh gateway    %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintln(stdout, "configuration OK")
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `databridge – serial to TCP bridge v%s

Relays a serial telemetry link to a TCP endpoint over a cellular
interface, reconnecting whenever either side drops.

Usage:
  databridge [options]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  Every option can be set as DATABRIDGE_<SECTION>_<KEY>, e.g.
  DATABRIDGE_ENDPOINT_HOST, DATABRIDGE_RETRY_DELAY, DATABRIDGE_TUNNEL_SPEC.

Signals:
  SIGINT, SIGTERM   stop the bridge and exit
  SIGHUP            tear down and rediscover

Examples:
  databridge                                  Bridge to the default endpoint
  databridge --host relay.example.com -p 5760 Custom endpoint
  databridge --list                           Show what discovery sees
  databridge -T pi@gateway --ssh-agent        Reach the endpoint via SSH
`)
}
