package core

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"databridge/config"
	"databridge/internal/locator"
	"databridge/internal/metrics"
	"databridge/internal/serialport"
	"databridge/internal/supervisor"
	"databridge/internal/transport"
	"databridge/tunnel"
	"databridge/util"
)

// Options carries the mode selection and the process hooks that are not
// part of Config.
type Options struct {
	List   bool             // print the discovery view instead of bridging
	Reload <-chan os.Signal // each receive restarts the bridge
}

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, opts Options, logger *util.Logger) (Mode, error) {
	if opts.List {
		return &ListMode{Locator: locator.New(locatorConfig(cfg, nil, logger))}, nil
	}
	return buildBridge(cfg, opts, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildBridge(cfg *config.Config, opts Options, logger *util.Logger) (Mode, error) {
	var dialerFor func(locator.NetworkPath) transport.Dialer
	if cfg.TunnelEnabled {
		var err error
		if dialerFor, err = tunnelDialer(cfg, logger); err != nil {
			return nil, err
		}
	}

	m := metrics.New()
	sup := supervisor.New(supervisor.Config{
		Locator:    supervisor.Discover(locator.New(locatorConfig(cfg, dialerFor, logger))),
		Sink:       logger,
		RetryDelay: cfg.RetryDelay,
		Metrics:    m,
		Logger:     logger,
	})

	return &BridgeMode{
		Supervisor:    sup,
		Reload:        opts.Reload,
		StatsInterval: cfg.StatsInterval,
		ShutdownGrace: cfg.ShutdownGrace,
		Logger:        logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

func locatorConfig(cfg *config.Config, dialerFor func(locator.NetworkPath) transport.Dialer, logger *util.Logger) locator.Config {
	return locator.Config{
		Endpoint: locator.Endpoint{Host: cfg.Host, Port: cfg.Port},
		Networks: locator.HostNetworks{
			CellularPrefixes: cfg.CellularPrefixes,
			Restricted:       cfg.Restricted,
		},
		Devices:     serialport.SystemDevices{Pinned: cfg.SerialDevice},
		DialTimeout: cfg.DialTimeout,
		DialerFor:   dialerFor,
		Sink:        logger,
	}
}

// sshConfig maps the tunnel flags onto a tunnel.SSHConfig.
func sshConfig(cfg *config.Config) *tunnel.SSHConfig {
	return &tunnel.SSHConfig{
		User:          cfg.TunnelUser,
		Host:          cfg.TunnelHost,
		Port:          cfg.TunnelPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   cfg.DialTimeout,
	}
}

// tunnelDialer returns a DialerFor that reaches the endpoint through
// the SSH gateway, with the gateway itself dialed over the selected
// path.  Authentication is resolved once so prompts happen at startup.
func tunnelDialer(cfg *config.Config, logger *util.Logger) (func(locator.NetworkPath) transport.Dialer, error) {
	sc := sshConfig(cfg)
	auth, err := tunnel.BuildAuthMethods(sc)
	if err != nil {
		return nil, fmt.Errorf("tunnel: %w", err)
	}
	return newTunnelDialer(sc, auth, cfg, logger), nil
}

func newTunnelDialer(sc *tunnel.SSHConfig, auth []ssh.AuthMethod, cfg *config.Config, logger *util.Logger) func(locator.NetworkPath) transport.Dialer {
	return func(p locator.NetworkPath) transport.Dialer {
		via := locator.PathDialer(p, sc.Host, cfg.DialTimeout)
		return transport.NewSSHDialer(sc, via, logger).WithAuth(auth)
	}
}
