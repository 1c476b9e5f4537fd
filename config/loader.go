package config

// loader.go - layered configuration through viper.
//
// Precedence order (highest wins):
//   1. CLI flags that were set explicitly
//   2. DATABRIDGE_* environment variables
//   3. Config file (--config, YAML/TOML/JSON)
//   4. Defaults (defaults.go)

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g.
// DATABRIDGE_ENDPOINT_HOST or DATABRIDGE_RETRY_DELAY.
const EnvPrefix = "DATABRIDGE"

// Config keys.  Nested keys map to sections of the config file.
const (
	KeyHost          = "endpoint.host"
	KeyPort          = "endpoint.port"
	KeyRetryDelay    = "retry.delay"
	KeyDialTimeout   = "dial.timeout"
	KeySerialDevice  = "serial.device"
	KeyCellular      = "network.cellular_prefixes"
	KeyRestricted    = "network.restricted"
	KeyTunnel        = "tunnel.spec"
	KeySSHKey        = "tunnel.key"
	KeySSHPassword   = "tunnel.password"
	KeySSHAgent      = "tunnel.agent"
	KeyStrictHostKey = "tunnel.strict_hostkey"
	KeyKnownHosts    = "tunnel.known_hosts"
	KeyVerbose       = "log.verbosity"
	KeyLogFile       = "log.file"
	KeyLogFormat     = "log.format"
	KeyStatsInterval = "stats.interval"
	KeyShutdownGrace = "shutdown.grace"
)

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"host":            KeyHost,
	"port":            KeyPort,
	"retry-delay":     KeyRetryDelay,
	"dial-timeout":    KeyDialTimeout,
	"serial-device":   KeySerialDevice,
	"cellular-prefix": KeyCellular,
	"restricted":      KeyRestricted,
	"tunnel":          KeyTunnel,
	"ssh-key":         KeySSHKey,
	"ssh-password":    KeySSHPassword,
	"ssh-agent":       KeySSHAgent,
	"strict-hostkey":  KeyStrictHostKey,
	"known-hosts":     KeyKnownHosts,
	"log-file":        KeyLogFile,
	"log-format":      KeyLogFormat,
	"stats-interval":  KeyStatsInterval,
	"shutdown-grace":  KeyShutdownGrace,
}

// Load resolves the configuration.  fs may be nil; flags it defines
// under the names in flagKeys override every other source when set.
// file, if non-empty, must exist.  The -v count is not bound here: the
// caller adds it on top of the configured verbosity.
func Load(fs *flag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Host:             v.GetString(KeyHost),
		Port:             v.GetInt(KeyPort),
		RetryDelay:       v.GetDuration(KeyRetryDelay),
		DialTimeout:      v.GetDuration(KeyDialTimeout),
		SerialDevice:     v.GetString(KeySerialDevice),
		CellularPrefixes: splitList(v.GetStringSlice(KeyCellular)),
		Restricted:       splitList(v.GetStringSlice(KeyRestricted)),
		TunnelSpec:       v.GetString(KeyTunnel),
		SSHKeyPath:       v.GetString(KeySSHKey),
		SSHPassword:      v.GetBool(KeySSHPassword),
		UseSSHAgent:      v.GetBool(KeySSHAgent),
		StrictHostKey:    v.GetBool(KeyStrictHostKey),
		KnownHostsPath:   v.GetString(KeyKnownHosts),
		Verbose:          v.GetInt(KeyVerbose),
		LogFile:          v.GetString(KeyLogFile),
		LogFormat:        strings.ToLower(v.GetString(KeyLogFormat)),
		StatsInterval:    v.GetDuration(KeyStatsInterval),
		ShutdownGrace:    v.GetDuration(KeyShutdownGrace),
	}
	if err := cfg.applyTunnelSpec(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyHost, d.Host)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyRetryDelay, d.RetryDelay)
	v.SetDefault(KeyDialTimeout, d.DialTimeout)
	v.SetDefault(KeySerialDevice, "")
	v.SetDefault(KeyCellular, d.CellularPrefixes)
	v.SetDefault(KeyRestricted, []string{})
	v.SetDefault(KeyTunnel, "")
	v.SetDefault(KeySSHKey, "")
	v.SetDefault(KeySSHPassword, false)
	v.SetDefault(KeySSHAgent, false)
	v.SetDefault(KeyStrictHostKey, false)
	v.SetDefault(KeyKnownHosts, "")
	v.SetDefault(KeyVerbose, 1)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyStatsInterval, 0)
	v.SetDefault(KeyShutdownGrace, d.ShutdownGrace)
}

// splitList accepts both list values and comma-separated strings, as
// environment variables only carry the latter.
func splitList(in []string) []string {
	out := []string{}
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
