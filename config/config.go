// Package config defines the runtime configuration for databridge and
// the parsers and validation that go with it.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "databridge/internal/errors"
	"databridge/util"
)

// Config holds every tuneable for one databridge process.
type Config struct {
	// ── Endpoint ─────────────────────────────────────────────────────
	Host        string
	Port        int
	RetryDelay  time.Duration // pause before every attempt; also bounds serial writes
	DialTimeout time.Duration

	// ── Discovery ────────────────────────────────────────────────────
	SerialDevice     string   // pin one device path instead of the first USB port
	CellularPrefixes []string // interface name prefixes counted as cellular
	Restricted       []string // interfaces never used

	// ── SSH uplink ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose       int
	LogFile       string
	LogFormat     string
	StatsInterval time.Duration // 0 disables periodic stats
	ShutdownGrace time.Duration
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "pi@gateway.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || !validPort(port) {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// applyTunnelSpec fills the Tunnel* fields from TunnelSpec.
func (c *Config) applyTunnelSpec() error {
	c.TunnelEnabled = c.TunnelSpec != ""
	if !c.TunnelEnabled {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@gateway[:port]",
		}
	}
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// Endpoint returns host:port of the TCP target.
func (c *Config) Endpoint() string {
	return util.FormatAddr(c.Host, c.Port)
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError values carrying a hint for the user.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "endpoint host is required",
			Hint:    "set --host or DATABRIDGE_ENDPOINT_HOST",
		}
	}
	if !validPort(c.Port) {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port out of range 1-65535",
		}
	}
	if c.RetryDelay <= 0 {
		return &ncerr.ConfigError{
			Field:   "retry-delay",
			Value:   c.RetryDelay,
			Message: "retry delay must be positive",
			Hint:    "the bridge waits this long before every attempt, e.g. --retry-delay 1s",
		}
	}
	if c.DialTimeout < 0 {
		return &ncerr.ConfigError{Field: "dial-timeout", Value: c.DialTimeout, Message: "must not be negative"}
	}
	if c.StatsInterval < 0 {
		return &ncerr.ConfigError{Field: "stats-interval", Value: c.StatsInterval, Message: "must not be negative"}
	}
	for _, p := range c.CellularPrefixes {
		if strings.TrimSpace(p) == "" {
			return &ncerr.ConfigError{
				Field:   "cellular-prefix",
				Message: "empty prefix would match every interface",
			}
		}
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return &ncerr.ConfigError{
			Field:   "log-format",
			Value:   c.LogFormat,
			Message: "unknown log format",
			Hint:    "use console or json",
		}
	}

	if c.TunnelEnabled {
		if c.TunnelHost == "" {
			return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
		}
		if c.TunnelUser == "" {
			return &ncerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "SSH user is required",
				Hint:    "use -T user@" + c.TunnelHost,
			}
		}
	} else if c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Message: "SSH options given without a tunnel",
			Hint:    "add -T user@gateway or drop the --ssh-* flags",
		}
	}
	return nil
}
