package config

import (
	"time"

	"databridge/internal/locator"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variables.

const (
	// DefaultRetryDelay is the fixed pause before every discovery
	// attempt.
	DefaultRetryDelay = time.Second

	// DefaultDialTimeout bounds one TCP connect to the endpoint.
	DefaultDialTimeout = 10 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultLogFormat is the console encoder with bracketed levels.
	DefaultLogFormat = "console"

	// DefaultShutdownGrace is how long a signal-triggered stop waits for
	// the bridge loop to finish.
	DefaultShutdownGrace = 5 * time.Second
)

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		Host:             locator.DefaultEndpoint.Host,
		Port:             locator.DefaultEndpoint.Port,
		RetryDelay:       DefaultRetryDelay,
		DialTimeout:      DefaultDialTimeout,
		CellularPrefixes: append([]string(nil), locator.DefaultCellularPrefixes...),
		LogFormat:        DefaultLogFormat,
		ShutdownGrace:    DefaultShutdownGrace,
	}
}
