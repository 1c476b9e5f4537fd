package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	ncerr "databridge/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "pi@gateway.example.com:2222", "pi", "gateway.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"no host", ":22", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Endpoint() != "203.219.232.14:14550" {
		t.Errorf("Endpoint = %q", c.Endpoint())
	}
	if c.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", c.RetryDelay)
	}
	if len(c.CellularPrefixes) != 5 || c.CellularPrefixes[0] != "wwan" {
		t.Errorf("CellularPrefixes = %v", c.CellularPrefixes)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	// Defaults hands out copies.
	c.CellularPrefixes[0] = "x"
	if Defaults().CellularPrefixes[0] != "wwan" {
		t.Error("Defaults shares its prefix slice")
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	valid := func(mut func(c *Config)) *Config {
		c := Defaults()
		mut(c)
		return c
	}

	tests := []struct {
		name      string
		cfg       *Config
		wantField string // empty means valid
		wantHint  bool
	}{
		{"defaults", valid(func(*Config) {}), "", false},
		{"no host", valid(func(c *Config) { c.Host = "" }), "host", true},
		{"port zero", valid(func(c *Config) { c.Port = 0 }), "port", false},
		{"port high", valid(func(c *Config) { c.Port = 70000 }), "port", false},
		{"zero delay", valid(func(c *Config) { c.RetryDelay = 0 }), "retry-delay", true},
		{"negative stats", valid(func(c *Config) { c.StatsInterval = -time.Second }), "stats-interval", false},
		{"empty prefix", valid(func(c *Config) { c.CellularPrefixes = []string{"wwan", " "} }), "cellular-prefix", false},
		{"bad format", valid(func(c *Config) { c.LogFormat = "xml" }), "log-format", true},
		{"json format", valid(func(c *Config) { c.LogFormat = "json" }), "", false},
		{"tunnel ok", valid(func(c *Config) {
			c.TunnelEnabled, c.TunnelUser, c.TunnelHost = true, "pi", "gw"
		}), "", false},
		{"tunnel no user", valid(func(c *Config) {
			c.TunnelEnabled, c.TunnelHost = true, "gw"
		}), "tunnel", true},
		{"ssh flags without tunnel", valid(func(c *Config) { c.UseSSHAgent = true }), "tunnel", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if got := strings.Contains(err.Error(), "hint:"); got != tt.wantHint {
				t.Errorf("hint present = %v, want %v (%q)", got, tt.wantHint, err.Error())
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	c := &Config{TunnelSpec: "pi@gw.example.com:2200"}
	if err := c.applyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !c.TunnelEnabled || c.TunnelUser != "pi" || c.TunnelHost != "gw.example.com" || c.TunnelPort != 2200 {
		t.Errorf("got %+v", c)
	}

	c = &Config{TunnelSpec: "pi@gw:99999"}
	var ce *ncerr.ConfigError
	if err := c.applyTunnelSpec(); !errors.As(err, &ce) || ce.Field != "tunnel" {
		t.Errorf("err = %v, want tunnel ConfigError", err)
	}

	c = &Config{}
	if err := c.applyTunnelSpec(); err != nil || c.TunnelEnabled {
		t.Errorf("empty spec: err=%v enabled=%v", err, c.TunnelEnabled)
	}
}
