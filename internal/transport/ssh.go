package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"databridge/tunnel"
	"databridge/util"
)

// SSHDialer reaches the endpoint through an SSH gateway.  The gateway
// connection itself is opened by the via dialer, so it follows the same
// interface binding as a direct connection would.  Each SSHDialer owns
// one tunnel, connected lazily on the first Dial and torn down on Close;
// a fresh dialer is built for every bridge episode.
type SSHDialer struct {
	tunnel *tunnel.SSHTunnel
	config tunnel.SSHConfig
	logger *util.Logger

	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through the
// gateway described by cfg.  via may be nil to use the default route.
func NewSSHDialer(cfg *tunnel.SSHConfig, via Dialer, logger *util.Logger) *SSHDialer {
	c := *cfg
	if via != nil {
		c.Via = via.Dial
	}
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(&c, logger),
		config: c,
		logger: logger,
	}
}

// WithAuth pins the authentication methods used by the tunnel.
func (d *SSHDialer) WithAuth(methods []ssh.AuthMethod) *SSHDialer {
	d.tunnel.WithAuth(methods)
	return d
}

// connect establishes the SSH tunnel if not already connected.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s", d.config.User, d.config.Addr())

	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
