package transport

import (
	"context"
	"net"
	"time"

	ncerr "databridge/internal/errors"
)

// TCPDialer establishes plain TCP connections, optionally pinned to one
// network interface.
type TCPDialer struct {
	Timeout time.Duration

	// Interface, when set, binds the socket to that device so traffic
	// cannot leak onto another route (Linux only; elsewhere LocalIP
	// alone steers the connection).
	Interface string

	// LocalIP is the source address to bind (nil = let the OS pick).
	LocalIP net.IP
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	if d.LocalIP != nil {
		dialer.LocalAddr = &net.TCPAddr{IP: d.LocalIP}
	}
	if d.Interface != "" {
		if ctrl := bindToDevice(d.Interface); ctrl != nil {
			dialer.Control = ctrl
		}
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
