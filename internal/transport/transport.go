// Package transport opens the TCP side of the bridge.  Dialers handle
// the "how" of reaching the endpoint (a plain TCP connection pinned to
// one network interface, optionally wrapped in an SSH tunnel); Socket
// is the resulting connection as the rest of the bridge sees it.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// an interface-bound TCP dialer and an SSH-tunnelled dialer that routes
// traffic through an encrypted gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
