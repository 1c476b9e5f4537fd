// Package tunnel carries bridge traffic through an SSH gateway, backed
// by golang.org/x/crypto/ssh.  The bridge uses it when the endpoint is
// only reachable from behind a jump host.
package tunnel

import (
	"context"
	"net"
)

// DialFunc opens the raw TCP connection to the gateway.  It matches
// net.Dialer.DialContext so an interface-bound dialer can be plugged in.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)
