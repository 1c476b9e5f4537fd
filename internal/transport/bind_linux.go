//go:build linux

package transport

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDevice returns a dial control hook that applies SO_BINDTODEVICE.
func bindToDevice(ifname string) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			serr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifname)
		})
		if err != nil {
			return err
		}
		// EPERM without CAP_NET_RAW: fall back to the source-address
		// binding set on the dialer.
		if errors.Is(serr, unix.EPERM) {
			return nil
		}
		return serr
	}
}
