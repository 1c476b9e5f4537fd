package util

import (
	"errors"
	"io"
	"net"
	"os"
)

// DefaultBufSize is the read chunk size for serial I/O.  At 57600 baud a
// device delivers roughly 5.7 KiB/s, so 4 KiB per read is plenty.
const DefaultBufSize = 4 * 1024

// IsHarmless returns true for errors that are expected during shutdown,
// i.e. the error came from a resource we closed ourselves.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
