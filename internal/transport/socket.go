package transport

import (
	"net"
	"sync"
)

// Socket is an open connection to the bridge endpoint.  Close may be
// called any number of times; the first call closes the connection and
// releases the dialer that produced it.
type Socket struct {
	net.Conn

	dialer Dialer
	once   sync.Once
	err    error
}

// NewSocket wraps conn.  dialer may be nil.
func NewSocket(conn net.Conn, dialer Dialer) *Socket {
	return &Socket{Conn: conn, dialer: dialer}
}

// Close closes the connection, then the dialer.
func (s *Socket) Close() error {
	s.once.Do(func() {
		s.err = s.Conn.Close()
		if s.dialer != nil {
			if err := s.dialer.Close(); err != nil && s.err == nil {
				s.err = err
			}
		}
	})
	return s.err
}
