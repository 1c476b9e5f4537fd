package supervisor

import (
	"context"
	"io"

	"databridge/internal/bridge"
	"databridge/internal/locator"
)

// Serial is a serial transport the supervisor can relay over and close.
type Serial interface {
	bridge.Serial
	Close() error
}

// Locator finds the transports for one bridging episode.  Each call
// returns a freshly opened transport owned by the caller.
type Locator interface {
	LocateSocket(ctx context.Context) (io.ReadWriteCloser, error)
	FindSerialDevice(ctx context.Context) (Serial, error)
}

// Discover adapts a host locator to the supervisor.
func Discover(l *locator.Locator) Locator { return discovery{l} }

type discovery struct{ l *locator.Locator }

func (d discovery) LocateSocket(ctx context.Context) (io.ReadWriteCloser, error) {
	s, err := d.l.LocateSocket(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d discovery) FindSerialDevice(ctx context.Context) (Serial, error) {
	p, err := d.l.FindSerialDevice(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}
