// Package locator finds the two ends of the bridge: an eligible network
// path with a live connection to the endpoint, and the first attached
// serial device.  Every miss is reported as errors.ErrNotFound.
package locator

import (
	"context"
	"fmt"
	"time"

	ncerr "databridge/internal/errors"
	"databridge/internal/serialport"
	"databridge/internal/transport"
)

// Sink receives operator-visible events.
type Sink interface {
	Log(msg string)
	LogErr(msg string, err error)
}

// Config wires a Locator.  Zero fields get host defaults.
type Config struct {
	Endpoint    Endpoint
	Networks    NetworkSource
	Devices     serialport.DeviceSource
	Opener      serialport.Opener
	DialTimeout time.Duration

	// DialerFor builds the dialer used to reach the endpoint through the
	// selected path.  The default is [PathDialer].
	DialerFor func(NetworkPath) transport.Dialer

	Sink Sink
}

// Locator performs discovery.  It holds no state between calls.
type Locator struct {
	cfg Config
}

// New returns a Locator for cfg.
func New(cfg Config) *Locator {
	if cfg.Endpoint == (Endpoint{}) {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Networks == nil {
		cfg.Networks = HostNetworks{}
	}
	if cfg.Devices == nil {
		cfg.Devices = serialport.SystemDevices{}
	}
	if cfg.Opener == nil {
		cfg.Opener = serialport.SystemOpener
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.DialerFor == nil {
		ep, timeout := cfg.Endpoint, cfg.DialTimeout
		cfg.DialerFor = func(p NetworkPath) transport.Dialer {
			return PathDialer(p, ep.Host, timeout)
		}
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	return &Locator{cfg: cfg}
}

// Endpoint returns the configured TCP target.
func (l *Locator) Endpoint() Endpoint { return l.cfg.Endpoint }

// FindNetworkPath returns the first path that is cellular, has internet
// access and is not restricted.
func (l *Locator) FindNetworkPath(ctx context.Context) (NetworkPath, error) {
	if err := ctx.Err(); err != nil {
		return NetworkPath{}, err
	}
	paths, err := l.cfg.Networks.Paths()
	if err != nil {
		return NetworkPath{}, ncerr.Miss("network", "enumeration failed", err)
	}
	for _, p := range paths {
		if p.Eligible() {
			return p, nil
		}
	}
	return NetworkPath{}, ncerr.Miss("network", "no eligible cellular path", nil)
}

// LocateSocket connects to the endpoint through the first eligible
// path.  Connect failures are logged and reported as a miss.
func (l *Locator) LocateSocket(ctx context.Context) (*transport.Socket, error) {
	l.cfg.Sink.Log("Opening socket connection...")

	path, err := l.FindNetworkPath(ctx)
	if err != nil {
		l.cfg.Sink.Log("Failed to locate cellular socket.")
		return nil, err
	}

	d := l.cfg.DialerFor(path)
	conn, err := d.Dial(ctx, "tcp", l.cfg.Endpoint.Addr())
	if err != nil {
		d.Close() //nolint:errcheck
		l.cfg.Sink.LogErr("Failed to create socket", err)
		l.cfg.Sink.Log("Failed to locate cellular socket.")
		return nil, ncerr.Miss("network", "connect via "+path.Name, err)
	}
	return transport.NewSocket(conn, d), nil
}

// FindSerialDevice opens the first attached serial device.  Open
// failures are logged and reported as a miss.
func (l *Locator) FindSerialDevice(ctx context.Context) (*serialport.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devs, err := l.cfg.Devices.Devices()
	if err != nil || len(devs) == 0 {
		l.cfg.Sink.Log("Failed to locate serial devices.")
		return nil, ncerr.Miss("serial", "no device attached", err)
	}

	dev := devs[0]
	l.cfg.Sink.Log(fmt.Sprintf("Located serial device '%s' manufactured by '%s'.",
		dev.Product, dev.Manufacturer()))

	port, err := serialport.Open(dev, l.cfg.Opener)
	if err != nil {
		l.cfg.Sink.LogErr("Failed to create serial connection", err)
		return nil, ncerr.Miss("serial", "open "+dev.Name, err)
	}
	return port, nil
}

// Report is the full discovery view.
type Report struct {
	Endpoint Endpoint
	Paths    []NetworkPath
	Devices  []serialport.Device

	PathErr   error
	DeviceErr error
}

// Selected returns the path the bridge would use, if any.
func (r Report) Selected() (NetworkPath, bool) {
	for _, p := range r.Paths {
		if p.Eligible() {
			return p, true
		}
	}
	return NetworkPath{}, false
}

// Describe enumerates every path and device without opening anything.
func (l *Locator) Describe(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r := Report{Endpoint: l.cfg.Endpoint}
	r.Paths, r.PathErr = l.cfg.Networks.Paths()
	r.Devices, r.DeviceErr = l.cfg.Devices.Devices()
	return r, nil
}

type nopSink struct{}

func (nopSink) Log(string)           {}
func (nopSink) LogErr(string, error) {}
