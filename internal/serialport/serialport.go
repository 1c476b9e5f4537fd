// Package serialport wraps an open, configured serial device.  Incoming
// bytes are pushed to a Listener from a dedicated goroutine; outgoing
// writes are bounded by a timeout so a stalled device cannot wedge the
// caller.
package serialport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"

	ncerr "databridge/internal/errors"
	"databridge/util"
)

// Line parameters.  These are fixed for the telemetry link and are not
// exposed as configuration.
const (
	BaudRate = 57600
	DataBits = 8
)

// LineMode returns the 57600 8N1 mode every port is opened with.
func LineMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Handle is the subset of serial.Port used by Port.
type Handle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens the named device with mode applied.
type Opener func(name string, mode *serial.Mode) (Handle, error)

// SystemOpener opens a real device through go.bug.st/serial.
func SystemOpener(name string, mode *serial.Mode) (Handle, error) {
	return serial.Open(name, mode)
}

// Listener receives data pushed by a Port.  Callbacks run on the port's
// listener goroutine, one at a time.
type Listener interface {
	// OnNewData is called with each chunk read from the device.  The
	// slice is only valid for the duration of the call.
	OnNewData(data []byte)

	// OnRunError is called once if reading fails while the port is
	// open.  No further callbacks follow.
	OnRunError(err error)
}

type writeReq struct {
	data []byte
	done chan error
}

// Port is an open serial device.
type Port struct {
	dev Device
	h   Handle

	writes     chan writeReq
	closing    chan struct{}
	listenDone chan struct{}
	listening  atomic.Bool

	// mu orders Listen against Close so a listener is either started
	// before the port is marked closed or not at all.
	mu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Open opens dev with [LineMode] and starts the port's writer.
func Open(dev Device, open Opener) (*Port, error) {
	if open == nil {
		open = SystemOpener
	}
	h, err := open(dev.Name, LineMode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dev.Name, explain(err))
	}

	p := &Port{
		dev:        dev,
		h:          h,
		writes:     make(chan writeReq),
		closing:    make(chan struct{}),
		listenDone: make(chan struct{}),
	}
	go p.writeLoop()
	return p, nil
}

// Device describes the device behind the port.
func (p *Port) Device() Device { return p.dev }

// Listen starts pushing incoming data to l.  It may be called once.
func (p *Port) Listen(l Listener) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed() {
		return ncerr.ErrPortClosed
	}
	if !p.listening.CompareAndSwap(false, true) {
		return fmt.Errorf("serial %s: listener already running", p.dev.Name)
	}
	go p.readLoop(l)
	return nil
}

// Write sends data to the device.  It fails with
// [ncerr.ErrWriteTimeout] when the device has not accepted all of data
// within timeout.
func (p *Port) Write(data []byte, timeout time.Duration) error {
	if p.closed() {
		return ncerr.ErrPortClosed
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	req := writeReq{
		data: append([]byte(nil), data...),
		done: make(chan error, 1),
	}

	select {
	case p.writes <- req:
	case <-p.closing:
		return ncerr.ErrPortClosed
	case <-t.C:
		return ncerr.ErrWriteTimeout
	}

	select {
	case err := <-req.done:
		return err
	case <-p.closing:
		return ncerr.ErrPortClosed
	case <-t.C:
		return ncerr.ErrWriteTimeout
	}
}

// Close releases the device.  Once Close returns the listener has
// stopped and no further callbacks are made.  Close is safe to call
// more than once, but not from inside a Listener callback.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		close(p.closing)
		p.mu.Unlock()
		p.closeErr = p.h.Close()
		if p.listening.Load() {
			<-p.listenDone
		}
	})
	return p.closeErr
}

func (p *Port) closed() bool {
	select {
	case <-p.closing:
		return true
	default:
		return false
	}
}

func (p *Port) readLoop(l Listener) {
	defer close(p.listenDone)

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for {
		n, err := p.h.Read(buf)
		if p.closed() {
			return
		}
		if err != nil {
			l.OnRunError(fmt.Errorf("serial %s read: %w", p.dev.Name, err))
			return
		}
		if n > 0 {
			l.OnNewData(buf[:n])
		}
	}
}

// writeLoop owns all writes to the handle.  A write stuck in the driver
// keeps this goroutine until the handle is closed.
func (p *Port) writeLoop() {
	for {
		select {
		case <-p.closing:
			return
		case req := <-p.writes:
			req.done <- writeFull(p.h, req.data)
		}
	}
}

func writeFull(h Handle, data []byte) error {
	for len(data) > 0 {
		n, err := h.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// explain annotates the go.bug.st/serial error codes an operator can act
// on.
func explain(err error) error {
	var code serial.PortErrorCode
	var pe *serial.PortError
	switch {
	case ncerr.As(err, &pe):
		code = pe.Code()
	default:
		var pv serial.PortError
		if !ncerr.As(err, &pv) {
			return err
		}
		code = pv.Code()
	}

	switch code {
	case serial.PermissionDenied:
		return fmt.Errorf("%w (is the user in the dialout group?)", err)
	case serial.PortBusy:
		return fmt.Errorf("%w (in use by another process)", err)
	case serial.PortNotFound:
		return fmt.Errorf("%w (device detached?)", err)
	}
	return err
}
