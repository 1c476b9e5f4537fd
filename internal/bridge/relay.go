// Package bridge relays bytes between a serial port and a socket until
// either direction fails.
package bridge

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"

	ncerr "databridge/internal/errors"
	"databridge/internal/metrics"
	"databridge/internal/serialport"
	"databridge/util"
)

// Serial is the serial side of a relay.  *serialport.Port implements it.
type Serial interface {
	Listen(l serialport.Listener) error
	Write(data []byte, timeout time.Duration) error
}

// Options tunes a Relay.
type Options struct {
	// WriteTimeout bounds each write to the serial port.
	WriteTimeout time.Duration

	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Relay copies serial data to the socket and socket data to the serial
// port.  A Relay runs once; the transports it is given stay owned by
// the caller, who closes them after Run returns and then calls Wait.
type Relay struct {
	serial Serial
	socket io.ReadWriter
	opts   Options

	failc   chan error
	failed  atomic.Bool
	readers sync.WaitGroup
}

// New returns a relay between serial and socket.
func New(serial Serial, socket io.ReadWriter, opts Options) *Relay {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Relay{
		serial: serial,
		socket: socket,
		opts:   opts,
		failc:  make(chan error, 1),
	}
}

// Run starts both directions and blocks until the first failure, which
// it returns as a *errors.RelayError, or until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.readers.Add(1)
	go r.socketToSerial()

	if err := r.serial.Listen(r); err != nil {
		r.fail(&ncerr.RelayError{Direction: ncerr.SerialToSocket, Err: err})
	}

	select {
	case err := <-r.failc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the socket reader has exited.  It returns once the
// caller has closed the socket.
func (r *Relay) Wait() { r.readers.Wait() }

// OnNewData forwards one chunk from the serial port to the socket.
func (r *Relay) OnNewData(data []byte) {
	if len(data) == 0 || r.failed.Load() {
		return
	}
	n, err := r.socket.Write(data)
	r.opts.Metrics.SerialToSocket(int64(n))
	if err != nil {
		r.fail(&ncerr.RelayError{Direction: ncerr.SerialToSocket, Err: err})
	}
}

// OnRunError reports a failure of the serial listener itself.
func (r *Relay) OnRunError(err error) {
	r.fail(&ncerr.RelayError{Direction: ncerr.SerialToSocket, Err: err, Runtime: true})
}

func (r *Relay) socketToSerial() {
	defer r.readers.Done()

	br := bufio.NewReaderSize(r.socket, util.DefaultBufSize)
	var one [1]byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			// Closed by the caller after the first failure.
			if r.failed.Load() && util.IsHarmless(err) {
				return
			}
			if err == io.EOF {
				err = ncerr.ErrStreamEnded
			}
			r.fail(&ncerr.RelayError{Direction: ncerr.SocketToSerial, Err: err})
			return
		}
		one[0] = b
		if err := r.serial.Write(one[:], r.opts.WriteTimeout); err != nil {
			r.fail(&ncerr.RelayError{Direction: ncerr.SocketToSerial, Err: err})
			return
		}
		r.opts.Metrics.SocketToSerial(1)
	}
}

// fail records err if it is the first failure.
func (r *Relay) fail(err error) {
	r.failed.Store(true)
	select {
	case r.failc <- err:
		r.opts.Logger.Debug("relay: %v", err)
	default:
	}
}
