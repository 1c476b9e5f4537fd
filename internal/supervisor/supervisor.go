// Package supervisor owns the bridge lifecycle: it discovers both
// transports, runs the relay between them, and on failure tears
// everything down and tries again after a fixed delay, for as long as it
// is running.
package supervisor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"

	"databridge/internal/bridge"
	ncerr "databridge/internal/errors"
	"databridge/internal/metrics"
	"databridge/internal/retry"
	"databridge/util"
)

// Sink receives operator-visible events.  *util.Logger implements it.
type Sink interface {
	Log(msg string)
	LogErr(msg string, err error)
}

// Config wires a Supervisor.
type Config struct {
	Locator Locator
	Sink    Sink

	// RetryDelay is the pause before every discovery attempt and the
	// bound on each serial write (default 1s).
	RetryDelay time.Duration

	Metrics *metrics.Collector // nil disables counting
	Logger  *util.Logger       // debug tracing; nil is quiet
}

// Supervisor runs the discovery/bridge loop.  Start, Stop, Restart and
// Shutdown are safe for concurrent use and idempotent.
type Supervisor struct {
	cfg Config

	// lifecycle serialises Start/Stop/Restart.
	lifecycle sync.Mutex
	running   atomic.Bool
	gen       atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{}

	// mu guards state and the published handles.  Handles are non-nil
	// exactly while state is StateBridging.
	mu     sync.Mutex
	state  State
	socket io.ReadWriteCloser
	serial Serial
}

// New returns a stopped Supervisor.
func New(cfg Config) *Supervisor {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retry.DefaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = util.NewLogger(0)
	}
	if cfg.Sink == nil {
		cfg.Sink = cfg.Logger
	}
	return &Supervisor{cfg: cfg}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Metrics returns the collector the supervisor reports to, possibly nil.
func (s *Supervisor) Metrics() *metrics.Collector { return s.cfg.Metrics }

// Start launches the loop.  It does nothing if already running.
func (s *Supervisor) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.startLocked()
}

// Stop halts the loop, closes any open transports and waits for the
// loop to exit.  It does nothing if not running.
func (s *Supervisor) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked(context.Background()) //nolint:errcheck
}

// Shutdown is Stop with a bound on the wait for the loop.  If ctx ends
// first the transports are still closed, the state is STOPPED, and a
// *errors.ShutdownError is returned.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stopLocked(ctx)
}

// Restart stops and starts the supervisor as one operation.
func (s *Supervisor) Restart() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.cfg.Metrics.Restarted()
	s.stopLocked(context.Background()) //nolint:errcheck
	s.startLocked()
}

// restartFrom restarts on behalf of the loop of generation gen.  It is
// dropped if that loop has since been stopped or replaced.
func (s *Supervisor) restartFrom(gen int64) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.running.Load() || s.gen.Load() != gen {
		return
	}
	s.cfg.Metrics.Restarted()
	s.stopLocked(context.Background()) //nolint:errcheck
	s.startLocked()
}

func (s *Supervisor) startLocked() {
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	gen := s.gen.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.mu.Lock()
	s.state = StateDiscovering
	s.mu.Unlock()

	s.cfg.Logger.Debug("supervisor: starting loop %d", gen)
	go s.loop(ctx, gen, s.done)
}

func (s *Supervisor) stopLocked(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.cfg.Sink.Log("Halting data bridge.")
	s.running.Store(false)
	s.cancel()

	s.mu.Lock()
	sock, ser := s.socket, s.serial
	s.socket, s.serial = nil, nil
	s.state = StateStopped
	s.mu.Unlock()

	// Closing the socket unblocks the relay's read; closing the port
	// stops listener callbacks.
	if sock != nil {
		sock.Close() //nolint:errcheck
	}
	if ser != nil {
		ser.Close() //nolint:errcheck
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		err := &ncerr.ShutdownError{Err: ctx.Err()}
		s.cfg.Sink.LogErr("Interrupted waiting on graceful shutdown", err)
		return err
	}
}

// errMissed keeps the retry loop going after a discovery miss or relay
// failure.
var errMissed = errors.New("no bridge this round")

func (s *Supervisor) loop(ctx context.Context, gen int64, done chan struct{}) {
	defer close(done)

	s.cfg.Sink.Log("Please attach a serial device.")
	iv := retry.Interval{Delay: s.cfg.RetryDelay}
	err := iv.Loop(ctx, func(int) error {
		err := s.episode(ctx)
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		if ncerr.IsRuntime(err) {
			s.cfg.Sink.LogErr("Runtime error encountered", err)
			go s.restartFrom(gen)
			return retry.Permanent(err)
		}
		if err != nil && !ncerr.Is(err, ncerr.ErrNotFound) {
			s.cfg.Sink.Log("Attempting to reconnect...")
		}
		s.cfg.Sink.Log("Please attach a serial device.")
		return errMissed
	})
	s.cfg.Logger.Debug("supervisor: loop %d exited: %v", gen, err)
}

// episode runs one discovery attempt and, if both transports are
// found, one bridging episode.  It returns the miss or relay failure
// that ended it.
func (s *Supervisor) episode(ctx context.Context) error {
	m := s.cfg.Metrics
	m.DiscoveryAttempted()

	sock, err := s.cfg.Locator.LocateSocket(ctx)
	if err != nil {
		m.DiscoveryMissed()
		return err
	}
	s.cfg.Sink.Log("Established socket connection.")

	ser, err := s.cfg.Locator.FindSerialDevice(ctx)
	if err != nil {
		m.DiscoveryMissed()
		sock.Close() //nolint:errcheck
		return err
	}
	s.cfg.Sink.Log("Established serial connection.")

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		sock.Close() //nolint:errcheck
		ser.Close()  //nolint:errcheck
		return ctx.Err()
	}
	s.socket, s.serial = sock, ser
	s.state = StateBridging
	s.mu.Unlock()
	m.EpisodeStarted()

	relay := bridge.New(ser, sock, bridge.Options{
		WriteTimeout: s.cfg.RetryDelay,
		Metrics:      m,
		Logger:       s.cfg.Logger,
	})
	err = relay.Run(ctx)

	// Stop may already have taken the handles and closed them.
	s.mu.Lock()
	owned := s.socket == sock
	if owned {
		s.socket, s.serial = nil, nil
		s.state = StateDiscovering
	}
	s.mu.Unlock()
	if owned {
		sock.Close() //nolint:errcheck
		ser.Close()  //nolint:errcheck
	}
	relay.Wait()
	m.EpisodeEnded()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.RelayFailed(err.Error())
	s.cfg.Sink.LogErr("Failed!", err)
	return err
}
