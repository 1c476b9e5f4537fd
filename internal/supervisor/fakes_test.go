package supervisor

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	ncerr "databridge/internal/errors"
	"databridge/internal/serialport"
)

// fakeSocket blocks reads until closed, unless readErr is set.
type fakeSocket struct {
	readErr error
	closes  atomic.Int32
	closed  chan struct{}
	once    sync.Once
}

func newFakeSocket(readErr error) *fakeSocket {
	return &fakeSocket{readErr: readErr, closed: make(chan struct{})}
}

func (f *fakeSocket) Read([]byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	<-f.closed
	return 0, io.ErrClosedPipe
}

func (f *fakeSocket) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakeSocket) Close() error {
	f.closes.Inc()
	f.once.Do(func() { close(f.closed) })
	return nil
}

// fakeSerial optionally reports a listener failure as soon as it is
// listened to.
type fakeSerial struct {
	runErr error
	closes atomic.Int32
}

func (f *fakeSerial) Listen(l serialport.Listener) error {
	if f.runErr != nil {
		go l.OnRunError(f.runErr)
	}
	return nil
}

func (f *fakeSerial) Write([]byte, time.Duration) error { return nil }

func (f *fakeSerial) Close() error {
	f.closes.Inc()
	return nil
}

// fakeLocator hands out fresh fakes and records the call order.
type fakeLocator struct {
	socketMiss bool
	serialMiss bool
	readErr    error
	runErr     error

	// block, when set, makes LocateSocket wait for it regardless of ctx.
	block chan struct{}

	mu      sync.Mutex
	calls   []string
	sockets []*fakeSocket
	serials []*fakeSerial
}

func (f *fakeLocator) LocateSocket(ctx context.Context) (io.ReadWriteCloser, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "socket")
	if f.socketMiss {
		return nil, ncerr.Miss("network", "test", nil)
	}
	s := newFakeSocket(f.readErr)
	f.sockets = append(f.sockets, s)
	return s, nil
}

func (f *fakeLocator) FindSerialDevice(context.Context) (Serial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "serial")
	if f.serialMiss {
		return nil, ncerr.Miss("serial", "test", nil)
	}
	s := &fakeSerial{runErr: f.runErr}
	f.serials = append(f.serials, s)
	return s, nil
}

func (f *fakeLocator) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == kind {
			n++
		}
	}
	return n
}

func (f *fakeLocator) opened() ([]*fakeSocket, []*fakeSerial) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSocket(nil), f.sockets...), append([]*fakeSerial(nil), f.serials...)
}

// recordSink collects log lines.
type recordSink struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordSink) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordSink) LogErr(msg string, err error) { r.Log(msg + ": " + err.Error()) }

func (r *recordSink) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recordSink) has(prefix string) bool {
	for _, m := range r.lines() {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// checkInvariant verifies handles are published exactly while bridging.
func checkInvariant(t *testing.T, s *Supervisor) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	bridging := s.state == StateBridging
	if (s.socket != nil) != bridging || (s.serial != nil) != bridging {
		t.Errorf("state %v with socket=%v serial=%v", s.state, s.socket != nil, s.serial != nil)
	}
}
