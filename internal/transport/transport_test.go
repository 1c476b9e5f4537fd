package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "databridge/internal/errors"
	"databridge/tunnel"
	"databridge/util"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln := listen(t)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "hello from server\n" {
		t.Errorf("got %q, want %q", got, "hello from server\n")
	}
}

// TestTCPDialer_LocalIP verifies the source address is bound.
func TestTCPDialer_LocalIP(t *testing.T) {
	ln := listen(t)
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	d := &TCPDialer{Timeout: 2 * time.Second, LocalIP: net.IPv4(127, 0, 0, 1)}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	local := conn.LocalAddr().(*net.TCPAddr)
	if !local.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("local IP = %v, want 127.0.0.1", local.IP)
	}
}

// TestTCPDialer_Interface verifies binding to the loopback device.  An
// unprivileged process cannot bind, which the dialer tolerates.
func TestTCPDialer_Interface(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("device binding is Linux only")
	}
	ln := listen(t)
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	d := &TCPDialer{Timeout: 2 * time.Second, Interface: "lo"}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTCPDialer_Refused verifies dial errors carry the address.
func TestTCPDialer_Refused(t *testing.T) {
	ln := listen(t)
	addr := ln.Addr().String()
	ln.Close()

	d := &TCPDialer{Timeout: 2 * time.Second}
	_, err := d.Dial(context.Background(), "tcp", addr)

	var netErr *ncerr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if netErr.Addr != addr || netErr.Op != "dial" {
		t.Errorf("got op=%q addr=%q", netErr.Op, netErr.Addr)
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type countingDialer struct {
	TCPDialer
	closes int
}

func (d *countingDialer) Close() error {
	d.closes++
	return nil
}

// TestSocket_CloseOnce verifies Close is idempotent and releases the
// dialer exactly once.
func TestSocket_CloseOnce(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	d := &countingDialer{}
	s := NewSocket(a, d)

	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
	if d.closes != 1 {
		t.Errorf("dialer closes = %d, want 1", d.closes)
	}
	if _, err := s.Write([]byte("x")); err == nil {
		t.Error("write after close should fail")
	}
}

// TestSocket_NilDialer verifies a Socket without a dialer closes cleanly.
func TestSocket_NilDialer(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	if err := NewSocket(a, nil).Close(); err != nil {
		t.Fatal(err)
	}
}

type failDialer struct{ calls int }

func (d *failDialer) Dial(context.Context, string, string) (net.Conn, error) {
	d.calls++
	return nil, errors.New("no route")
}

func (d *failDialer) Close() error { return nil }

// TestSSHDialer_UsesVia verifies the gateway is dialed through the
// supplied dialer and that failures surface.
func TestSSHDialer_UsesVia(t *testing.T) {
	via := &failDialer{}
	cfg := &tunnel.SSHConfig{User: "u", Host: "gw", Port: 2222}
	d := NewSSHDialer(cfg, via, util.NewLogger(0)).
		WithAuth([]ssh.AuthMethod{ssh.Password("pw")})

	_, err := d.Dial(context.Background(), "tcp", "10.0.0.1:80")
	var netErr *ncerr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if via.calls != 1 {
		t.Errorf("via calls = %d, want 1", via.calls)
	}
	if cfg.Via != nil {
		t.Error("caller's config should not be modified")
	}
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
