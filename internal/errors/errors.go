// Package errors provides domain-specific error types for databridge.
//
// The bridge never surfaces these to its caller as failures: the
// supervisor absorbs them into state transitions and log lines.  The
// types exist so that each layer can tell a discovery miss from a relay
// failure without string matching.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrNotFound marks a discovery miss: no eligible network path or
	// serial device this iteration.
	ErrNotFound = errors.New("not found")

	// ErrStreamEnded reports that the socket's inbound stream reached
	// end-of-file.
	ErrStreamEnded = errors.New("stream ended")

	// ErrWriteTimeout reports a serial write that did not complete
	// within its bound.
	ErrWriteTimeout = errors.New("serial write timed out")

	// ErrPortClosed is returned by operations on a closed serial port.
	ErrPortClosed = errors.New("serial port is closed")

	ErrNotConnected = errors.New("not connected")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "bind", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the condition looks transient
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// DiscoveryError is a discovery miss.  It always matches [ErrNotFound];
// Err carries the connect or open failure behind the miss, if any.
type DiscoveryError struct {
	Target string // "network" or "serial"
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s discovery: %s: %v", e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s discovery: %s", e.Target, e.Reason)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Is reports every DiscoveryError as an [ErrNotFound].
func (e *DiscoveryError) Is(target error) bool { return target == ErrNotFound }

// Direction names one half of the relay.
type Direction string

const (
	SerialToSocket Direction = "serial->socket"
	SocketToSerial Direction = "socket->serial"
)

// RelayError ends a bridging episode.
type RelayError struct {
	Direction Direction
	Err       error

	// Runtime is set when the serial listener itself failed; the
	// supervisor answers those with a full restart.
	Runtime bool
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Direction, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

// ShutdownError reports that waiting for the bridge loop to finish was
// cut short.
type ShutdownError struct {
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("interrupted waiting on graceful shutdown: %v", e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// Miss creates a DiscoveryError.
func Miss(target, reason string, cause error) *DiscoveryError {
	return &DiscoveryError{Target: target, Reason: reason, Err: cause}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRuntime reports whether err is a relay failure raised by the serial
// listener.
func IsRuntime(err error) bool {
	var re *RelayError
	return errors.As(err, &re) && re.Runtime
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
