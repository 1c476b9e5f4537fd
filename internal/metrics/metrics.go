// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a bridge.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Collector tracks runtime metrics for one supervisor.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	episodesActive    atomic.Int64
	episodesTotal     atomic.Int64
	discoveryAttempts atomic.Int64
	discoveryMisses   atomic.Int64
	serialToSocket    atomic.Int64
	socketToSerial    atomic.Int64
	relayFailures     atomic.Int64
	restarts          atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastEpisode  time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Episode metrics ──────────────────────────────────────────────────

// EpisodeStarted records entry into the bridging state.
func (c *Collector) EpisodeStarted() {
	if c == nil {
		return
	}
	c.episodesActive.Inc()
	c.episodesTotal.Inc()
	c.mu.Lock()
	c.lastEpisode = time.Now()
	c.mu.Unlock()
}

// EpisodeEnded records exit from the bridging state.
func (c *Collector) EpisodeEnded() {
	if c == nil {
		return
	}
	c.episodesActive.Dec()
}

// ActiveEpisodes returns 1 while bridging, 0 otherwise.
func (c *Collector) ActiveEpisodes() int64 {
	if c == nil {
		return 0
	}
	return c.episodesActive.Load()
}

// TotalEpisodes returns the lifetime number of bridging episodes.
func (c *Collector) TotalEpisodes() int64 {
	if c == nil {
		return 0
	}
	return c.episodesTotal.Load()
}

// ── Discovery metrics ────────────────────────────────────────────────

// DiscoveryAttempted records the start of one discovery iteration.
func (c *Collector) DiscoveryAttempted() {
	if c == nil {
		return
	}
	c.discoveryAttempts.Inc()
}

// DiscoveryMissed records an iteration abandoned for lack of a path or
// device.
func (c *Collector) DiscoveryMissed() {
	if c == nil {
		return
	}
	c.discoveryMisses.Inc()
}

// DiscoveryAttempts returns the number of discovery iterations started.
func (c *Collector) DiscoveryAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.discoveryAttempts.Load()
}

// DiscoveryMisses returns the number of abandoned iterations.
func (c *Collector) DiscoveryMisses() int64 {
	if c == nil {
		return 0
	}
	return c.discoveryMisses.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// SerialToSocket records n bytes relayed from the device to the network.
func (c *Collector) SerialToSocket(n int64) {
	if c == nil {
		return
	}
	c.serialToSocket.Add(n)
}

// SocketToSerial records n bytes relayed from the network to the device.
func (c *Collector) SocketToSerial(n int64) {
	if c == nil {
		return
	}
	c.socketToSerial.Add(n)
}

// TotalSerialToSocket returns total uplink bytes.
func (c *Collector) TotalSerialToSocket() int64 {
	if c == nil {
		return 0
	}
	return c.serialToSocket.Load()
}

// TotalSocketToSerial returns total downlink bytes.
func (c *Collector) TotalSocketToSerial() int64 {
	if c == nil {
		return 0
	}
	return c.socketToSerial.Load()
}

// ── Failure metrics ──────────────────────────────────────────────────

// RelayFailed records the end of an episode by relay failure.
func (c *Collector) RelayFailed(msg string) {
	if c == nil {
		return
	}
	c.relayFailures.Inc()
	c.RecordError(msg)
}

// RelayFailures returns the number of episodes ended by a relay failure.
func (c *Collector) RelayFailures() int64 {
	if c == nil {
		return 0
	}
	return c.relayFailures.Load()
}

// Restarted records a full stop/start cycle.
func (c *Collector) Restarted() {
	if c == nil {
		return
	}
	c.restarts.Inc()
}

// Restarts returns the number of full restarts.
func (c *Collector) Restarts() int64 {
	if c == nil {
		return 0
	}
	return c.restarts.Load()
}

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Inc()
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	EpisodesActive    int64  `json:"episodes_active"`
	EpisodesTotal     int64  `json:"episodes_total"`
	DiscoveryAttempts int64  `json:"discovery_attempts"`
	DiscoveryMisses   int64  `json:"discovery_misses"`
	SerialToSocket    int64  `json:"bytes_serial_to_socket"`
	SocketToSerial    int64  `json:"bytes_socket_to_serial"`
	RelayFailures     int64  `json:"relay_failures"`
	Restarts          int64  `json:"restarts"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastEpisode       string `json:"last_episode,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		EpisodesActive:    c.episodesActive.Load(),
		EpisodesTotal:     c.episodesTotal.Load(),
		DiscoveryAttempts: c.discoveryAttempts.Load(),
		DiscoveryMisses:   c.discoveryMisses.Load(),
		SerialToSocket:    c.serialToSocket.Load(),
		SocketToSerial:    c.socketToSerial.Load(),
		RelayFailures:     c.relayFailures.Load(),
		Restarts:          c.restarts.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastEpisode.IsZero() {
		s.LastEpisode = c.lastEpisode.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
