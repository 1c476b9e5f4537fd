package core

import (
	"context"
	"os"
	"time"

	"databridge/internal/supervisor"
	"databridge/util"
)

// BridgeMode runs the supervisor until ctx is cancelled.
type BridgeMode struct {
	Supervisor *supervisor.Supervisor

	// Reload restarts the bridge on every receive (SIGHUP).
	Reload <-chan os.Signal

	// StatsInterval, when positive, logs a metrics snapshot that often.
	StatsInterval time.Duration

	// ShutdownGrace bounds the wait for the loop once ctx is done.
	ShutdownGrace time.Duration

	Logger *util.Logger
}

// Run starts the supervisor and blocks until ctx is done, then stops it.
// A stop that outlives ShutdownGrace is reported as a
// *errors.ShutdownError.
func (m *BridgeMode) Run(ctx context.Context) error {
	m.Supervisor.Start()

	var stats <-chan time.Time
	if m.StatsInterval > 0 {
		t := time.NewTicker(m.StatsInterval)
		defer t.Stop()
		stats = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return m.shutdown()

		case sig := <-m.Reload:
			m.Logger.Verbose("received %v, restarting bridge", sig)
			m.Supervisor.Restart()

		case <-stats:
			m.logStats()
		}
	}
}

func (m *BridgeMode) shutdown() error {
	ctx := context.Background()
	if m.ShutdownGrace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.ShutdownGrace)
		defer cancel()
	}
	return m.Supervisor.Shutdown(ctx)
}

func (m *BridgeMode) logStats() {
	s := m.Supervisor.Metrics().Snapshot()
	m.Logger.Info("%s: up %s, episodes %d, serial->socket %d B, socket->serial %d B, misses %d, failures %d, restarts %d",
		m.Supervisor.State(), s.Uptime, s.EpisodesTotal, s.SerialToSocket, s.SocketToSerial,
		s.DiscoveryMisses, s.RelayFailures, s.Restarts)
	m.Logger.Debug("metrics %s", m.Supervisor.Metrics().JSON())
}
