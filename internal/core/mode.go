// Package core is the orchestration layer.  It composes discovery, the
// relay and the supervisor into complete operational modes and provides
// a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport, serialport  →  locator, bridge  →  supervisor  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of databridge (run the
// bridge, or list what discovery sees).  Each mode owns its lifecycle
// until ctx is cancelled or its work is done.
type Mode interface {
	Run(ctx context.Context) error
}
