// Package retry provides the fixed-interval retry loop that drives the
// bridge's discovery cycle.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultDelay is the pause before every attempt.
const DefaultDelay = time.Second

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
// Return [Permanent](err) from the operation function to stop retrying
// immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  The loop will return the inner
// error immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Interval ─────────────────────────────────────────────────────────

// Interval retries an operation forever with the same pause before
// every attempt, the first one included.  There is no growth and no
// jitter.
type Interval struct {
	// Delay is the pause before each attempt (default 1s).
	Delay time.Duration
}

// Loop waits Delay, then calls fn, and repeats until fn returns nil, fn
// returns a permanent error, or ctx is cancelled.
//
// The attempt parameter passed to fn is 1-based.
func (iv *Interval) Loop(ctx context.Context, fn func(attempt int) error) error {
	delay := iv.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	for attempt := 1; ; attempt++ {
		if !Sleep(ctx, delay) {
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
	}
}

// Sleep pauses for d and reports whether the full pause elapsed.  It
// returns false as soon as ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
