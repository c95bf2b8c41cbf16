// Package retry provides a bounded fixed-interval readiness poll, used to
// wait for the session context to settle after login before syncing.
package retry

import (
	"context"
	"time"
)

// Result reports how a poll ended.
type Result int

const (
	// Ready means the condition became true within the attempt budget.
	Ready Result = iota
	// TimedOut means the attempt budget was exhausted.
	TimedOut
	// Cancelled means the context ended before the condition became true.
	Cancelled
)

// Policy bounds a poll: attempts checks of the condition, interval apart.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// WaitReady polls check until it returns true, the policy is exhausted, or
// the context is cancelled. The context is re-checked on every iteration so
// a torn-down caller abandons the poll cooperatively.
func WaitReady(ctx context.Context, p Policy, check func() bool) Result {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if ctx.Err() != nil {
			return Cancelled
		}
		if check() {
			return Ready
		}
		if attempt == p.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return Cancelled
		case <-time.After(p.Interval):
		}
	}
	return TimedOut
}
