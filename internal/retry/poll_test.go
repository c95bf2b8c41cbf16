package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitReadyImmediate(t *testing.T) {
	res := WaitReady(context.Background(), Policy{Attempts: 10, Interval: time.Millisecond}, func() bool {
		return true
	})
	assert.Equal(t, Ready, res)
}

func TestWaitReadyEventually(t *testing.T) {
	calls := 0
	res := WaitReady(context.Background(), Policy{Attempts: 10, Interval: time.Millisecond}, func() bool {
		calls++
		return calls >= 3
	})
	assert.Equal(t, Ready, res)
	assert.Equal(t, 3, calls)
}

func TestWaitReadyTimesOut(t *testing.T) {
	calls := 0
	res := WaitReady(context.Background(), Policy{Attempts: 4, Interval: time.Millisecond}, func() bool {
		calls++
		return false
	})
	assert.Equal(t, TimedOut, res)
	assert.Equal(t, 4, calls)
}

func TestWaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := WaitReady(ctx, Policy{Attempts: 10, Interval: time.Millisecond}, func() bool {
		return false
	})
	assert.Equal(t, Cancelled, res)
}

func TestWaitReadyCancelledMidPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	res := WaitReady(ctx, Policy{Attempts: 10, Interval: 50 * time.Millisecond}, func() bool {
		calls++
		if calls == 2 {
			cancel()
		}
		return false
	})
	assert.Equal(t, Cancelled, res)
	assert.LessOrEqual(t, calls, 3)
}
