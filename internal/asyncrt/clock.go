package asyncrt

import (
	"context"
	"time"
)

// Instant is a point on an executor clock, measured from the executor start.
type Instant time.Duration

// Add returns the instant d after i.
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d)
}

// Sub returns the duration i-j.
func (i Instant) Sub(j Instant) time.Duration {
	return time.Duration(i - j)
}

// Duration returns the offset from the clock origin.
func (i Instant) Duration() time.Duration {
	return time.Duration(i)
}

func (i Instant) String() string {
	return time.Duration(i).String()
}

// TimerMode controls whether timers use virtual or real time.
type TimerMode uint8

const (
	TimerModeVirtual TimerMode = iota
	TimerModeReal
)

func (m TimerMode) String() string {
	if m == TimerModeReal {
		return "real"
	}
	return "virtual"
}

// Clock supplies time and blocking behavior for timers.
type Clock interface {
	Now() Instant
	// WaitUntil returns once the clock reaches deadline, wake fires or ctx
	// is done.
	WaitUntil(ctx context.Context, deadline Instant, wake <-chan struct{}) error
}

// VirtualClock advances executor time without blocking. Waiting for a
// deadline jumps straight to it.
type VirtualClock struct {
	now Instant
}

func (c *VirtualClock) Now() Instant {
	if c == nil {
		return 0
	}
	return c.now
}

func (c *VirtualClock) WaitUntil(ctx context.Context, deadline Instant, _ <-chan struct{}) error {
	if c == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(deadline)
	return nil
}

// Advance moves the clock forward to deadline. It never moves backwards.
func (c *VirtualClock) Advance(deadline Instant) {
	if c == nil || deadline <= c.now {
		return
	}
	c.now = deadline
}

// RealClock follows the monotonic wall clock.
// It relies on NowFunc for monotonic time.
type RealClock struct {
	NowFunc func() time.Duration
}

// NewRealClock returns a clock whose origin is the moment of the call.
func NewRealClock() *RealClock {
	start := time.Now()
	return &RealClock{NowFunc: func() time.Duration { return time.Since(start) }}
}

func (c *RealClock) Now() Instant {
	if c == nil || c.NowFunc == nil {
		return 0
	}
	return Instant(c.NowFunc())
}

func (c *RealClock) WaitUntil(ctx context.Context, deadline Instant, wake <-chan struct{}) error {
	if c == nil {
		return nil
	}
	delay := deadline.Sub(c.Now())
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isVirtual(c Clock) bool {
	_, ok := c.(*VirtualClock)
	return ok
}
