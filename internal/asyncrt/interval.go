package asyncrt

import (
	"fmt"
	"time"
)

// Interval produces ticks on a fixed grid of start + k*period. The first
// tick is immediate. When the consumer falls behind, the late tick fires
// at once and the grid points missed meanwhile are skipped, so ticks never
// burst to catch up.
type Interval struct {
	period time.Duration
	next   Instant
	ticks  uint64
	missed uint64
}

// NewInterval starts an interval at the executor's current time.
func NewInterval(sp Spawner, period time.Duration) *Interval {
	if period <= 0 {
		panic(fmt.Sprintf("asyncrt: interval period must be positive, got %s", period))
	}
	return &Interval{period: period, next: sp.spawnScope().exec.Now()}
}

// Tick waits for the next grid point and returns it.
func (iv *Interval) Tick(t *Task) Instant {
	t.checkCurrent()
	if t.Now() < iv.next {
		t.SleepUntil(iv.next)
	}
	now := t.Now()
	fired := iv.next
	iv.next = iv.next.Add(iv.period)
	if iv.next <= now {
		skipped := now.Sub(iv.next)/iv.period + 1
		iv.next = iv.next.Add(skipped * iv.period)
		iv.missed += uint64(skipped)
	}
	iv.ticks++
	return fired
}

// Period returns the tick spacing.
func (iv *Interval) Period() time.Duration {
	return iv.period
}

// Next returns the grid point the next Tick waits for.
func (iv *Interval) Next() Instant {
	return iv.next
}

// Ticks reports how many ticks have fired.
func (iv *Interval) Ticks() uint64 {
	return iv.ticks
}

// Missed reports how many grid points were skipped.
func (iv *Interval) Missed() uint64 {
	return iv.missed
}

// Reset restarts the grid at the current time; the next tick is immediate.
func (iv *Interval) Reset(t *Task) {
	iv.next = t.Now()
}
