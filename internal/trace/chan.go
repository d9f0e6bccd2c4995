package trace

import "sync"

// ChanTracer forwards events to a channel. Events are dropped rather than
// blocking the emitter when the channel is full.
type ChanTracer struct {
	mu     sync.Mutex
	ch     chan Event
	level  Level
	closed bool
}

// NewChanTracer creates a ChanTracer with the given buffer size.
func NewChanTracer(level Level, buffer int) *ChanTracer {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChanTracer{
		ch:    make(chan Event, buffer),
		level: level,
	}
}

// Events returns the receive side of the tracer's channel. It is closed by Close.
func (t *ChanTracer) Events() <-chan Event {
	return t.ch
}

// Emit forwards a copy of ev.
func (t *ChanTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- stored:
	default:
	}
}

// Flush does nothing.
func (t *ChanTracer) Flush() error { return nil }

// Close closes the event channel. Safe to call more than once.
func (t *ChanTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	return nil
}

// Level returns the current tracing level.
func (t *ChanTracer) Level() Level { return t.level }

// Enabled returns true if tracing is active.
func (t *ChanTracer) Enabled() bool { return t.level > LevelOff }
