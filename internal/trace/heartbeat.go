package trace

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StartHeartbeat emits a heartbeat event every interval until the returned
// stop function is called or ctx is cancelled. With a real clock, a trace
// that keeps beating while no task events appear points at a task that
// blocks the executor thread.
//
// The stop function waits for the heartbeat goroutine and is safe to call
// more than once. A nil tracer, disabled tracer or non-positive interval
// yields a no-op stop function.
func StartHeartbeat(ctx context.Context, tracer Tracer, interval time.Duration) (stop func()) {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return func() {}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var beats uint64
		for {
			select {
			case <-ticker.C:
				beats++
				tracer.Emit(&Event{
					Time:   time.Now(),
					Kind:   KindHeartbeat,
					Scope:  ScopeExecutor,
					GID:    GoroutineID(),
					Name:   "heartbeat",
					Detail: fmt.Sprintf("#%d", beats),
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
