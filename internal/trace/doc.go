// Package trace provides the event stream of the strand runtime.
//
// The executor in package asyncrt never prints anything. Instead it emits
// structured events (task spawned, task finished, timer fired, lock
// acquired, ...) into a Tracer, and this package decides where they go and
// how they look.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	strand run mutex --trace=- --trace-level=debug
//	strand run mpsc --trace=events.msgpack --trace-level=detail
//	strand trace show events.msgpack
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for post-mortem dumps
//   - MultiTracer: combines multiple tracers
//   - ChanTracer: forwards events to a channel (live UI)
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: only failure dumps
//   - LevelPhase: executor lifecycle (run, shutdown, stalls)
//   - LevelDetail: task lifecycle (spawn, complete, fail, cancel)
//   - LevelDebug: everything including timers, locks, channels and selects
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeExecutor: executor lifecycle
//   - ScopeTask: per-task lifecycle
//   - ScopeSync: synchronisation primitives (timers, mutexes, channels)
//
// # Formats
//
// Stream output can be text, NDJSON or msgpack. Msgpack streams can be read
// back with ReadMsgpack.
//
// # Context Propagation
//
// Tracers are propagated through the CLI via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeExecutor, "lesson:mutex", 0)
//	defer span.End("")
package trace
