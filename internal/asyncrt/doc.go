// Package asyncrt is a small cooperative task runtime.
//
// An Executor multiplexes tasks on one logical thread: exactly one task
// body runs at a time, and control changes hands only at suspension points
// (Sleep, Yield, Await, Select, Lock, Send, Recv). Task bodies are ordinary
// Go functions taking a *Task; each runs on its own goroutine, but the
// executor hands control back and forth explicitly so the bodies never run
// in parallel and need no locking among themselves.
//
// Scheduling is FIFO by default and fully deterministic under the virtual
// clock, which jumps straight to the next timer deadline. Config.Fuzz
// switches to a seeded random pick for reproducible interleavings.
//
// Cancellation is cooperative. A cancelled task notices at its next
// suspension point, runs the primitive's cleanup (leaving wait queues,
// handing back a lock, cancelling its timer), unwinds its deferred calls,
// and finishes as cancelled. Tasks spawned from a task join its enclosing
// scope and keep running after it finishes; tasks spawned on a Scope are
// cancelled when it closes. Call bodies, joins and scopes opened from a
// task are cancelled when that task finishes.
//
// Blocking work goes to SpawnBlocking, which runs it on a bounded worker
// pool outside the executor and reports back through the same handle
// mechanism.
package asyncrt
