package asyncrt

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Task is a unit of concurrent work owned by an executor. A task body
// receives its *Task and uses it for every suspending operation.
type Task struct {
	id        TaskID
	name      string
	kind      TaskKind
	status    TaskStatus
	result    TaskResultKind
	value     any
	err       error
	cancelled bool
	started   bool

	exec     *Executor
	parent   *Scope
	children *Scope
	fn       func(*Task) (any, error)
	resume   chan struct{}
	onDone   []func(*Task)
}

// ID returns the task identifier.
func (t *Task) ID() TaskID {
	if t == nil {
		return 0
	}
	return t.id
}

// Name returns the name given at spawn time.
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Status returns the scheduling state.
func (t *Task) Status() TaskStatus {
	if t == nil {
		return TaskDone
	}
	return t.status
}

// Kind returns how the task body executes.
func (t *Task) Kind() TaskKind {
	if t == nil {
		return TaskKindUser
	}
	return t.kind
}

// Cancelled reports whether cancellation was requested.
func (t *Task) Cancelled() bool {
	return t != nil && t.cancelled
}

// Executor returns the executor running the task.
func (t *Task) Executor() *Executor {
	if t == nil {
		return nil
	}
	return t.exec
}

// Now reports the executor's current time.
func (t *Task) Now() Instant {
	return t.Executor().Now()
}

// Scope returns the scope the task belongs to.
func (t *Task) Scope() *Scope {
	if t == nil {
		return nil
	}
	return t.parent
}

// spawnScope returns the scope tasks spawned from t join: the nearest
// enclosing scope that is not tied to a task body's lifetime. Such tasks
// keep running after t finishes, whether or not their handle is awaited.
func (t *Task) spawnScope() *Scope {
	s := t.parent
	for s.implicit && s.parent != nil {
		s = s.parent
	}
	return s
}

// childScope returns the scope for structured children of this task
// (Call bodies, joins, nested scopes). It is closed, cancelling whatever
// is still live, when the task finishes.
func (t *Task) childScope() *Scope {
	if t.children == nil {
		t.children = t.exec.newScope(t.parent, t, false)
		t.children.implicit = true
		if t.status == TaskDone {
			t.children.closed = true
		}
	}
	return t.children
}

func (t *Task) onFinish(hook func(*Task)) {
	if t.status == TaskDone {
		hook(t)
		return
	}
	t.onDone = append(t.onDone, hook)
}

// main runs the task body on the task's own goroutine. Control is handed
// back to the executor through exec.yield when the body returns, panics or
// exits after cancellation.
func (t *Task) main() {
	var (
		value    any
		err      error
		returned bool
	)
	defer func() {
		kind := TaskResultSuccess
		switch {
		case !returned:
			if r := recover(); r != nil {
				kind = TaskResultFailed
				err = &TaskFailure{Task: t.id, Name: t.name, Panic: r, Stack: debug.Stack()}
			} else {
				kind = TaskResultCancelled
				err = ErrCancelled
			}
			value = nil
		case err != nil:
			kind = TaskResultFailed
			err = &TaskFailure{Task: t.id, Name: t.name, Cause: err}
		}
		exec := t.exec
		exec.finish(t, kind, value, err)
		exec.yield <- struct{}{}
	}()
	value, err = t.fn(t)
	returned = true
}

// suspend hands control back to the executor loop and blocks until the
// task is resumed. It reports false if the task was cancelled.
func (t *Task) suspend() bool {
	if t.cancelled {
		return false
	}
	t.exec.yield <- struct{}{}
	<-t.resume
	return !t.cancelled
}

// exit unwinds the task goroutine, running deferred calls.
func (t *Task) exit() {
	runtime.Goexit()
}

func (t *Task) checkCurrent() {
	if t == nil || t.exec == nil || t.exec.current != t {
		panic("asyncrt: task used outside its own body")
	}
}

// block parks the task on keys and suspends it. If the task is cancelled
// while parked, cleanup runs and the task exits.
func (t *Task) block(cleanup func(), keys ...WakerKey) {
	t.checkCurrent()
	t.exec.park(t, keys...)
	if t.suspend() {
		return
	}
	if cleanup != nil {
		cleanup()
	}
	t.exit()
}

// Yield requeues the task behind every other ready task.
func (t *Task) Yield() {
	t.yield(nil)
}

func (t *Task) yield(cleanup func()) {
	t.checkCurrent()
	t.exec.enqueue(t.id)
	if t.suspend() {
		return
	}
	if cleanup != nil {
		cleanup()
	}
	t.exit()
}

// CheckCancel exits the task if cancellation was requested. Bodies that
// loop without suspending use it as a cancellation point.
func (t *Task) CheckCancel() {
	t.checkCurrent()
	if t.cancelled {
		t.exit()
	}
}

// Sleep suspends the task for d. A non-positive duration returns at once.
func (t *Task) Sleep(d time.Duration) {
	t.SleepUntil(t.Now().Add(d))
}

// SleepUntil suspends the task until the executor clock reaches deadline.
func (t *Task) SleepUntil(deadline Instant) {
	t.checkCurrent()
	exec := t.exec
	if deadline <= exec.Now() {
		return
	}
	id := exec.TimerSchedule(t.id, deadline)
	for exec.TimerActive(id) {
		t.block(func() { exec.TimerCancel(id) }, TimerKey(id))
	}
}
