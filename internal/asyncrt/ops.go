package asyncrt

import "time"

// Op is one awaitable operation a Select can wait on. An Op carries the
// state of a single wait (a registered timer, a spawned body) and is used
// by at most one Select call.
type Op interface {
	// poll completes the operation if it can do so without suspending.
	poll(t *Task) (done bool, value any, err error)
	// keys lists the wait keys that can make the operation ready.
	keys() []WakerKey
	// abandon releases whatever the operation registered when it loses.
	abandon(t *Task)
}

// starter is implemented by operations that launch work of their own.
// Select starts them and lets the work reach its first suspension point
// before deciding that nothing is ready.
type starter interface {
	start(t *Task) *Task
}

type readyOp struct{}

// Ready is an operation that completes immediately.
func Ready() Op {
	return readyOp{}
}

func (readyOp) poll(*Task) (bool, any, error) { return true, nil, nil }
func (readyOp) keys() []WakerKey              { return nil }
func (readyOp) abandon(*Task)                 {}

type afterOp struct {
	delay time.Duration
	timer TimerID
	armed bool
}

// After completes once d has elapsed on the executor clock, counted from
// the first time the Select polls it. Its value is the firing Instant.
func After(d time.Duration) Op {
	return &afterOp{delay: d}
}

func (o *afterOp) poll(t *Task) (bool, any, error) {
	exec := t.exec
	if !o.armed {
		o.armed = true
		if o.delay <= 0 {
			return true, exec.Now(), nil
		}
		o.timer = exec.TimerSchedule(t.id, exec.Now().Add(o.delay))
		return false, nil, nil
	}
	if exec.TimerActive(o.timer) {
		return false, nil, nil
	}
	return true, exec.Now(), nil
}

func (o *afterOp) keys() []WakerKey {
	if o.timer == 0 {
		return nil
	}
	return []WakerKey{TimerKey(o.timer)}
}

func (o *afterOp) abandon(t *Task) {
	t.exec.TimerCancel(o.timer)
}

type joinOp struct {
	task *Task
}

// Join completes when the handle's task finishes, yielding its value and
// error.
func Join[T any](h *Handle[T]) Op {
	return joinOp{task: h.task}
}

func (o joinOp) poll(*Task) (bool, any, error) {
	if o.task.status != TaskDone {
		return false, nil, nil
	}
	return true, o.task.value, o.task.err
}

func (o joinOp) keys() []WakerKey {
	return []WakerKey{JoinKey(o.task.id)}
}

func (joinOp) abandon(*Task) {}

type callOp struct {
	fn    func(*Task) (any, error)
	child *Task
}

// Call runs fn as a child task when the Select first polls it. If another
// branch wins, the child is cancelled.
func Call[T any](fn func(*Task) (T, error)) Op {
	return &callOp{fn: func(t *Task) (any, error) { return fn(t) }}
}

func (o *callOp) start(t *Task) *Task {
	if o.child != nil {
		return nil
	}
	o.child = t.exec.spawn(t.childScope(), "", o.fn)
	return o.child
}

func (o *callOp) poll(t *Task) (bool, any, error) {
	o.start(t)
	if o.child.status != TaskDone {
		return false, nil, nil
	}
	return true, o.child.value, o.child.err
}

func (o *callOp) keys() []WakerKey {
	if o.child == nil {
		return nil
	}
	return []WakerKey{JoinKey(o.child.id)}
}

func (o *callOp) abandon(t *Task) {
	if o.child != nil {
		t.exec.cancel(o.child)
	}
}
