package asyncrt

// Spawner is anything tasks can be spawned from: an *Executor (root scope),
// a *Scope, or a *Task (the scope enclosing the task; spawned tasks outlive
// the spawning task).
type Spawner interface {
	spawnScope() *Scope
}

// Handle is the awaitable result of a spawned task.
type Handle[T any] struct {
	task *Task
}

// Result pairs a task's value with its error.
type Result[T any] struct {
	Task  TaskID
	Value T
	Err   error
}

// Ok reports whether the task succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Spawn starts fn as a new task. The task first runs when the executor next
// reaches it in the ready queue; the caller keeps running until it suspends.
func Spawn[T any](sp Spawner, fn func(*Task) (T, error)) *Handle[T] {
	return SpawnNamed(sp, "", fn)
}

// SpawnNamed is Spawn with a name shown in events and errors.
func SpawnNamed[T any](sp Spawner, name string, fn func(*Task) (T, error)) *Handle[T] {
	scope := sp.spawnScope()
	task := scope.exec.spawn(scope, name, func(t *Task) (any, error) {
		return fn(t)
	})
	return &Handle[T]{task: task}
}

// ID returns the spawned task's ID.
func (h *Handle[T]) ID() TaskID {
	if h == nil {
		return 0
	}
	return h.task.id
}

// Done reports whether the task has finished.
func (h *Handle[T]) Done() bool {
	return h != nil && h.task.status == TaskDone
}

// Status returns the task's scheduling state.
func (h *Handle[T]) Status() TaskStatus {
	if h == nil {
		return TaskDone
	}
	return h.task.status
}

// Outcome reports how the task finished. It is meaningful only once Done.
func (h *Handle[T]) Outcome() TaskResultKind {
	if h == nil {
		return TaskResultCancelled
	}
	return h.task.result
}

// Result returns the task's value and error, or ErrPending before it
// finishes.
func (h *Handle[T]) Result() (T, error) {
	var zero T
	if h == nil {
		return zero, ErrCancelled
	}
	if h.task.status != TaskDone {
		return zero, ErrPending
	}
	value, _ := h.task.value.(T)
	return value, h.task.err
}

// Await suspends t until the task finishes and returns its result. Awaiting
// a finished task returns the same result again.
func (h *Handle[T]) Await(t *Task) (T, error) {
	t.checkCurrent()
	if h.task == t {
		var zero T
		return zero, ErrSelfAwait
	}
	for h.task.status != TaskDone {
		t.block(nil, JoinKey(h.task.id))
	}
	return h.Result()
}

// Abort requests cancellation of the task.
func (h *Handle[T]) Abort() {
	if h == nil {
		return
	}
	h.task.exec.cancel(h.task)
}

// AwaitAll waits for every handle and returns the results in argument order.
func AwaitAll[T any](t *Task, handles ...*Handle[T]) []Result[T] {
	out := make([]Result[T], len(handles))
	for i, h := range handles {
		value, err := h.Await(t)
		out[i] = Result[T]{Task: h.ID(), Value: value, Err: err}
	}
	return out
}

// JoinAll runs every fn concurrently as a child of t and waits for all of
// them. Results come back in argument order. If t is cancelled while
// waiting, the bodies are cancelled with it.
func JoinAll[T any](t *Task, fns ...func(*Task) (T, error)) []Result[T] {
	t.checkCurrent()
	scope := NewScope(t, false)
	handles := make([]*Handle[T], len(fns))
	for i, fn := range fns {
		handles[i] = Spawn(scope, fn)
	}
	out := AwaitAll(t, handles...)
	scope.Close()
	return out
}

// Join2 runs two bodies of different result types concurrently and waits
// for both.
func Join2[A, B any](t *Task, fa func(*Task) (A, error), fb func(*Task) (B, error)) (Result[A], Result[B]) {
	t.checkCurrent()
	scope := NewScope(t, false)
	ha := Spawn(scope, fa)
	hb := Spawn(scope, fb)
	va, ea := ha.Await(t)
	vb, eb := hb.Await(t)
	scope.Close()
	return Result[A]{Task: ha.ID(), Value: va, Err: ea}, Result[B]{Task: hb.ID(), Value: vb, Err: eb}
}
