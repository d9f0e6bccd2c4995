package asyncrt

// JoinSet owns a dynamic collection of tasks with one result type and
// yields their results in completion order.
type JoinSet[T any] struct {
	id    uint64
	exec  *Executor
	scope *Scope
	done  []*Task
	live  int
	shut  bool
}

// NewJoinSet creates an empty set whose tasks live in a scope nested in
// the spawner's.
func NewJoinSet[T any](sp Spawner) *JoinSet[T] {
	scope := NewScope(sp, false)
	return &JoinSet[T]{id: scope.exec.newResourceID(), exec: scope.exec, scope: scope}
}

// Spawn adds a task running fn.
func (s *JoinSet[T]) Spawn(fn func(*Task) (T, error)) TaskID {
	task := s.exec.spawn(s.scope, "", func(t *Task) (any, error) {
		return fn(t)
	})
	s.track(task)
	return task.id
}

// SpawnBlocking adds a blocking job running on the worker pool.
func (s *JoinSet[T]) SpawnBlocking(fn func() (T, error)) TaskID {
	task := s.exec.spawnBlocking(s.scope, "", func() (any, error) {
		return fn()
	})
	s.track(task)
	return task.id
}

func (s *JoinSet[T]) track(task *Task) {
	s.live++
	task.onFinish(func(t *Task) {
		s.live--
		if s.shut {
			return
		}
		s.done = append(s.done, t)
		s.exec.WakeKeyAll(JoinSetKey(s.id))
	})
}

// Len reports tasks not yet joined, finished or not.
func (s *JoinSet[T]) Len() int {
	return s.live + len(s.done)
}

// IsEmpty reports whether nothing is left to join.
func (s *JoinSet[T]) IsEmpty() bool {
	return s.Len() == 0
}

// JoinNext waits for the next task to finish and returns its result. It
// reports false when the set is empty.
func (s *JoinSet[T]) JoinNext(t *Task) (Result[T], bool) {
	t.checkCurrent()
	for len(s.done) == 0 {
		if s.live == 0 {
			return Result[T]{}, false
		}
		t.block(nil, JoinSetKey(s.id))
	}
	return s.pop(), true
}

// TryJoinNext returns an already finished result without waiting.
func (s *JoinSet[T]) TryJoinNext() (Result[T], bool) {
	if len(s.done) == 0 {
		return Result[T]{}, false
	}
	return s.pop(), true
}

func (s *JoinSet[T]) pop() Result[T] {
	task := s.done[0]
	s.done[0] = nil
	s.done = s.done[1:]
	value, _ := task.value.(T)
	return Result[T]{Task: task.id, Value: value, Err: task.err}
}

// Shutdown cancels every task in the set and discards unjoined results.
func (s *JoinSet[T]) Shutdown() {
	s.shut = true
	s.done = nil
	s.scope.Close()
}

// JoinNextOp is a Select operation whose value is the next Result[T]. On
// an empty set it completes at once with ErrChannelClosed.
func (s *JoinSet[T]) JoinNextOp() Op {
	return joinNextOp[T]{s: s}
}

type joinNextOp[T any] struct {
	s *JoinSet[T]
}

func (o joinNextOp[T]) poll(*Task) (bool, any, error) {
	if len(o.s.done) > 0 {
		return true, o.s.pop(), nil
	}
	if o.s.live == 0 {
		return true, nil, ErrChannelClosed
	}
	return false, nil, nil
}

func (o joinNextOp[T]) keys() []WakerKey {
	return []WakerKey{JoinSetKey(o.s.id)}
}

func (joinNextOp[T]) abandon(*Task) {}
