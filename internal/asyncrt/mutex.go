package asyncrt

import (
	"fmt"

	"strand/internal/trace"
)

// Mutex guards a value shared between tasks of one executor. Waiters are
// served in FIFO order: unlocking hands the lock straight to the oldest
// waiter. Holding the guard across suspension points is allowed.
type Mutex[T any] struct {
	exec    *Executor
	id      uint64
	value   T
	owner   TaskID
	queue   []TaskID
	locks   uint64
	unlocks uint64
}

// NewMutex returns an unlocked mutex holding v.
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

// bind ties the mutex to the executor of its first user.
func (m *Mutex[T]) bind(t *Task) {
	switch m.exec {
	case t.exec:
	case nil:
		m.exec = t.exec
		m.id = t.exec.newResourceID()
	default:
		panic("asyncrt: mutex used from two executors")
	}
}

// Guard is exclusive access to a Mutex value until Unlock.
type Guard[T any] struct {
	m        *Mutex[T]
	task     *Task
	released bool
}

// ID returns the mutex identifier used in wait keys. It is zero until the
// first lock attempt.
func (m *Mutex[T]) ID() uint64 {
	return m.id
}

// Locked reports whether some task holds the lock.
func (m *Mutex[T]) Locked() bool {
	return m.owner != 0
}

// Owner returns the task holding the lock, or zero.
func (m *Mutex[T]) Owner() TaskID {
	return m.owner
}

// Waiting reports how many tasks are queued for the lock.
func (m *Mutex[T]) Waiting() int {
	return len(m.queue)
}

// Counts returns how many times the lock was acquired and released.
func (m *Mutex[T]) Counts() (locks, unlocks uint64) {
	return m.locks, m.unlocks
}

// Lock suspends t until it holds the mutex. If t is cancelled while
// waiting it leaves the queue, releasing the lock if it had already been
// handed over.
func (m *Mutex[T]) Lock(t *Task) *Guard[T] {
	t.checkCurrent()
	m.bind(t)
	if m.owner == 0 && len(m.queue) == 0 {
		m.acquire(t)
		return &Guard[T]{m: m, task: t}
	}
	m.queue = append(m.queue, t.id)
	for m.owner != t.id {
		t.block(func() { m.abandonWait(t) }, MutexKey(m.id))
	}
	return &Guard[T]{m: m, task: t}
}

// TryLock acquires the mutex if it is free and nobody is queued.
func (m *Mutex[T]) TryLock(t *Task) (*Guard[T], bool) {
	t.checkCurrent()
	m.bind(t)
	if m.owner != 0 || len(m.queue) > 0 {
		return nil, false
	}
	m.acquire(t)
	return &Guard[T]{m: m, task: t}, true
}

// With runs fn while holding the lock. The lock is released on every exit
// path, including a panic in fn.
func (m *Mutex[T]) With(t *Task, fn func(v *T) error) error {
	g := m.Lock(t)
	defer g.Unlock()
	return fn(&m.value)
}

func (m *Mutex[T]) acquire(t *Task) {
	m.owner = t.id
	m.locks++
	t.exec.emit(trace.ScopeSync, trace.KindPoint, "mutex.acquire", t.id, fmt.Sprintf("mutex %d", m.id), nil)
}

func (m *Mutex[T]) abandonWait(t *Task) {
	if m.owner == t.id {
		m.release(t)
		return
	}
	for i, id := range m.queue {
		if id == t.id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// release hands the lock to the oldest live waiter, or frees it.
func (m *Mutex[T]) release(t *Task) {
	exec := t.exec
	m.unlocks++
	exec.emit(trace.ScopeSync, trace.KindPoint, "mutex.release", t.id, fmt.Sprintf("mutex %d", m.id), nil)
	for len(m.queue) > 0 {
		next := exec.tasks[m.queue[0]]
		m.queue = m.queue[1:]
		if next == nil || next.status == TaskDone || next.cancelled {
			continue
		}
		m.acquire(next)
		exec.Wake(next.id)
		return
	}
	m.owner = 0
	exec.WakeKeyAll(MutexKey(m.id))
}

// Get returns a copy of the guarded value.
func (g *Guard[T]) Get() T {
	g.check()
	return g.m.value
}

// Set replaces the guarded value.
func (g *Guard[T]) Set(v T) {
	g.check()
	g.m.value = v
}

// Ptr exposes the guarded value for in-place updates while the guard is held.
func (g *Guard[T]) Ptr() *T {
	g.check()
	return &g.m.value
}

// Unlock releases the mutex. Calling it again is a no-op.
func (g *Guard[T]) Unlock() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.m.release(g.task)
}

func (g *Guard[T]) check() {
	if g == nil || g.released {
		panic("asyncrt: mutex guard used after unlock")
	}
}

type lockOp[T any] struct {
	m *Mutex[T]
}

// LockOp is a Select operation that acquires the mutex when it is free.
// Its value is the *Guard[T]. Select contenders do not join the FIFO queue.
func (m *Mutex[T]) LockOp() Op {
	return lockOp[T]{m: m}
}

func (o lockOp[T]) poll(t *Task) (bool, any, error) {
	g, ok := o.m.TryLock(t)
	if !ok {
		return false, nil, nil
	}
	return true, g, nil
}

func (o lockOp[T]) keys() []WakerKey {
	return []WakerKey{MutexKey(o.m.id)}
}

func (lockOp[T]) abandon(*Task) {}
