package asyncrt

import (
	"math/rand"
	"runtime"

	"fortio.org/safecast"

	"strand/internal/trace"
)

// Executor runs async tasks one at a time with a deterministic FIFO
// scheduler by default. Fuzz scheduling is supported for reproducible
// interleavings.
//
// An Executor is not safe for concurrent use: every call happens either on
// the goroutine driving it (Run, RunUntilIdle, BlockOn) or inside one of its
// tasks, and exactly one of those runs at any moment.
type Executor struct {
	cfg         Config
	clock       Clock
	tracer      trace.Tracer
	rng         *rand.Rand
	nextID      TaskID
	nextScopeID ScopeID
	nextTimerID TimerID
	nextResID   uint64
	ready       []TaskID
	readySet    map[TaskID]struct{}
	tasks       map[TaskID]*Task
	waiters     map[WakerKey][]TaskID
	parked      map[TaskID][]WakerKey
	current     *Task
	timers      timerHeap
	timerByID   map[TimerID]*Timer
	root        *Scope
	pool        *blockingPool
	inbox       inbox
	yield       chan struct{}
	driving     bool
	closed      bool
	stats       Stats
}

// TaskID identifies a spawned task.
type TaskID uint64

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskRunning
	TaskWaiting
	TaskDone
)

func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskWaiting:
		return "waiting"
	case TaskDone:
		return "done"
	default:
		return "unknown"
	}
}

// TaskKind identifies how a task body executes.
type TaskKind uint8

const (
	TaskKindUser TaskKind = iota
	TaskKindBlocking
)

// TaskResultKind describes how a task completed.
type TaskResultKind uint8

const (
	TaskResultSuccess TaskResultKind = iota
	TaskResultFailed
	TaskResultCancelled
)

func (k TaskResultKind) String() string {
	switch k {
	case TaskResultSuccess:
		return "success"
	case TaskResultFailed:
		return "failed"
	case TaskResultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Config configures executor scheduling behavior.
type Config struct {
	// Fuzz picks the next ready task at random instead of FIFO.
	Fuzz bool
	// Seed feeds the scheduler and select randomness. Zero means 1.
	Seed uint64
	// TimerMode selects the default clock when Clock is nil.
	TimerMode TimerMode
	// Clock overrides the clock chosen by TimerMode.
	Clock Clock
	// BlockingWorkers bounds concurrently running blocking jobs.
	// Zero means GOMAXPROCS.
	BlockingWorkers int
	// Tracer receives runtime events. Nil disables tracing.
	Tracer trace.Tracer
}

// Workers is the resolved size of the blocking worker pool.
func (c Config) Workers() int {
	if c.BlockingWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.BlockingWorkers
}

// NewExecutor constructs an executor with the provided configuration.
func NewExecutor(cfg Config) *Executor {
	exec := &Executor{
		cfg:         cfg,
		tracer:      cfg.Tracer,
		nextID:      1,
		nextScopeID: 1,
		nextTimerID: 1,
		readySet:    make(map[TaskID]struct{}),
		tasks:       make(map[TaskID]*Task),
		yield:       make(chan struct{}),
	}
	if exec.tracer == nil {
		exec.tracer = trace.Nop
	}
	switch {
	case cfg.Clock != nil:
		exec.clock = cfg.Clock
	case cfg.TimerMode == TimerModeReal:
		exec.clock = NewRealClock()
	default:
		exec.clock = &VirtualClock{}
	}
	exec.rng = rand.New(rand.NewSource(seedInt64(cfg.Seed))) //nolint:gosec // deterministic scheduler seed
	exec.pool = newBlockingPool(cfg.Workers(), &exec.inbox)
	exec.inbox.notify = make(chan struct{}, 1)
	exec.root = exec.newScope(nil, nil, false)
	return exec
}

func seedInt64(seed uint64) int64 {
	if seed == 0 {
		seed = 1
	}
	v, err := safecast.Conv[int64](seed)
	if err != nil {
		return int64(seed >> 1)
	}
	return v
}

// Clock returns the clock timers are measured against.
func (e *Executor) Clock() Clock {
	if e == nil {
		return nil
	}
	return e.clock
}

// Now reports the executor's current time.
func (e *Executor) Now() Instant {
	if e == nil || e.clock == nil {
		return 0
	}
	return e.clock.Now()
}

// Tracer returns the executor's event sink.
func (e *Executor) Tracer() trace.Tracer {
	if e == nil {
		return trace.Nop
	}
	return e.tracer
}

// Current returns the ID of the task being run, or zero between tasks.
func (e *Executor) Current() TaskID {
	if e == nil || e.current == nil {
		return 0
	}
	return e.current.id
}

// Task returns a live task by ID. Finished tasks are forgotten.
func (e *Executor) Task(id TaskID) *Task {
	if e == nil {
		return nil
	}
	return e.tasks[id]
}

// Live reports the number of tasks that have not finished.
func (e *Executor) Live() int {
	if e == nil {
		return 0
	}
	return len(e.tasks)
}

// Root returns the scope that owns tasks spawned directly on the executor.
func (e *Executor) Root() *Scope {
	if e == nil {
		return nil
	}
	return e.root
}

func (e *Executor) spawnScope() *Scope {
	return e.Root()
}

// spawn registers a task under scope and enqueues it.
func (e *Executor) spawn(scope *Scope, name string, fn func(*Task) (any, error)) *Task {
	task := e.register(scope, name, TaskKindUser)
	task.fn = fn
	if e.closed || task.parent.closed {
		e.finish(task, TaskResultCancelled, nil, ErrCancelled)
		return task
	}
	e.enqueue(task.id)
	return task
}

func (e *Executor) register(scope *Scope, name string, kind TaskKind) *Task {
	if scope == nil {
		scope = e.root
	}
	id := e.nextID
	e.nextID++
	task := &Task{
		id:     id,
		name:   name,
		kind:   kind,
		status: TaskReady,
		exec:   e,
		parent: scope,
		resume: make(chan struct{}),
	}
	e.tasks[id] = task
	scope.add(task)
	e.stats.Spawned++
	e.emitTask(trace.KindPoint, "task.spawn", task, "")
	return task
}

// NextReady returns the next ready task according to scheduler policy.
func (e *Executor) NextReady() (TaskID, bool) {
	if e == nil || len(e.ready) == 0 {
		return 0, false
	}
	for len(e.ready) > 0 {
		idx := 0
		if e.cfg.Fuzz {
			idx = e.rng.Intn(len(e.ready))
		}
		id := e.ready[idx]
		copy(e.ready[idx:], e.ready[idx+1:])
		e.ready = e.ready[:len(e.ready)-1]
		delete(e.readySet, id)
		task := e.tasks[id]
		if task == nil || task.status == TaskDone {
			continue
		}
		return id, true
	}
	return 0, false
}

// Wake removes a task from every wait queue and enqueues it if it is not done.
func (e *Executor) Wake(id TaskID) {
	if e == nil {
		return
	}
	task := e.tasks[id]
	if task == nil || task.status == TaskDone {
		return
	}
	e.unpark(task)
	e.enqueue(id)
}

// WakeKeyOne wakes the oldest task waiting on a key.
func (e *Executor) WakeKeyOne(key WakerKey) {
	if e == nil || !key.IsValid() {
		return
	}
	waiters := e.waiters[key]
	if len(waiters) == 0 {
		return
	}
	e.Wake(waiters[0])
}

// WakeKeyAll wakes all tasks waiting on a key in the order they parked.
func (e *Executor) WakeKeyAll(key WakerKey) {
	if e == nil || !key.IsValid() {
		return
	}
	waiters := e.waiters[key]
	if len(waiters) == 0 {
		return
	}
	ids := make([]TaskID, len(waiters))
	copy(ids, waiters)
	for _, id := range ids {
		e.Wake(id)
	}
}

// Waiters reports how many tasks are parked on key.
func (e *Executor) Waiters(key WakerKey) int {
	if e == nil {
		return 0
	}
	return len(e.waiters[key])
}

// Cancel requests cancellation of a task. A task that never started
// finishes immediately; a suspended task is woken so it can unwind its
// cleanups at the suspension point. Its Call bodies, joins and scopes are
// cancelled when the task finishes.
func (e *Executor) Cancel(id TaskID) {
	if e == nil {
		return
	}
	if task := e.tasks[id]; task != nil {
		e.cancel(task)
	}
}

func (e *Executor) cancel(task *Task) {
	if task == nil || task.status == TaskDone || task.cancelled {
		return
	}
	task.cancelled = true
	e.emitTask(trace.KindPoint, "task.cancel.request", task, "")
	for _, key := range e.parked[task.id] {
		if key.Kind == WakerTimer {
			e.TimerCancel(TimerID(key.A))
		}
	}
	e.unpark(task)
	switch {
	case task.kind == TaskKindBlocking:
		e.finish(task, TaskResultCancelled, nil, ErrCancelled)
	case !task.started:
		e.finish(task, TaskResultCancelled, nil, ErrCancelled)
	case task != e.current:
		e.enqueue(task.id)
	}
}

// finish records a task's outcome and wakes everything waiting on it.
func (e *Executor) finish(task *Task, kind TaskResultKind, value any, err error) {
	if task == nil || task.status == TaskDone {
		return
	}
	task.status = TaskDone
	task.result = kind
	task.value = value
	task.err = err
	e.unpark(task)
	delete(e.tasks, task.id)
	switch kind {
	case TaskResultSuccess:
		e.stats.Completed++
		e.emitTask(trace.KindPoint, "task.done", task, "")
	case TaskResultFailed:
		e.stats.Failed++
		e.emitTask(trace.KindPoint, "task.fail", task, errString(err))
	case TaskResultCancelled:
		e.stats.Cancelled++
		e.emitTask(trace.KindPoint, "task.cancel", task, "")
	}
	if task.children != nil {
		task.children.Close()
	}
	if task.parent != nil {
		task.parent.taskDone(task)
	}
	e.WakeKeyAll(JoinKey(task.id))
	hooks := task.onDone
	task.onDone = nil
	for _, hook := range hooks {
		hook(task)
	}
	task.fn = nil
}

func (e *Executor) enqueue(id TaskID) {
	if e == nil {
		return
	}
	if e.readySet == nil {
		e.readySet = make(map[TaskID]struct{})
	}
	if _, ok := e.readySet[id]; ok {
		return
	}
	e.ready = append(e.ready, id)
	e.readySet[id] = struct{}{}
	if task := e.tasks[id]; task != nil && task.status != TaskDone {
		task.status = TaskReady
	}
}

// park adds the task to the wait queue of every key.
func (e *Executor) park(task *Task, keys ...WakerKey) {
	if e == nil || task == nil || task.status == TaskDone {
		return
	}
	e.unpark(task)
	if e.waiters == nil {
		e.waiters = make(map[WakerKey][]TaskID)
	}
	if e.parked == nil {
		e.parked = make(map[TaskID][]WakerKey)
	}
	valid := make([]WakerKey, 0, len(keys))
	for _, key := range keys {
		if !key.IsValid() {
			continue
		}
		e.waiters[key] = append(e.waiters[key], task.id)
		valid = append(valid, key)
	}
	if len(valid) > 0 {
		e.parked[task.id] = valid
	}
	task.status = TaskWaiting
}

func (e *Executor) unpark(task *Task) {
	keys, ok := e.parked[task.id]
	if !ok {
		return
	}
	for _, key := range keys {
		e.removeWaiter(key, task.id)
	}
	delete(e.parked, task.id)
}

func (e *Executor) removeWaiter(key WakerKey, id TaskID) {
	if e == nil {
		return
	}
	waiters := e.waiters[key]
	for i, waiter := range waiters {
		if waiter == id {
			copy(waiters[i:], waiters[i+1:])
			waiters = waiters[:len(waiters)-1]
			break
		}
	}
	if len(waiters) == 0 {
		delete(e.waiters, key)
		return
	}
	e.waiters[key] = waiters
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
