package asyncrt

import (
	"context"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"strand/internal/trace"
)

// completion is the outcome of a blocking job, delivered from a worker
// goroutine to the executor loop.
type completion struct {
	task      *Task
	value     any
	err       error
	panic     any
	stack     []byte
	cancelled bool
}

// inbox is the only executor state touched from other goroutines.
type inbox struct {
	mu     sync.Mutex
	items  []completion
	notify chan struct{}
}

func (in *inbox) push(c completion) {
	in.mu.Lock()
	in.items = append(in.items, c)
	in.mu.Unlock()
	select {
	case in.notify <- struct{}{}:
	default:
	}
}

func (in *inbox) take() []completion {
	in.mu.Lock()
	defer in.mu.Unlock()
	items := in.items
	in.items = nil
	return items
}

// blockingPool runs blocking jobs on goroutines, at most workers at a time.
type blockingPool struct {
	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	inbox   *inbox
	workers int
	pending int
}

func newBlockingPool(workers int, in *inbox) *blockingPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &blockingPool{
		sem:     semaphore.NewWeighted(int64(workers)),
		ctx:     ctx,
		cancel:  cancel,
		inbox:   in,
		workers: workers,
	}
}

func (p *blockingPool) submit(task *Task, fn func() (any, error)) {
	p.pending++
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.inbox.push(completion{task: task, cancelled: true})
			return
		}
		defer p.sem.Release(1)
		p.inbox.push(runBlocking(task, fn))
	}()
}

func runBlocking(task *Task, fn func() (any, error)) (c completion) {
	c.task = task
	defer func() {
		if r := recover(); r != nil {
			c.value = nil
			c.panic = r
			c.stack = debug.Stack()
		}
	}()
	c.value, c.err = fn()
	return c
}

// close stops queued jobs from starting and waits for running ones.
func (p *blockingPool) close() {
	p.cancel()
	p.wg.Wait()
}

// SpawnBlocking runs fn on a worker goroutine outside the executor so it
// never stalls other tasks. The handle is awaited like any other task.
// Cancelling the handle abandons the result; a job already running is not
// interrupted.
func SpawnBlocking[T any](sp Spawner, fn func() (T, error)) *Handle[T] {
	scope := sp.spawnScope()
	task := scope.exec.spawnBlocking(scope, "", func() (any, error) {
		return fn()
	})
	return &Handle[T]{task: task}
}

func (e *Executor) spawnBlocking(scope *Scope, name string, fn func() (any, error)) *Task {
	task := e.register(scope, name, TaskKindBlocking)
	if e.closed || task.parent.closed {
		e.finish(task, TaskResultCancelled, nil, ErrCancelled)
		return task
	}
	task.started = true
	task.status = TaskWaiting
	e.emitTask(trace.KindPoint, "blocking.submit", task, "")
	e.pool.submit(task, fn)
	return task
}

// drainInbox finishes blocking tasks whose jobs completed.
func (e *Executor) drainInbox() int {
	items := e.inbox.take()
	for _, c := range items {
		e.pool.pending--
		task := c.task
		if task.status == TaskDone {
			continue
		}
		switch {
		case c.panic != nil:
			e.finish(task, TaskResultFailed, nil, &TaskFailure{Task: task.id, Name: task.name, Panic: c.panic, Stack: c.stack})
		case c.cancelled:
			e.finish(task, TaskResultCancelled, nil, ErrCancelled)
		case c.err != nil:
			e.finish(task, TaskResultFailed, nil, &TaskFailure{Task: task.id, Name: task.name, Cause: c.err})
		default:
			e.finish(task, TaskResultSuccess, c.value, nil)
		}
	}
	return len(items)
}

// PendingBlocking reports blocking jobs whose completion has not been
// collected yet.
func (e *Executor) PendingBlocking() int {
	if e == nil || e.pool == nil {
		return 0
	}
	return e.pool.pending
}
