package asyncrt

import (
	"context"
	"fmt"
	"slices"

	"strand/internal/trace"
)

// runTask gives control to one task until it suspends or finishes.
func (e *Executor) runTask(task *Task) {
	e.unpark(task)
	e.current = task
	task.status = TaskRunning
	e.stats.Polls++
	if !task.started {
		task.started = true
		go task.main()
	} else {
		task.resume <- struct{}{}
	}
	<-e.yield
	e.current = nil
}

func (e *Executor) enterDrive() {
	if e.driving {
		panic("asyncrt: executor driven re-entrantly")
	}
	e.driving = true
}

// RunUntilIdle collects finished blocking jobs, fires due timers and runs
// ready tasks until none is left. It never waits for time to pass and
// returns the number of task steps taken.
func (e *Executor) RunUntilIdle() int {
	if e == nil {
		return 0
	}
	e.enterDrive()
	defer func() { e.driving = false }()
	return e.runReady()
}

func (e *Executor) runReady() int {
	steps := 0
	for {
		e.drainInbox()
		e.FireDueTimers()
		id, ok := e.NextReady()
		if !ok {
			return steps
		}
		e.runTask(e.tasks[id])
		steps++
	}
}

// Run drives the executor until every task has finished. When nothing is
// ready it waits for blocking jobs, then advances to the next timer. If
// tasks remain that nothing can wake, Run returns a *StallError.
func (e *Executor) Run(ctx context.Context) error {
	return e.runUntil(ctx, func() bool { return len(e.tasks) == 0 })
}

func (e *Executor) runUntil(ctx context.Context, done func() bool) error {
	if e == nil {
		return nil
	}
	e.enterDrive()
	defer func() { e.driving = false }()
	span := trace.Begin(e.tracer, trace.ScopeExecutor, "executor.run", 0)
	defer span.End(fmt.Sprintf("clock=%s", e.Now()))
	for {
		e.runReady()
		if done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.waitForWork(ctx); err != nil {
			return err
		}
	}
}

// waitForWork blocks until something can make progress. Blocking jobs are
// collected before virtual time moves, so they take no virtual time.
func (e *Executor) waitForWork(ctx context.Context) error {
	deadline, hasTimer := e.NextDeadline()
	switch {
	case e.pool.pending > 0 && (!hasTimer || isVirtual(e.clock)):
		select {
		case <-e.inbox.notify:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case hasTimer:
		return e.clock.WaitUntil(ctx, deadline, e.inbox.notify)
	default:
		err := e.stallError()
		e.emit(trace.ScopeExecutor, trace.KindPoint, "executor.stall", 0, err.Error(), nil)
		return err
	}
}

func (e *Executor) stallError() *StallError {
	ids := make([]TaskID, 0, len(e.tasks))
	for id := range e.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	err := &StallError{Clock: e.Now().Duration()}
	for _, id := range ids {
		task := e.tasks[id]
		keys := append([]WakerKey(nil), e.parked[id]...)
		err.Tasks = append(err.Tasks, StalledTask{ID: id, Name: task.name, Keys: keys})
	}
	return err
}

// BlockOn runs fn as the main task, drives the executor until it finishes,
// then shuts the executor down, cancelling whatever is still live. It
// returns fn's result, or the error that stopped the executor first.
func BlockOn[T any](ctx context.Context, e *Executor, fn func(*Task) (T, error)) (T, error) {
	h := SpawnNamed(e, "main", fn)
	err := e.runUntil(ctx, h.Done)
	e.Shutdown()
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Result()
}

// Shutdown cancels every live task, lets them unwind, and stops the
// blocking pool. Spawns after Shutdown are cancelled immediately. It must
// not be called from inside a task.
func (e *Executor) Shutdown() {
	if e == nil || e.closed {
		return
	}
	if e.current != nil {
		panic("asyncrt: Shutdown called from inside a task")
	}
	e.closed = true
	e.root.Close()
	e.RunUntilIdle()
	e.pool.close()
	e.drainInbox()
	e.emit(trace.ScopeExecutor, trace.KindPoint, "executor.shutdown", 0, fmt.Sprintf("spawned=%d", e.stats.Spawned), nil)
}

// Closed reports whether Shutdown has run.
func (e *Executor) Closed() bool {
	return e == nil || e.closed
}
