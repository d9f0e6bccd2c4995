package asyncrt

import (
	"errors"
	"time"
)

// Timeout runs fn as a child of t and waits at most d for it. When the
// deadline wins, the child is cancelled and a *TimeoutError is returned.
// Otherwise the body's own result is returned and its timer is discarded.
func Timeout[T any](t *Task, d time.Duration, fn func(*Task) (T, error)) (T, error) {
	value, err := TimeoutOp(t, d, Call(fn))
	v, _ := value.(T)
	return v, unwrapFailure(err)
}

// TimeoutOp waits at most d for op. The operation is polled before the
// timer, so an operation that completes without suspending wins even with
// d <= 0. A Call body gets to run up to its first suspension first.
func TimeoutOp(t *Task, d time.Duration, op Op) (any, error) {
	res, err := Select(t, Selection{
		Biased:   true,
		Branches: []Branch{Case(op), Case(After(d))},
	})
	if err != nil {
		return nil, err
	}
	if res.Index == 1 {
		return nil, &TimeoutError{After: d}
	}
	return res.Value, res.Err
}

// Race runs every fn concurrently and returns the result of the first to
// finish, successfully or not. The losers are cancelled. Ties go to the
// earlier argument.
func Race[T any](t *Task, fns ...func(*Task) (T, error)) (T, error) {
	var zero T
	if len(fns) == 0 {
		return zero, &ConfigurationError{Reason: "race needs at least one body"}
	}
	branches := make([]Branch, len(fns))
	for i, fn := range fns {
		branches[i] = Case(Call(fn))
	}
	res, err := Select(t, Selection{Biased: true, Branches: branches})
	if err != nil {
		return zero, err
	}
	v, _ := res.Value.(T)
	return v, unwrapFailure(res.Err)
}

// unwrapFailure strips the TaskFailure added around an error a child body
// returned, so inline combinators report the body's own error. Panics keep
// their TaskFailure.
func unwrapFailure(err error) error {
	var failure *TaskFailure
	if errors.As(err, &failure) && failure.Cause != nil && failure.Panic == nil {
		return failure.Cause
	}
	return err
}
