package asyncrt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCancelled is the result of a task that was cancelled before it finished.
	ErrCancelled = errors.New("asyncrt: task cancelled")
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("asyncrt: deadline has elapsed")
	// ErrChannelClosed reports a receive on a drained channel with no senders
	// left, or a send on a channel whose receiver is gone.
	ErrChannelClosed = errors.New("asyncrt: channel closed")
	// ErrChannelFull is returned by TrySend when a bounded channel has no free slot.
	ErrChannelFull = errors.New("asyncrt: channel full")
	// ErrChannelEmpty is returned by TryRecv when no value is buffered.
	ErrChannelEmpty = errors.New("asyncrt: channel empty")
	// ErrSenderDropped reports a oneshot sender discarded before sending.
	ErrSenderDropped = errors.New("asyncrt: oneshot sender dropped without sending")
	// ErrAlreadySent reports a second send on a oneshot channel.
	ErrAlreadySent = errors.New("asyncrt: oneshot value already sent")
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("asyncrt: invalid configuration")
	// ErrPending is returned when reading the result of an unfinished task.
	ErrPending = errors.New("asyncrt: task has not finished")
	// ErrSelfAwait is returned when a task awaits its own handle.
	ErrSelfAwait = errors.New("asyncrt: task cannot await itself")
)

// TaskFailure is the captured failure of a task body: either the error it
// returned or the value it panicked with.
type TaskFailure struct {
	Task  TaskID
	Name  string
	Cause error
	Panic any
	Stack []byte
}

func (f *TaskFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "task %d", f.Task)
	if f.Name != "" {
		fmt.Fprintf(&b, " (%s)", f.Name)
	}
	switch msg := f.Panic.(type) {
	case nil:
		fmt.Fprintf(&b, " failed: %v", f.Cause)
	case string:
		fmt.Fprintf(&b, " panicked with message %q", msg)
	default:
		fmt.Fprintf(&b, " panicked: %v", msg)
	}
	return b.String()
}

// Unwrap exposes the returned error, or the panic value when it is an error.
func (f *TaskFailure) Unwrap() error {
	if f.Cause != nil {
		return f.Cause
	}
	if err, ok := f.Panic.(error); ok {
		return err
	}
	return nil
}

// Panicked reports whether the failure came from a panic.
func (f *TaskFailure) Panicked() bool {
	return f.Panic != nil
}

// TimeoutError reports that a race against a timer was lost.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deadline has elapsed after %s", e.After)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ConfigurationError reports a combinator used in a way that can never
// make progress.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "asyncrt: " + e.Reason
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// StallError is returned by Run and BlockOn when live tasks remain but
// nothing (ready task, timer, blocking job) can ever wake them.
type StallError struct {
	Clock time.Duration
	Tasks []StalledTask
}

// StalledTask describes one task left waiting by a stall.
type StalledTask struct {
	ID   TaskID
	Name string
	Keys []WakerKey
}

func (e *StallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "asyncrt: %d task(s) stalled at %s:", len(e.Tasks), e.Clock)
	for _, t := range e.Tasks {
		fmt.Fprintf(&b, " %d", t.ID)
		if t.Name != "" {
			fmt.Fprintf(&b, "(%s)", t.Name)
		}
		if len(t.Keys) > 0 {
			b.WriteString(" waiting on")
			for _, k := range t.Keys {
				b.WriteString(" ")
				b.WriteString(k.String())
			}
		}
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}
