package asyncrt

import (
	"cmp"
	"container/heap"
	"slices"

	"strand/internal/trace"
)

// TimerID identifies a scheduled timer.
type TimerID uint64

// Timer represents a single scheduled wakeup.
type Timer struct {
	id       TimerID
	deadline Instant
	taskID   TaskID
	index    int
}

// TimerInfo is a read-only view of a pending timer.
type TimerInfo struct {
	ID       TimerID
	Deadline Instant
	Task     TaskID
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline == h[j].deadline {
		return h[i].id < h[j].id
	}
	return h[i].deadline < h[j].deadline
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	timer, ok := x.(*Timer)
	if !ok || timer == nil {
		return
	}
	timer.index = len(*h)
	*h = append(*h, timer)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*Timer)(nil)
	}
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// TimerSchedule registers a timer that wakes whoever parks on its key at
// deadline. Timers with equal deadlines fire in registration order.
func (e *Executor) TimerSchedule(taskID TaskID, deadline Instant) TimerID {
	if e == nil {
		return 0
	}
	id := e.nextTimerID
	e.nextTimerID++
	timer := &Timer{
		id:       id,
		deadline: deadline,
		taskID:   taskID,
	}
	if e.timerByID == nil {
		e.timerByID = make(map[TimerID]*Timer)
	}
	e.timerByID[id] = timer
	heap.Push(&e.timers, timer)
	return id
}

// TimerCancel removes a pending timer. Cancelling a fired or unknown timer
// is a no-op.
func (e *Executor) TimerCancel(id TimerID) {
	if e == nil || id == 0 {
		return
	}
	timer := e.timerByID[id]
	if timer == nil {
		return
	}
	delete(e.timerByID, id)
	if timer.index >= 0 && timer.index < len(e.timers) && e.timers[timer.index] == timer {
		heap.Remove(&e.timers, timer.index)
	}
}

// TimerActive reports whether a timer is still pending.
func (e *Executor) TimerActive(id TimerID) bool {
	if e == nil || id == 0 {
		return false
	}
	_, ok := e.timerByID[id]
	return ok
}

// PendingTimers lists pending timers in firing order.
func (e *Executor) PendingTimers() []TimerInfo {
	if e == nil || len(e.timers) == 0 {
		return nil
	}
	out := make([]TimerInfo, 0, len(e.timers))
	for _, t := range e.timers {
		out = append(out, TimerInfo{ID: t.id, Deadline: t.deadline, Task: t.taskID})
	}
	slices.SortFunc(out, func(a, b TimerInfo) int {
		if c := cmp.Compare(a.Deadline, b.Deadline); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// NextDeadline returns the earliest pending deadline.
func (e *Executor) NextDeadline() (Instant, bool) {
	if e == nil || len(e.timers) == 0 {
		return 0, false
	}
	return e.timers[0].deadline, true
}

// FireDueTimers wakes the waiters of every timer whose deadline has passed,
// in deadline order, and returns how many fired.
func (e *Executor) FireDueTimers() int {
	if e == nil {
		return 0
	}
	now := e.Now()
	fired := 0
	for len(e.timers) > 0 {
		timer := e.timers[0]
		if timer.deadline > now {
			break
		}
		heap.Pop(&e.timers)
		delete(e.timerByID, timer.id)
		fired++
		e.stats.TimersFired++
		e.emit(trace.ScopeSync, trace.KindPoint, "timer.fire", timer.taskID, "", nil)
		e.WakeKeyAll(TimerKey(timer.id))
	}
	return fired
}
