package asyncrt

import (
	"maps"
	"slices"
)

// Stats counts executor activity since construction.
type Stats struct {
	Spawned     uint64
	Completed   uint64
	Failed      uint64
	Cancelled   uint64
	Polls       uint64
	TimersFired uint64
}

// Finished is the number of tasks that reached a terminal state.
func (s Stats) Finished() uint64 {
	return s.Completed + s.Failed + s.Cancelled
}

// Stats returns a copy of the activity counters.
func (e *Executor) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return e.stats
}

// TaskState is a read-only view of a live task.
type TaskState struct {
	ID        TaskID
	Name      string
	Kind      TaskKind
	Status    TaskStatus
	Cancelled bool
	Scope     ScopeID
}

// Snapshot is a consistent copy of the scheduler's bookkeeping, taken
// between task steps.
type Snapshot struct {
	Now     Instant
	Current TaskID
	Ready   []TaskID
	Tasks   []TaskState
	Waiters map[WakerKey][]TaskID
	Parked  map[TaskID][]WakerKey
	Timers  []TimerInfo
	Pending int
	Stats   Stats
}

// Snapshot copies the executor state for inspection.
func (e *Executor) Snapshot() Snapshot {
	if e == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		Now:     e.Now(),
		Current: e.Current(),
		Ready:   slices.Clone(e.ready),
		Waiters: make(map[WakerKey][]TaskID, len(e.waiters)),
		Parked:  make(map[TaskID][]WakerKey, len(e.parked)),
		Timers:  e.PendingTimers(),
		Pending: e.PendingBlocking(),
		Stats:   e.stats,
	}
	for key, ids := range e.waiters {
		snap.Waiters[key] = slices.Clone(ids)
	}
	for id, keys := range e.parked {
		snap.Parked[id] = slices.Clone(keys)
	}
	for _, id := range slices.Sorted(maps.Keys(e.tasks)) {
		task := e.tasks[id]
		snap.Tasks = append(snap.Tasks, TaskState{
			ID:        id,
			Name:      task.name,
			Kind:      task.kind,
			Status:    task.status,
			Cancelled: task.cancelled,
			Scope:     task.parent.ID(),
		})
	}
	return snap
}
