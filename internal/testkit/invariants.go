// Package testkit holds consistency checks shared by runtime and lesson tests.
package testkit

import (
	"cmp"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"strand/internal/asyncrt"
)

// CheckExecutorInvariants runs the scheduler bookkeeping invariants on a
// snapshot:
// 1) the ready queue holds no duplicates and no parked task
// 2) waiter queues and parked keys mirror each other exactly
// 3) every parked task is live and waiting
// 4) pending timers are ordered by deadline, then id
// 5) spawned tasks equal finished plus live tasks
func CheckExecutorInvariants(snap asyncrt.Snapshot) error {
	live := make(map[asyncrt.TaskID]asyncrt.TaskState, len(snap.Tasks))
	for _, st := range snap.Tasks {
		if _, dup := live[st.ID]; dup {
			return fmt.Errorf("task %d listed twice", st.ID)
		}
		if st.Status == asyncrt.TaskDone {
			return fmt.Errorf("task %d is done but still live", st.ID)
		}
		live[st.ID] = st
	}

	// 1) ready queue
	seen := make(map[asyncrt.TaskID]struct{}, len(snap.Ready))
	for _, id := range snap.Ready {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("task %d queued twice", id)
		}
		seen[id] = struct{}{}
		if _, parked := snap.Parked[id]; parked {
			return fmt.Errorf("task %d is both ready and parked", id)
		}
	}

	// 2) waiters <-> parked
	for key, ids := range snap.Waiters {
		if len(ids) == 0 {
			return fmt.Errorf("empty waiter queue retained for %v", key)
		}
		for _, id := range ids {
			if !slices.Contains(snap.Parked[id], key) {
				return fmt.Errorf("task %d waits on %v but is not parked on it", id, key)
			}
		}
	}
	for id, keys := range snap.Parked {
		for _, key := range keys {
			if !slices.Contains(snap.Waiters[key], id) {
				return fmt.Errorf("task %d parked on %v but missing from its queue", id, key)
			}
		}
		// 3) parked tasks are live and waiting
		st, ok := live[id]
		if !ok {
			return fmt.Errorf("parked task %d is not live", id)
		}
		if st.Status != asyncrt.TaskWaiting {
			return fmt.Errorf("parked task %d has status %s", id, st.Status)
		}
	}

	if snap.Current != 0 {
		st, ok := live[snap.Current]
		if !ok {
			return fmt.Errorf("current task %d is not live", snap.Current)
		}
		if st.Status != asyncrt.TaskRunning {
			return fmt.Errorf("current task %d has status %s", snap.Current, st.Status)
		}
	}

	// 4) timer order
	ordered := slices.IsSortedFunc(snap.Timers, func(a, b asyncrt.TimerInfo) int {
		if c := cmp.Compare(a.Deadline, b.Deadline); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if !ordered {
		return fmt.Errorf("pending timers out of order: %v", snap.Timers)
	}

	// 5) task accounting
	liveCount, err := safecast.Conv[uint64](len(snap.Tasks))
	if err != nil {
		return fmt.Errorf("live task count overflow: %w", err)
	}
	if snap.Stats.Spawned != snap.Stats.Finished()+liveCount {
		return fmt.Errorf("spawned %d != finished %d + live %d",
			snap.Stats.Spawned, snap.Stats.Finished(), liveCount)
	}
	return nil
}

// CheckQuiescent verifies a drained executor: nothing ready, parked,
// pending or live.
func CheckQuiescent(snap asyncrt.Snapshot) error {
	if err := CheckExecutorInvariants(snap); err != nil {
		return err
	}
	switch {
	case len(snap.Tasks) != 0:
		return fmt.Errorf("%d tasks still live", len(snap.Tasks))
	case len(snap.Parked) != 0:
		return fmt.Errorf("%d tasks still parked", len(snap.Parked))
	case len(snap.Timers) != 0:
		return fmt.Errorf("%d timers still pending", len(snap.Timers))
	case snap.Pending != 0:
		return fmt.Errorf("%d blocking jobs still pending", snap.Pending)
	}
	return nil
}
