package asyncrt

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScopeCloseCancelsChildren(t *testing.T) {
	exec := NewExecutor(Config{})
	cleaned := 0
	blockOn(t, exec, func(task *Task) (int, error) {
		scope := NewScope(task, false)
		var handles []*Handle[int]
		for range 2 {
			handles = append(handles, Spawn(scope, func(task *Task) (int, error) {
				defer func() { cleaned++ }()
				task.Sleep(time.Hour)
				return 1, nil
			}))
		}
		task.Sleep(time.Millisecond)
		scope.Close()
		if err := scope.Wait(task); err != nil {
			t.Errorf("cancellation is not a failure: %v", err)
		}
		for _, h := range handles {
			if h.Outcome() != TaskResultCancelled {
				t.Errorf("task %d: want cancelled, got %v", h.ID(), h.Outcome())
			}
		}
		late := Spawn(scope, func(*Task) (int, error) { return 0, nil })
		if late.Outcome() != TaskResultCancelled {
			t.Errorf("spawn into closed scope ran")
		}
		return 0, nil
	})
	if cleaned != 2 {
		t.Fatalf("deferred cleanups ran %d times", cleaned)
	}
}

func TestFailfastScopeCancelsSiblings(t *testing.T) {
	exec := NewExecutor(Config{})
	boom := errors.New("boom")
	blockOn(t, exec, func(task *Task) (int, error) {
		scope := NewScope(task, true)
		Spawn(scope, func(task *Task) (int, error) {
			task.Sleep(5 * time.Millisecond)
			return 0, boom
		})
		sibling := Spawn(scope, func(task *Task) (int, error) {
			task.Sleep(time.Second)
			return 1, nil
		})
		err := scope.Wait(task)
		if !errors.Is(err, boom) {
			t.Errorf("want joined failure, got %v", err)
		}
		if !scope.FailfastTriggered() || sibling.Outcome() != TaskResultCancelled {
			t.Errorf("sibling not cancelled")
		}
		return 0, nil
	})
	if got := exec.Now().Duration(); got != 5*time.Millisecond {
		t.Fatalf("failfast waited for sibling: clock %s", got)
	}
}

func TestSpawnedTaskOutlivesSpawner(t *testing.T) {
	exec := NewExecutor(Config{})
	finished := false
	Spawn(exec, func(task *Task) (int, error) {
		Spawn(task, func(task *Task) (int, error) {
			task.Sleep(10 * time.Millisecond)
			finished = true
			return 0, nil
		})
		return 0, nil
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := exec.Stats()
	if !finished || stats.Cancelled != 0 || stats.Completed != 2 {
		t.Fatalf("dropped handle stopped its task: finished=%v stats=%+v", finished, stats)
	}
}

func TestTaskScopeClosedWhenOwnerFinishes(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		var child *Handle[int]
		parent := Spawn(task, func(task *Task) (int, error) {
			child = Spawn(NewScope(task, false), func(task *Task) (int, error) {
				task.Sleep(time.Hour)
				return 0, nil
			})
			return 0, nil
		})
		if _, err := parent.Await(task); err != nil {
			return 0, err
		}
		if child.Outcome() != TaskResultCancelled {
			t.Errorf("scoped child outlived its owner: %v", child.Status())
		}
		return 0, nil
	})
}

func TestJoinAllKeepsArgumentOrder(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		results := JoinAll(task,
			func(task *Task) (string, error) { task.Sleep(20 * time.Millisecond); return "first", nil },
			func(task *Task) (string, error) { task.Sleep(10 * time.Millisecond); return "second", nil },
		)
		if results[0].Value != "first" || results[1].Value != "second" {
			t.Errorf("unexpected results %+v", results)
		}
		if task.Now() != Instant(20*time.Millisecond) {
			t.Errorf("join should run bodies concurrently, clock %s", task.Now())
		}
		a, b := Join2(task,
			func(*Task) (int, error) { return 1, nil },
			func(*Task) (string, error) { return "two", nil },
		)
		if a.Value != 1 || b.Value != "two" {
			t.Errorf("Join2: %+v %+v", a, b)
		}
		return 0, nil
	})
}

func TestAwaitAllCollectsEveryOutcome(t *testing.T) {
	exec := NewExecutor(Config{})
	boom := errors.New("boom")
	results := blockOn(t, exec, func(task *Task) ([]Result[int], error) {
		var handles []*Handle[int]
		for i := range 6 {
			handles = append(handles, Spawn(task, func(task *Task) (int, error) {
				task.Sleep(time.Duration(6-i) * time.Millisecond)
				if i%3 == 0 {
					return 0, boom
				}
				return i, nil
			}))
		}
		return AwaitAll(task, handles...), nil
	})
	failures := 0
	for i, r := range results {
		if i%3 == 0 {
			if !errors.Is(r.Err, boom) {
				t.Fatalf("slot %d: want failure, got %+v", i, r)
			}
			failures++
			continue
		}
		if r.Err != nil || r.Value != i {
			t.Fatalf("slot %d: want %d, got %+v", i, i, r)
		}
	}
	if failures != 2 {
		t.Fatalf("want 2 failures, got %d", failures)
	}
}
