package asyncrt

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestJoinSetYieldsCompletionOrder(t *testing.T) {
	exec := NewExecutor(Config{})
	got := blockOn(t, exec, func(task *Task) ([]int, error) {
		set := NewJoinSet[int](task)
		for _, d := range []int{30, 10, 20} {
			set.Spawn(func(task *Task) (int, error) {
				task.Sleep(time.Duration(d) * time.Millisecond)
				return d, nil
			})
		}
		if set.Len() != 3 {
			t.Errorf("Len: want 3, got %d", set.Len())
		}
		var out []int
		for {
			r, ok := set.JoinNext(task)
			if !ok {
				return out, nil
			}
			if r.Err != nil {
				return nil, r.Err
			}
			out = append(out, r.Value)
		}
	})
	if want := []int{10, 20, 30}; !slices.Equal(got, want) {
		t.Fatalf("completion order: want %v, got %v", want, got)
	}
}

func TestJoinSetBlockingJobs(t *testing.T) {
	exec := NewExecutor(Config{BlockingWorkers: 2})
	sum := blockOn(t, exec, func(task *Task) (int, error) {
		set := NewJoinSet[int](task)
		for i := 1; i <= 6; i++ {
			set.SpawnBlocking(func() (int, error) { return i * i, nil })
		}
		total := 0
		for !set.IsEmpty() {
			r, _ := set.JoinNext(task)
			if r.Err != nil {
				return 0, r.Err
			}
			total += r.Value
		}
		return total, nil
	})
	if sum != 91 {
		t.Fatalf("sum of squares: want 91, got %d", sum)
	}
	if exec.Now() != 0 {
		t.Fatalf("blocking jobs advanced virtual time to %s", exec.Now())
	}
}

func TestJoinSetShutdownCancelsTasks(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		set := NewJoinSet[int](task)
		for range 3 {
			set.Spawn(func(task *Task) (int, error) {
				task.Sleep(time.Hour)
				return 0, nil
			})
		}
		task.Yield()
		set.Shutdown()
		task.Yield()
		if set.Len() != 0 {
			t.Errorf("Len after shutdown: %d", set.Len())
		}
		if _, ok := set.JoinNext(task); ok {
			t.Errorf("JoinNext after shutdown returned a result")
		}
		return 0, nil
	})
	if n := len(exec.PendingTimers()); n != 0 {
		t.Fatalf("timers left: %d", n)
	}
}

func TestSpawnBlockingResultsAndPanics(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		v, err := SpawnBlocking(task, func() (int, error) { return 42, nil }).Await(task)
		if err != nil || v != 42 {
			t.Errorf("blocking result: %d %v", v, err)
		}
		_, err = SpawnBlocking(task, func() (int, error) { panic("blocking boom") }).Await(task)
		var failure *TaskFailure
		if !errors.As(err, &failure) || failure.Panic != "blocking boom" {
			t.Errorf("want panic failure, got %v", err)
		}
		return 0, nil
	})
}
