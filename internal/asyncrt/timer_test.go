package asyncrt

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSleepWakesInDeadlineOrder(t *testing.T) {
	exec := NewExecutor(Config{})
	delays := []time.Duration{30, 10, 20, 10}
	var order []int
	for i, d := range delays {
		Spawn(exec, func(task *Task) (int, error) {
			task.Sleep(d * time.Millisecond)
			order = append(order, i)
			return 0, nil
		})
	}
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []int{1, 3, 2, 0}; !slices.Equal(order, want) {
		t.Fatalf("wake order: want %v, got %v", want, order)
	}
	if got := exec.Now().Duration(); got != 30*time.Millisecond {
		t.Fatalf("virtual clock: want 30ms, got %s", got)
	}
}

func TestSleepNonPositiveReturnsImmediately(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		task.Sleep(0)
		task.Sleep(-time.Second)
		return 0, nil
	})
	if exec.Stats().Polls != 1 {
		t.Fatalf("expected a single poll, got %d", exec.Stats().Polls)
	}
}

func TestTimerCancelRemovesHeapEntry(t *testing.T) {
	exec := NewExecutor(Config{})
	a := exec.TimerSchedule(0, Instant(10*time.Millisecond))
	b := exec.TimerSchedule(0, Instant(5*time.Millisecond))
	c := exec.TimerSchedule(0, Instant(20*time.Millisecond))
	exec.TimerCancel(a)
	exec.TimerCancel(a)
	timers := exec.PendingTimers()
	if len(timers) != 2 || timers[0].ID != b || timers[1].ID != c {
		t.Fatalf("unexpected pending timers %+v", timers)
	}
	if exec.TimerActive(a) {
		t.Fatalf("cancelled timer still active")
	}
}

func TestTimeoutLeavesNoTimers(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		v, err := Timeout(task, time.Second, func(task *Task) (int, error) {
			task.Sleep(10 * time.Millisecond)
			return 5, nil
		})
		if err != nil || v != 5 {
			t.Errorf("fast body: got %d, %v", v, err)
		}
		if n := len(exec.PendingTimers()); n != 0 {
			t.Errorf("timers left after success: %d", n)
		}

		_, err = Timeout(task, 10*time.Millisecond, func(task *Task) (int, error) {
			task.Sleep(time.Second)
			return 1, nil
		})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("want ErrTimeout, got %v", err)
		}
		var te *TimeoutError
		if !errors.As(err, &te) || te.After != 10*time.Millisecond {
			t.Errorf("unexpected timeout error %v", err)
		}
		if n := len(exec.PendingTimers()); n != 0 {
			t.Errorf("timers left after timeout: %d", n)
		}
		return 0, nil
	})
	if got := exec.Now().Duration(); got != 20*time.Millisecond {
		t.Fatalf("virtual clock: want 20ms, got %s", got)
	}
}

func TestTimeoutReturnsBodyError(t *testing.T) {
	exec := NewExecutor(Config{})
	sentinel := errors.New("sentinel")
	err := blockOn(t, exec, func(task *Task) (error, error) {
		_, err := Timeout(task, time.Second, func(*Task) (int, error) { return 0, sentinel })
		return err, nil
	})
	if err != sentinel {
		t.Fatalf("want body error, got %v", err)
	}
}

func TestRaceCancelsLosers(t *testing.T) {
	exec := NewExecutor(Config{})
	var slowFinished bool
	v := blockOn(t, exec, func(task *Task) (string, error) {
		v, err := Race(task,
			func(task *Task) (string, error) {
				task.Sleep(20 * time.Millisecond)
				slowFinished = true
				return "slow", nil
			},
			func(task *Task) (string, error) {
				task.Sleep(10 * time.Millisecond)
				return "fast", nil
			},
		)
		task.Sleep(50 * time.Millisecond)
		return v, err
	})
	if v != "fast" {
		t.Fatalf("want fast, got %q", v)
	}
	if slowFinished {
		t.Fatalf("losing body ran to completion")
	}
}

func TestIntervalSkipsMissedTicks(t *testing.T) {
	exec := NewExecutor(Config{})
	ms := func(n int) Instant { return Instant(time.Duration(n) * time.Millisecond) }
	blockOn(t, exec, func(task *Task) (int, error) {
		iv := NewInterval(task, 100*time.Millisecond)
		ticks := []Instant{iv.Tick(task), iv.Tick(task)}
		task.Sleep(350 * time.Millisecond)
		ticks = append(ticks, iv.Tick(task))
		if task.Now() != ms(450) {
			t.Errorf("late tick should not wait, now %s", task.Now())
		}
		ticks = append(ticks, iv.Tick(task))
		if want := []Instant{ms(0), ms(100), ms(200), ms(500)}; !slices.Equal(ticks, want) {
			t.Errorf("ticks: want %v, got %v", want, ticks)
		}
		if iv.Missed() != 2 || iv.Ticks() != 4 {
			t.Errorf("missed %d ticks %d", iv.Missed(), iv.Ticks())
		}
		return 0, nil
	})
}

func TestRealClockSleeps(t *testing.T) {
	exec := NewExecutor(Config{TimerMode: TimerModeReal})
	start := time.Now()
	blockOn(t, exec, func(task *Task) (int, error) {
		task.Sleep(5 * time.Millisecond)
		return 0, nil
	})
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("real sleep returned after %s", elapsed)
	}
}

func TestTimeoutAgainstSlowOperation(t *testing.T) {
	exec := NewExecutor(Config{})
	operation := func(task *Task) (string, error) {
		task.Sleep(500 * time.Millisecond)
		return "operation successful", nil
	}
	blockOn(t, exec, func(task *Task) (int, error) {
		if _, err := Timeout(task, 100*time.Millisecond, operation); !errors.Is(err, ErrTimeout) {
			t.Errorf("100ms limit: want timeout, got %v", err)
		}
		if task.Now() != Instant(100*time.Millisecond) {
			t.Errorf("timeout fired at %s", task.Now())
		}
		v, err := Timeout(task, time.Second, operation)
		if err != nil || v != "operation successful" {
			t.Errorf("1000ms limit: %q %v", v, err)
		}
		if n := len(exec.PendingTimers()); n != 0 {
			t.Errorf("%d timers pending", n)
		}
		return 0, nil
	})
}

func TestTimeoutZeroLetsImmediateBodyWin(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		v, err := Timeout(task, 0, func(*Task) (int, error) { return 7, nil })
		if err != nil || v != 7 {
			t.Errorf("want 7, got %d %v", v, err)
		}
		_, err = Timeout(task, 0, func(task *Task) (int, error) {
			task.Sleep(time.Millisecond)
			return 1, nil
		})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("want ErrTimeout for a suspending body, got %v", err)
		}
		if n := len(exec.PendingTimers()); n != 0 {
			t.Errorf("%d timers left behind", n)
		}
		return 0, nil
	})
}

func TestTimeoutZeroUnderFuzz(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		exec := NewExecutor(Config{Seed: seed, Fuzz: true})
		v := blockOn(t, exec, func(task *Task) (int, error) {
			for range 3 {
				Spawn(task, func(task *Task) (int, error) { task.Yield(); return 0, nil })
			}
			return Timeout(task, 0, func(*Task) (int, error) { return 7, nil })
		})
		if v != 7 {
			t.Fatalf("seed %d: body lost to a zero timeout", seed)
		}
	}
}
