package asyncrt

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestMutexCounterIsExact(t *testing.T) {
	exec := NewExecutor(Config{})
	m := NewMutex(0)
	const workers = 10
	blockOn(t, exec, func(task *Task) (int, error) {
		handles := make([]*Handle[int], workers)
		for i := range handles {
			handles[i] = Spawn(task, func(task *Task) (int, error) {
				g := m.Lock(task)
				defer g.Unlock()
				v := g.Get()
				task.Sleep(time.Millisecond)
				g.Set(v + 1)
				return v, nil
			})
		}
		for _, r := range AwaitAll(task, handles...) {
			if r.Err != nil {
				return 0, r.Err
			}
		}
		return 0, nil
	})
	locks, unlocks := m.Counts()
	if locks != workers || unlocks != workers {
		t.Fatalf("lock accounting: %d locks %d unlocks", locks, unlocks)
	}
	if m.Locked() || m.Waiting() != 0 {
		t.Fatalf("mutex left held")
	}
	if m.value != workers {
		t.Fatalf("counter: want %d, got %d", workers, m.value)
	}
}

func TestMutexHandsOffInFIFOOrder(t *testing.T) {
	exec := NewExecutor(Config{})
	m := NewMutex([]int(nil))
	blockOn(t, exec, func(task *Task) (int, error) {
		var handles []*Handle[int]
		for i := range 5 {
			handles = append(handles, Spawn(task, func(task *Task) (int, error) {
				return 0, m.With(task, func(order *[]int) error {
					*order = append(*order, i)
					task.Sleep(time.Millisecond)
					return nil
				})
			}))
		}
		AwaitAll(task, handles...)
		return 0, nil
	})
	if want := []int{0, 1, 2, 3, 4}; !slices.Equal(m.value, want) {
		t.Fatalf("acquisition order: want %v, got %v", want, m.value)
	}
}

func TestMutexCancelledWaiterLeavesQueue(t *testing.T) {
	exec := NewExecutor(Config{})
	m := NewMutex(0)
	blockOn(t, exec, func(task *Task) (int, error) {
		holder := Spawn(task, func(task *Task) (int, error) {
			return 0, m.With(task, func(*int) error {
				task.Sleep(10 * time.Millisecond)
				return nil
			})
		})
		waiter := Spawn(task, func(task *Task) (int, error) {
			return 0, m.With(task, func(v *int) error { *v = -1; return nil })
		})
		last := Spawn(task, func(task *Task) (int, error) {
			return 0, m.With(task, func(v *int) error { *v = 1; return nil })
		})
		task.Sleep(time.Millisecond)
		if m.Waiting() != 2 {
			t.Errorf("want 2 queued waiters, got %d", m.Waiting())
		}
		waiter.Abort()
		if _, err := last.Await(task); err != nil {
			return 0, err
		}
		if _, err := holder.Await(task); err != nil {
			return 0, err
		}
		if _, err := waiter.Await(task); !errors.Is(err, ErrCancelled) {
			t.Errorf("want cancelled waiter, got %v", err)
		}
		return 0, nil
	})
	if m.value != 1 {
		t.Fatalf("cancelled waiter ran: value %d", m.value)
	}
	if locks, unlocks := m.Counts(); locks != 2 || unlocks != 2 {
		t.Fatalf("lock accounting: %d locks %d unlocks", locks, unlocks)
	}
}

func TestMutexReleasedWhenHolderPanics(t *testing.T) {
	exec := NewExecutor(Config{})
	m := NewMutex(0)
	blockOn(t, exec, func(task *Task) (int, error) {
		bad := Spawn(task, func(task *Task) (int, error) {
			return 0, m.With(task, func(*int) error {
				task.Sleep(time.Millisecond)
				panic("poisoned")
			})
		})
		good := Spawn(task, func(task *Task) (int, error) {
			g := m.Lock(task)
			defer g.Unlock()
			return g.Get() + 1, nil
		})
		if v, err := good.Await(task); err != nil || v != 1 {
			t.Errorf("waiter after panic: %d %v", v, err)
		}
		var failure *TaskFailure
		if _, err := bad.Await(task); !errors.As(err, &failure) {
			t.Errorf("want failure from panicking holder, got %v", err)
		}
		return 0, nil
	})
	if m.Locked() {
		t.Fatalf("mutex still locked")
	}
}

func TestLockOpInSelect(t *testing.T) {
	exec := NewExecutor(Config{})
	m := NewMutex("free")
	blockOn(t, exec, func(task *Task) (int, error) {
		g := m.Lock(task)
		res, err := Select(task, Selection{
			Branches: []Branch{Case(m.LockOp())},
			Else:     true,
		})
		if err != nil || !res.IsElse() {
			t.Errorf("held mutex should not be lockable: %+v %v", res, err)
		}
		g.Unlock()
		res, err = Select(task, Selection{Branches: []Branch{Case(m.LockOp())}})
		if err != nil || res.Index != 0 {
			t.Errorf("free mutex not acquired: %+v %v", res, err)
		}
		res.Value.(*Guard[string]).Unlock()
		return 0, nil
	})
}

func TestMutexCounterUnderFuzz(t *testing.T) {
	for _, k := range []int{0, 1, 7, 25} {
		for seed := uint64(1); seed <= 5; seed++ {
			exec := NewExecutor(Config{Fuzz: true, Seed: seed})
			m := NewMutex(0)
			blockOn(t, exec, func(task *Task) (int, error) {
				handles := make([]*Handle[int], k)
				for i := range handles {
					handles[i] = Spawn(task, func(task *Task) (int, error) {
						return 0, m.With(task, func(v *int) error {
							n := *v
							task.Yield()
							*v = n + 1
							return nil
						})
					})
				}
				AwaitAll(task, handles...)
				return 0, nil
			})
			if m.value != k {
				t.Fatalf("k=%d seed=%d: counter %d", k, seed, m.value)
			}
		}
	}
}

func TestResourceIDsArePerExecutor(t *testing.T) {
	ids := func() []uint64 {
		exec := NewExecutor(Config{})
		return blockOn(t, exec, func(task *Task) ([]uint64, error) {
			m := NewMutex(0)
			if m.ID() != 0 {
				t.Errorf("unbound mutex has id %d", m.ID())
			}
			m.Lock(task).Unlock()
			tx, _ := NewBounded[int](task, 1)
			js := NewJoinSet[int](task)
			return []uint64{m.ID(), tx.ch.id, js.id}, nil
		})
	}
	first, second := ids(), ids()
	if !slices.Equal(first, second) || first[0] != 1 {
		t.Fatalf("ids depend on earlier executors: %v vs %v", first, second)
	}
}
