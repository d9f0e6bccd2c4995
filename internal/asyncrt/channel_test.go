package asyncrt

import (
	"errors"
	"testing"
	"time"
)

func TestChannelPreservesPerProducerOrder(t *testing.T) {
	exec := NewExecutor(Config{})
	const producers, perProducer = 3, 5
	got := blockOn(t, exec, func(task *Task) ([]int, error) {
		tx, rx := NewBounded[int](task, 2)
		for p := range producers {
			ptx := tx.Clone()
			Spawn(task, func(task *Task) (int, error) {
				defer ptx.Close()
				for i := range perProducer {
					if err := ptx.Send(task, p*100+i); err != nil {
						return 0, err
					}
					task.Sleep(time.Duration(p+1) * time.Millisecond)
				}
				return 0, nil
			})
		}
		tx.Close()
		var out []int
		for {
			v, err := rx.Recv(task)
			if errors.Is(err, ErrChannelClosed) {
				return out, nil
			}
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	})
	if len(got) != producers*perProducer {
		t.Fatalf("want %d values, got %d: %v", producers*perProducer, len(got), got)
	}
	last := map[int]int{}
	for _, v := range got {
		p, i := v/100, v%100
		if prev, ok := last[p]; ok && i <= prev {
			t.Fatalf("producer %d out of order: %v", p, got)
		}
		last[p] = i
	}
}

func TestBoundedChannelAppliesBackpressure(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		tx, rx := NewBounded[int](task, 1)
		if err := tx.TrySend(1); err != nil {
			t.Errorf("first TrySend: %v", err)
		}
		if err := tx.TrySend(2); !errors.Is(err, ErrChannelFull) {
			t.Errorf("want ErrChannelFull, got %v", err)
		}
		sent := Spawn(task, func(task *Task) (int, error) {
			return 0, tx.Send(task, 2)
		})
		task.Yield()
		if sent.Done() {
			t.Errorf("send into full channel should wait")
		}
		if v, _ := rx.Recv(task); v != 1 {
			t.Errorf("want 1, got %d", v)
		}
		if _, err := sent.Await(task); err != nil {
			t.Errorf("blocked send: %v", err)
		}
		if v, _ := rx.Recv(task); v != 2 {
			t.Errorf("want 2, got %d", v)
		}
		return 0, nil
	})
}

func TestChannelClosedSignals(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		tx, rx := NewUnbounded[string](task)
		_ = tx.Send(task, "last")
		tx.Close()
		if err := tx.Send(task, "again"); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("send on closed sender: %v", err)
		}
		if v, err := rx.Recv(task); err != nil || v != "last" {
			t.Errorf("buffered value lost: %q %v", v, err)
		}
		for range 2 {
			if _, err := rx.Recv(task); !errors.Is(err, ErrChannelClosed) {
				t.Errorf("want ErrChannelClosed, got %v", err)
			}
		}

		tx2, rx2 := NewBounded[int](task, 1)
		_ = tx2.TrySend(1)
		waiting := Spawn(task, func(task *Task) (int, error) {
			return 0, tx2.Send(task, 2)
		})
		task.Yield()
		rx2.Close()
		if _, err := waiting.Await(task); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("sender blocked on dropped receiver: %v", err)
		}
		return 0, nil
	})
}

func TestOneshot(t *testing.T) {
	exec := NewExecutor(Config{})
	blockOn(t, exec, func(task *Task) (int, error) {
		tx, rx := NewOneshot[int](task)
		Spawn(task, func(task *Task) (int, error) {
			task.Sleep(time.Millisecond)
			if err := tx.Send(3); err != nil {
				return 0, err
			}
			if err := tx.Send(4); !errors.Is(err, ErrAlreadySent) {
				t.Errorf("want ErrAlreadySent, got %v", err)
			}
			return 0, nil
		})
		if v, err := rx.Recv(task); err != nil || v != 3 {
			t.Errorf("oneshot recv: %d %v", v, err)
		}
		if _, err := rx.Recv(task); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("second recv: %v", err)
		}

		dtx, drx := NewOneshot[int](task)
		Spawn(task, func(*Task) (int, error) {
			dtx.Drop()
			return 0, nil
		})
		if _, err := drx.Recv(task); !errors.Is(err, ErrSenderDropped) {
			t.Errorf("want ErrSenderDropped, got %v", err)
		}
		return 0, nil
	})
}
