package lessons

import (
	"errors"
	"fmt"
	"time"

	"strand/internal/asyncrt"
)

func mutexLesson(t *asyncrt.Task, env *Env) error {
	const workers = 10
	mu := asyncrt.NewMutex(0)
	handles := make([]*asyncrt.Handle[struct{}], 0, workers)
	for i := range workers {
		hold := env.randomMillis()
		handles = append(handles, asyncrt.SpawnNamed(t, fmt.Sprintf("worker-%d", i), func(task *asyncrt.Task) (struct{}, error) {
			g := mu.Lock(task)
			defer g.Unlock()
			task.Sleep(hold)
			g.Set(g.Get() + 1)
			env.Say(task, "counter = %d after holding the lock %s", g.Get(), hold)
			return struct{}{}, nil
		}))
	}
	for _, r := range asyncrt.AwaitAll(t, handles...) {
		if r.Err != nil {
			return r.Err
		}
	}
	g := mu.Lock(t)
	count := g.Get()
	g.Unlock()
	if count != workers {
		return assertf("counter = %d, want %d", count, workers)
	}
	env.Say(t, "final counter = %d", count)
	return nil
}

type produced struct {
	producer uint64
	n, value uint64
}

func mpscLesson(t *asyncrt.Task, env *Env) error {
	const producers = 40
	tx, rx := asyncrt.NewBounded[produced](t, 16)
	for i := range uint64(producers) {
		sender := tx.Clone()
		asyncrt.Spawn(t, func(task *asyncrt.Task) (struct{}, error) {
			defer sender.Close()
			n := min(i, env.FibLimit)
			v, err := asyncrt.SpawnBlocking(task, func() (uint64, error) {
				return fib(n), nil
			}).Await(task)
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, sender.Send(task, produced{producer: i, n: n, value: v})
		})
	}
	tx.Close()

	received := 0
	for {
		p, err := rx.Recv(t)
		if errors.Is(err, asyncrt.ErrChannelClosed) {
			break
		}
		if err != nil {
			return err
		}
		if want := fibIter(p.n); p.value != want {
			return assertf("producer %d sent fib(%d) = %d, want %d", p.producer, p.n, p.value, want)
		}
		env.Say(t, "got (%d, %d)", p.producer, p.value)
		received++
	}
	if received != producers {
		return assertf("received %d values, want %d", received, producers)
	}
	return nil
}

type completed struct {
	after time.Duration
}

func oneshotLesson(t *asyncrt.Task, env *Env) error {
	tx, rx := asyncrt.NewOneshot[completed](t)
	d := env.randomMillis()
	asyncrt.SpawnNamed(t, "worker", func(task *asyncrt.Task) (struct{}, error) {
		task.Sleep(d)
		return struct{}{}, tx.Send(completed{after: d})
	})
	msg, err := rx.Recv(t)
	if err != nil {
		return err
	}
	if msg.after != d {
		return assertf("worker reported %s, want %s", msg.after, d)
	}
	env.Say(t, "worker completed after %s", msg.after)
	return nil
}
