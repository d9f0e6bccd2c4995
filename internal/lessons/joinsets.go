package lessons

import (
	"time"

	"strand/internal/asyncrt"
)

type slept struct {
	id    int
	after time.Duration
}

func joinsetLesson(t *asyncrt.Task, env *Env) error {
	set := asyncrt.NewJoinSet[slept](t)
	for id := 1; id <= 9; id++ {
		d := env.randomMillis()
		set.Spawn(func(task *asyncrt.Task) (slept, error) {
			task.Sleep(d)
			return slept{id: id, after: d}, nil
		})
	}
	seen := make(map[int]bool, 9)
	for {
		r, ok := set.JoinNext(t)
		if !ok {
			break
		}
		if r.Err != nil {
			return r.Err
		}
		env.Say(t, "task %d finished after %s", r.Value.id, r.Value.after)
		seen[r.Value.id] = true
	}
	if len(seen) != 9 {
		return assertf("joined %d distinct tasks, want 9", len(seen))
	}
	return nil
}

type fibResult struct {
	n, value uint64
}

func joinsetBlocking(t *asyncrt.Task, env *Env) error {
	set := asyncrt.NewJoinSet[fibResult](t)
	for n := range env.FibLimit + 1 {
		set.SpawnBlocking(func() (fibResult, error) {
			return fibResult{n: n, value: fib(n)}, nil
		})
	}
	var joined uint64
	for {
		r, ok := set.JoinNext(t)
		if !ok {
			break
		}
		if r.Err != nil {
			return r.Err
		}
		if want := fibIter(r.Value.n); r.Value.value != want {
			return assertf("fib(%d) = %d, want %d", r.Value.n, r.Value.value, want)
		}
		env.Say(t, "fib(%d) = %d", r.Value.n, r.Value.value)
		joined++
	}
	if joined != env.FibLimit+1 {
		return assertf("joined %d results, want %d", joined, env.FibLimit+1)
	}
	return nil
}
