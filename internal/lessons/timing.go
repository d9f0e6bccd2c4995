package lessons

import (
	"errors"
	"time"

	"strand/internal/asyncrt"
)

func timeoutLesson(t *asyncrt.Task, env *Env) error {
	_, err := asyncrt.Timeout(t, 2*time.Second, func(task *asyncrt.Task) (string, error) {
		env.Say(task, "starting a 5s operation")
		task.Sleep(5 * time.Second)
		return "done", nil
	})
	if !errors.Is(err, asyncrt.ErrTimeout) {
		return assertf("got %v, want a timeout", err)
	}
	env.Say(t, "operation timed out: %v", err)
	return nil
}

func timeTimeout(t *asyncrt.Task, env *Env) error {
	const work = 500 * time.Millisecond
	for _, limit := range []time.Duration{100 * time.Millisecond, time.Second} {
		v, err := asyncrt.Timeout(t, limit, func(task *asyncrt.Task) (string, error) {
			task.Sleep(work)
			return "finished", nil
		})
		switch {
		case limit < work && !errors.Is(err, asyncrt.ErrTimeout):
			return assertf("limit %s: got %q, %v; want a timeout", limit, v, err)
		case limit >= work && err != nil:
			return assertf("limit %s: %v", limit, err)
		case err != nil:
			env.Say(t, "limit %s: timed out", limit)
		default:
			env.Say(t, "limit %s: operation %s", limit, v)
		}
	}
	return nil
}

func intervalLesson(t *asyncrt.Task, env *Env) error {
	const period = 200 * time.Millisecond
	iv := asyncrt.NewInterval(t, period)
	start := t.Now()
	var last time.Duration = -1
	for i := range 5 {
		at := iv.Tick(t).Sub(start)
		env.Say(t, "tick %d at +%s", i+1, at)
		if at%period != 0 || at <= last {
			return assertf("tick %d at +%s is off the %s grid", i+1, at, period)
		}
		last = at
	}
	if iv.Ticks() != 5 {
		return assertf("interval counted %d ticks", iv.Ticks())
	}
	return nil
}
