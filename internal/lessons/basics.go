package lessons

import (
	"time"

	"strand/internal/asyncrt"
)

func basics(t *asyncrt.Task, env *Env) error {
	start := t.Now()
	env.Say(t, "hello before sleeping")
	t.Sleep(time.Second)
	env.Say(t, "hello after one second")
	if got := t.Now().Sub(start); got < time.Second {
		return assertf("slept %s, want at least 1s", got)
	}
	return nil
}

func sleepLesson(t *asyncrt.Task, env *Env) error {
	ticks := 0
	asyncrt.SpawnNamed(t, "background", func(bg *asyncrt.Task) (struct{}, error) {
		for {
			ticks++
			env.Say(bg, "background tick %d", ticks)
			bg.Sleep(250 * time.Millisecond)
		}
	})
	t.Sleep(time.Second)
	env.Say(t, "main woke after 1s")
	t.Sleep(50 * time.Millisecond)
	env.Say(t, "main done; the background task goes with it")
	if ticks < 4 {
		return assertf("background ticked %d times, want at least 4", ticks)
	}
	return nil
}
