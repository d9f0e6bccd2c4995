package lessons

import (
	"time"

	"strand/internal/asyncrt"
)

func cancellation(t *asyncrt.Task, env *Env) error {
	slowFinished := false
	res, err := asyncrt.Select(t, asyncrt.Selection{Branches: []asyncrt.Branch{
		asyncrt.Case(asyncrt.Call(func(task *asyncrt.Task) (string, error) {
			task.Sleep(time.Second)
			return "fast", nil
		})),
		asyncrt.Case(asyncrt.Call(func(task *asyncrt.Task) (string, error) {
			task.Sleep(2 * time.Second)
			slowFinished = true
			return "slow", nil
		})),
	}})
	if err != nil {
		return err
	}
	if res.Index != 0 {
		return assertf("branch %d won, want the fast one", res.Index)
	}
	env.Say(t, "Fast task won!")
	// Outlive the slow deadline to show it never completes.
	t.Sleep(2 * time.Second)
	if slowFinished {
		return assertf("slow task ran to completion after losing")
	}
	env.Say(t, "slow task was cancelled")
	return nil
}

func biased(t *asyncrt.Task, env *Env) error {
	count := 0
	for {
		res, err := asyncrt.Select(t, asyncrt.Selection{
			Biased: true,
			Else:   true,
			Branches: []asyncrt.Branch{
				asyncrt.When(count < 1, asyncrt.Ready()),
				asyncrt.When(count < 2, asyncrt.Ready()),
				asyncrt.When(count < 3, asyncrt.Ready()),
			},
		})
		if err != nil {
			return err
		}
		count++
		if res.IsElse() {
			if count != 4 {
				return assertf("else fired with count %d", count)
			}
			env.Say(t, "every guard closed, else fired, count = %d", count)
			break
		}
		if count != res.Index+1 {
			return assertf("branch %d fired with count %d", res.Index, count)
		}
		env.Say(t, "branch %d fired, count = %d", res.Index+1, count)
	}
	if count != 4 {
		return assertf("count = %d, want 4", count)
	}
	return nil
}

func elseLesson(t *asyncrt.Task, env *Env) error {
	taskEnabled := 3
	h1 := asyncrt.SpawnNamed(t, "task-1", sleeper(env, 1, 2*time.Second, nil))
	h2 := asyncrt.SpawnNamed(t, "task-2", sleeper(env, 2, time.Second, nil))
	h3 := asyncrt.SpawnNamed(t, "task-3", sleeper(env, 3, 3*time.Second, nil))
	res, err := asyncrt.Select(t, asyncrt.Selection{
		Else: true,
		Branches: []asyncrt.Branch{
			asyncrt.When(taskEnabled == 1, asyncrt.Join(h1)),
			asyncrt.When(taskEnabled == 2, asyncrt.Join(h2)),
		},
	})
	if err != nil {
		return err
	}
	if !res.IsElse() {
		return assertf("branch %d won with both guards closed", res.Index)
	}
	env.Say(t, "no branch enabled, awaiting task 3 instead")
	id, err := h3.Await(t)
	if err != nil {
		return err
	}
	if id != 3 {
		return assertf("task 3 returned %d", id)
	}
	return nil
}

func precondition(t *asyncrt.Task, env *Env) error {
	for _, runTask2 := range []bool{false, true} {
		h1 := asyncrt.SpawnNamed(t, "task-1", sleeper(env, 1, 2*time.Second, nil))
		h2 := asyncrt.SpawnNamed(t, "task-2", sleeper(env, 2, time.Second, nil))
		res, err := asyncrt.Select(t, asyncrt.Selection{
			Biased: true,
			Branches: []asyncrt.Branch{
				asyncrt.Case(asyncrt.Join(h1)),
				asyncrt.When(runTask2, asyncrt.Join(h2)),
			},
		})
		if err != nil {
			return err
		}
		h1.Abort()
		h2.Abort()
		want := 0
		if runTask2 {
			want = 1
		}
		if res.Index != want {
			return assertf("run_task2=%t: branch %d won, want %d", runTask2, res.Index, want)
		}
		env.Say(t, "run_task2=%t: task %d finished first", runTask2, res.Index+1)
	}
	return nil
}
