package lessons

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"strand/internal/asyncrt"
)

// sleeper returns a body that sleeps d, appends id to finished and yields id.
func sleeper(env *Env, id int, d time.Duration, finished *[]int) func(*asyncrt.Task) (int, error) {
	return func(t *asyncrt.Task) (int, error) {
		env.Say(t, "task %d sleeping %s", id, d)
		t.Sleep(d)
		env.Say(t, "task %d completed", id)
		if finished != nil {
			*finished = append(*finished, id)
		}
		return id, nil
	}
}

func spawnLesson(t *asyncrt.Task, env *Env) error {
	var finished []int
	h1 := asyncrt.SpawnNamed(t, "task-1", sleeper(env, 1, 2*time.Second, &finished))
	h2 := asyncrt.SpawnNamed(t, "task-2", sleeper(env, 2, time.Second, &finished))
	env.Say(t, "both tasks spawned; main keeps going")
	if _, err := h1.Await(t); err != nil {
		return err
	}
	if _, err := h2.Await(t); err != nil {
		return err
	}
	if !slices.Equal(finished, []int{2, 1}) {
		return assertf("completion order %v, want [2 1]", finished)
	}
	return nil
}

func spawnJoin(t *asyncrt.Task, env *Env) error {
	start := t.Now()
	handles := []*asyncrt.Handle[int]{
		asyncrt.SpawnNamed(t, "task-1", sleeper(env, 1, 2*time.Second, nil)),
		asyncrt.SpawnNamed(t, "task-2", sleeper(env, 2, time.Second, nil)),
	}
	for _, r := range asyncrt.AwaitAll(t, handles...) {
		if r.Err != nil {
			return r.Err
		}
	}
	env.Say(t, "all tasks completed!")
	return checkConcurrent(t.Now().Sub(start), 2*time.Second, 3*time.Second)
}

func joinLesson(t *asyncrt.Task, env *Env) error {
	start := t.Now()
	results := asyncrt.JoinAll(t,
		sleeper(env, 1, 3*time.Second, nil),
		sleeper(env, 2, time.Second, nil),
	)
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
		env.Say(t, "joined task %d", r.Value)
	}
	env.Say(t, "all tasks completed!")
	return checkConcurrent(t.Now().Sub(start), 3*time.Second, 4*time.Second)
}

// checkConcurrent asserts bodies overlapped: the run took at least the
// longest body but less than all of them back to back.
func checkConcurrent(elapsed, longest, sequential time.Duration) error {
	if elapsed < longest || elapsed >= sequential {
		return assertf("took %s, want at least %s and under %s", elapsed, longest, sequential)
	}
	return nil
}

func failure(t *asyncrt.Task, env *Env) error {
	steady := asyncrt.SpawnNamed(t, "steady", func(task *asyncrt.Task) (string, error) {
		task.Sleep(2 * time.Second)
		env.Say(task, "task 1 completed")
		return "task 1 result", nil
	})
	faulty := asyncrt.SpawnNamed(t, "faulty", func(task *asyncrt.Task) (string, error) {
		task.Sleep(time.Second)
		panic("Task failed!")
	})
	results := asyncrt.AwaitAll(t, steady, faulty)
	for i, r := range results {
		if r.Ok() {
			env.Say(t, "task %d succeeded: %s", i+1, r.Value)
		} else {
			env.Say(t, "task %d failed: %v", i+1, r.Err)
		}
	}
	env.Say(t, "all tasks completed (even if some failed)")

	var tf *asyncrt.TaskFailure
	switch {
	case !results[0].Ok():
		return assertf("steady task failed: %v", results[0].Err)
	case !errors.As(results[1].Err, &tf) || !tf.Panicked():
		return assertf("faulty task error %v, want a panic failure", results[1].Err)
	case fmt.Sprint(tf.Panic) != "Task failed!":
		return assertf("panic value %v", tf.Panic)
	}
	return nil
}
