package lessons

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"time"

	"fortio.org/safecast"

	"strand/internal/asyncrt"
	"strand/internal/observ"
)

// Options configure a lesson run.
type Options struct {
	Executor asyncrt.Config
	Out      io.Writer
	FibLimit uint64
	// Timer, if set, records the run as a phase named after the lesson.
	Timer *observ.Timer
	// Inspect, if set, sees the executor after the lesson finished and
	// before it is shut down.
	Inspect func(*asyncrt.Executor)
}

// Report is the outcome of one lesson run.
type Report struct {
	Lesson string
	Clock  time.Duration
	Wall   time.Duration
	Stats  asyncrt.Stats
	Err    error
}

// Failed reports whether the lesson returned an error.
func (r Report) Failed() bool {
	return r.Err != nil
}

// Run executes l on a fresh executor and waits for it to finish.
func Run(ctx context.Context, l Lesson, opts Options) Report {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	env := &Env{
		Out:      out,
		Rand:     rand.New(rand.NewSource(lessonSeed(opts.Executor.Seed))), //nolint:gosec // reproducible lesson durations
		FibLimit: opts.FibLimit,
	}
	titleColor.Fprintf(out, "== %s: %s\n", l.Title(), l.Summary)

	exec := asyncrt.NewExecutor(opts.Executor)
	phase := -1
	if opts.Timer != nil {
		phase = opts.Timer.Begin(l.Name)
	}
	start := time.Now()
	_, err := asyncrt.BlockOn(ctx, exec, func(t *asyncrt.Task) (struct{}, error) {
		err := l.Run(t, env)
		if opts.Inspect != nil {
			opts.Inspect(exec)
		}
		return struct{}{}, err
	})
	report := Report{
		Lesson: l.Name,
		Clock:  exec.Now().Duration(),
		Wall:   time.Since(start),
		Stats:  exec.Stats(),
		Err:    unwrapLessonError(err),
	}
	if opts.Timer != nil {
		note := ""
		if report.Err != nil {
			note = "failed"
		}
		opts.Timer.End(phase, report.Clock, note)
	}
	return report
}

// unwrapLessonError drops the failure wrapper BlockOn puts around an error
// the lesson body returned.
func unwrapLessonError(err error) error {
	var tf *asyncrt.TaskFailure
	if errors.As(err, &tf) && tf.Cause != nil {
		return tf.Cause
	}
	return err
}

func lessonSeed(seed uint64) int64 {
	if seed == 0 {
		seed = 1
	}
	v, err := safecast.Conv[int64](seed)
	if err != nil {
		// Seeds above MaxInt64 are halved into range.
		return int64(seed >> 1)
	}
	return v
}
