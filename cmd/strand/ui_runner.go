package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"strand/internal/lessons"
	"strand/internal/trace"
	"strand/internal/ui"
)

type planOutcome struct {
	results []lessonResult
	err     error
}

// runPlanWithUI runs the plan while a live view follows every lesson's
// task events. Lesson output is buffered and printed once the view exits.
func runPlanWithUI(ctx context.Context, plan runPlan, out io.Writer) ([]lessonResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan planOutcome, 1)

	var relays sync.WaitGroup
	hooks := runHooks{
		tracer: func(name string) (trace.Tracer, func()) {
			ct := trace.NewChanTracer(trace.LevelDetail, 256)
			relays.Add(1)
			go func() {
				defer relays.Done()
				ui.Relay(ctx, name, ct.Events(), events)
			}()
			return ct, func() { _ = ct.Close() }
		},
		started: func(name string) {
			events <- ui.Event{Lesson: name, Status: ui.StatusRunning}
		},
		finished: func(r lessons.Report) {
			ev := ui.Event{Lesson: r.Lesson, Status: ui.StatusDone, Note: fmt.Sprintf("%.3fs on the clock", r.Clock.Seconds())}
			if r.Err != nil {
				ev.Status = ui.StatusError
				ev.Note = r.Err.Error()
			}
			events <- ev
		},
	}

	go func() {
		results, err := plan.execute(ctx, nil, hooks)
		relays.Wait()
		outcomeCh <- planOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("strand run", plan.names(), events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// The view only quits on its own once every lesson reported; anything
	// else is an interrupt.
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
