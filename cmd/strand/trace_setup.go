package main

import (
	"fmt"
	"io"
	"maps"

	"github.com/spf13/cobra"

	"strand/internal/config"
	"strand/internal/trace"
)

// setupTracing builds the tracer described by the settings and attaches it
// to the command context. The cleanup function stops the heartbeat, then
// flushes and closes the tracer.
func setupTracing(cmd *cobra.Command, s config.Settings) (trace.Tracer, func(), error) {
	if s.TraceLevel == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}

	tracer, err := trace.New(s.TraceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	stopHeartbeat := trace.StartHeartbeat(ctx, tracer, s.TraceHeartbeat)

	cleanup := func() {
		// Stop heartbeat first
		stopHeartbeat()

		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}

	return tracer, cleanup, nil
}

// lessonTracer tags every event with the lesson it came from and the id of
// the strand invocation, so parallel runs and appended trace files stay
// separable. It never closes the shared tracer.
type lessonTracer struct {
	trace.Tracer
	run    string
	lesson string
}

func (t lessonTracer) Emit(ev *trace.Event) {
	if ev == nil {
		return
	}
	tagged := *ev
	tagged.Extra = make(map[string]string, len(ev.Extra)+2)
	maps.Copy(tagged.Extra, ev.Extra)
	tagged.Extra["lesson"] = t.lesson
	if t.run != "" {
		tagged.Extra["run"] = t.run
	}
	t.Tracer.Emit(&tagged)
}

func (t lessonTracer) Close() error { return nil }

// dumpRing writes the ring buffer, if the tracer keeps one, after a failed
// run.
func dumpRing(w io.Writer, tracer trace.Tracer) {
	ring := trace.FindRing(tracer)
	if ring == nil {
		return
	}
	fmt.Fprintln(w, "trace: last events before the failure:")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
