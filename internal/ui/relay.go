package ui

import (
	"context"

	"strand/internal/trace"
)

// Relay tags runtime events from one lesson's tracer and forwards them to
// dst until src is closed or ctx ends.
func Relay(ctx context.Context, lesson string, src <-chan trace.Event, dst chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- Event{Lesson: lesson, Trace: &ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}
