package asyncrt

import (
	"time"

	"strand/internal/trace"
)

// emit sends a runtime event to the tracer. Events carry both wall time and
// the executor clock so virtual-time runs stay readable.
func (e *Executor) emit(scope trace.Scope, kind trace.Kind, name string, task TaskID, detail string, extra map[string]string) {
	if e == nil || e.tracer == nil || !e.tracer.Enabled() {
		return
	}
	e.tracer.Emit(&trace.Event{
		Time:   time.Now(),
		Clock:  e.Now().Duration(),
		Kind:   kind,
		Scope:  scope,
		Task:   uint64(task),
		Name:   name,
		Detail: detail,
		Extra:  extra,
	})
}

func (e *Executor) emitTask(kind trace.Kind, name string, task *Task, detail string) {
	if e == nil || e.tracer == nil || !e.tracer.Enabled() {
		return
	}
	var extra map[string]string
	if task.name != "" {
		extra = map[string]string{"name": task.name}
	}
	e.emit(trace.ScopeTask, kind, name, task.id, detail, extra)
}
