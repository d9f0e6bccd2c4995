package asyncrt

import (
	"strconv"

	"strand/internal/trace"
)

// ElseIndex is the Selected.Index of the fallback branch.
const ElseIndex = -1

// Branch is one arm of a Select. A branch whose Guard is false is never
// polled.
type Branch struct {
	Guard bool
	Op    Op
}

// Case builds an enabled branch.
func Case(op Op) Branch {
	return Branch{Guard: true, Op: op}
}

// When builds a branch enabled only if guard holds.
func When(guard bool, op Op) Branch {
	return Branch{Guard: guard, Op: op}
}

// Selection describes a multi-way wait.
type Selection struct {
	Branches []Branch
	// Biased polls branches in declaration order. Otherwise polling starts
	// at a random branch so no branch is starved.
	Biased bool
	// Else completes the Select with ElseIndex when no enabled branch is
	// ready on the first poll, or when every branch is disabled.
	Else bool
}

// Selected reports the branch that won.
type Selected struct {
	Index int
	Value any
	Err   error
}

// IsElse reports whether the fallback branch won.
func (s Selected) IsElse() bool {
	return s.Index == ElseIndex
}

// Select waits until one enabled branch completes and abandons the rest:
// losing timers are cancelled and losing Call bodies are cancelled. Call
// bodies are started and run up to their first suspension before any
// branch is polled, so a body that finishes without suspending counts as
// ready. An error is returned only when the Selection can never complete.
func Select(t *Task, sel Selection) (Selected, error) {
	t.checkCurrent()
	exec := t.exec
	enabled := make([]int, 0, len(sel.Branches))
	for i, b := range sel.Branches {
		if b.Guard && b.Op != nil {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		if sel.Else {
			exec.emitSelect(t, ElseIndex)
			return Selected{Index: ElseIndex}, nil
		}
		return Selected{}, &ConfigurationError{Reason: "select has no enabled branch and no else branch"}
	}
	order := enabled
	if !sel.Biased && len(enabled) > 1 {
		start := exec.rng.Intn(len(enabled))
		order = append(append(make([]int, 0, len(enabled)), enabled[start:]...), enabled[:start]...)
	}

	touched := make([]bool, len(sel.Branches))
	abandon := func(winner int) {
		for _, i := range order {
			if touched[i] && i != winner {
				sel.Branches[i].Op.abandon(t)
			}
		}
	}
	var started []*Task
	for _, i := range order {
		if s, ok := sel.Branches[i].Op.(starter); ok {
			if child := s.start(t); child != nil {
				touched[i] = true
				started = append(started, child)
			}
		}
	}
	for _, child := range started {
		for !child.started && child.status != TaskDone {
			t.yield(func() { abandon(ElseIndex) })
		}
	}
	first := true
	for {
		for _, i := range order {
			op := sel.Branches[i].Op
			touched[i] = true
			if done, value, err := op.poll(t); done {
				abandon(i)
				exec.emitSelect(t, i)
				return Selected{Index: i, Value: value, Err: err}, nil
			}
		}
		if first && sel.Else {
			abandon(ElseIndex)
			exec.emitSelect(t, ElseIndex)
			return Selected{Index: ElseIndex}, nil
		}
		first = false
		var keys []WakerKey
		for _, i := range order {
			keys = append(keys, sel.Branches[i].Op.keys()...)
		}
		t.block(func() { abandon(ElseIndex) }, keys...)
	}
}

func (e *Executor) emitSelect(t *Task, index int) {
	if !e.tracer.Enabled() {
		return
	}
	branch := "else"
	if index != ElseIndex {
		branch = strconv.Itoa(index)
	}
	e.emit(trace.ScopeSync, trace.KindPoint, "select.resolve", t.id, "branch "+branch, nil)
}
