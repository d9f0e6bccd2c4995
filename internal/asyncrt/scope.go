package asyncrt

import (
	"errors"
	"fmt"

	"strand/internal/trace"
)

// ScopeID identifies an async scope.
type ScopeID uint64

// Scope tracks structured-concurrency membership. Closing a scope cancels
// every live task in it and in its nested scopes.
type Scope struct {
	id                ScopeID
	exec              *Executor
	parent            *Scope
	owner             *Task
	children          []*Task
	subs              []*Scope
	errs              []error
	failfast          bool
	failfastTriggered bool
	closed            bool
	// implicit marks a task's own child scope.
	implicit bool
}

// NewScope opens a scope nested in the spawner's scope. A scope opened
// from a task is closed when that task finishes. With failfast set, the
// first failing task cancels its siblings.
func NewScope(sp Spawner, failfast bool) *Scope {
	parent := sp.spawnScope()
	var owner *Task
	if t, ok := sp.(*Task); ok {
		owner = t
		parent = t.childScope()
	}
	s := parent.exec.newScope(parent, owner, failfast)
	if parent.closed {
		s.closed = true
	}
	return s
}

func (e *Executor) newScope(parent *Scope, owner *Task, failfast bool) *Scope {
	id := e.nextScopeID
	e.nextScopeID++
	s := &Scope{
		id:       id,
		exec:     e,
		parent:   parent,
		owner:    owner,
		failfast: failfast,
	}
	if parent != nil {
		parent.subs = append(parent.subs, s)
	}
	return s
}

func (s *Scope) spawnScope() *Scope {
	return s
}

// ID returns the scope identifier.
func (s *Scope) ID() ScopeID {
	if s == nil {
		return 0
	}
	return s.id
}

// Executor returns the executor owning the scope.
func (s *Scope) Executor() *Executor {
	if s == nil {
		return nil
	}
	return s.exec
}

// Closed reports whether the scope has been closed.
func (s *Scope) Closed() bool {
	return s == nil || s.closed
}

// FailfastTriggered reports whether a failure cancelled the scope's tasks.
func (s *Scope) FailfastTriggered() bool {
	return s != nil && s.failfastTriggered
}

// Live reports the number of unfinished tasks spawned directly in the scope.
func (s *Scope) Live() int {
	if s == nil {
		return 0
	}
	return len(s.children)
}

// Tasks returns the IDs of the scope's unfinished tasks in spawn order.
func (s *Scope) Tasks() []TaskID {
	if s == nil {
		return nil
	}
	ids := make([]TaskID, 0, len(s.children))
	for _, t := range s.children {
		ids = append(ids, t.id)
	}
	return ids
}

// Close cancels every live task in the scope and its nested scopes. New
// spawns into a closed scope are cancelled before they run.
func (s *Scope) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.exec.emit(trace.ScopeTask, trace.KindPoint, "scope.close", s.ownerID(), fmt.Sprintf("scope %d", s.id), nil)
	subs := s.subs
	s.subs = nil
	for _, sub := range subs {
		sub.Close()
	}
	s.cancelLive()
	if s.parent != nil {
		s.parent.removeSub(s)
	}
}

// Wait suspends t until every task in the scope has finished, then returns
// the joined failures of those tasks. Cancelled tasks are not failures,
// and the executor's root scope does not retain failures.
func (s *Scope) Wait(t *Task) error {
	t.checkCurrent()
	for len(s.children) > 0 {
		t.block(nil, ScopeKey(s.id))
	}
	return errors.Join(s.errs...)
}

func (s *Scope) ownerID() TaskID {
	if s.owner == nil {
		return 0
	}
	return s.owner.id
}

func (s *Scope) add(t *Task) {
	s.children = append(s.children, t)
}

func (s *Scope) cancelLive() {
	live := make([]*Task, len(s.children))
	copy(live, s.children)
	for _, t := range live {
		s.exec.cancel(t)
	}
}

func (s *Scope) removeSub(sub *Scope) {
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Scope) taskDone(t *Task) {
	for i, child := range s.children {
		if child == t {
			s.children = append(s.children[:i], s.children[i+1:]...)
			break
		}
	}
	if t.result == TaskResultFailed {
		if s.parent != nil {
			s.errs = append(s.errs, t.err)
		}
		if s.failfast && !s.failfastTriggered {
			s.failfastTriggered = true
			s.cancelLive()
		}
	}
	s.exec.WakeKeyAll(ScopeKey(s.id))
}
