package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"strand/internal/trace"
)

func newTestModel(lessons ...string) *progressModel {
	model, ok := NewProgressModel("lessons", lessons, make(chan Event)).(*progressModel)
	if !ok {
		panic("unexpected model type")
	}
	return model
}

func TestApplyStatusAndTrace(t *testing.T) {
	m := newTestModel("sleep", "mutex")
	m.applyEvent(Event{Lesson: "sleep", Status: StatusRunning})
	m.applyEvent(Event{Lesson: "sleep", Trace: &trace.Event{Name: "task.spawn", Clock: 250 * time.Millisecond}})
	m.applyEvent(Event{Lesson: "sleep", Trace: &trace.Event{Name: "task.spawn", Clock: 250 * time.Millisecond}})
	m.applyEvent(Event{Lesson: "sleep", Trace: &trace.Event{Name: "task.done", Clock: time.Second}})
	m.applyEvent(Event{Lesson: "unknown", Status: StatusError})

	item := m.items[0]
	if item.status != StatusRunning || item.live != 1 || item.clock != time.Second {
		t.Fatalf("unexpected row state: %+v", item)
	}
	view := m.View()
	if !strings.Contains(view, "1 live @1.000s") {
		t.Fatalf("view missing live detail:\n%s", view)
	}
	if !strings.Contains(view, "(0/2)") {
		t.Fatalf("view missing counter:\n%s", view)
	}

	m.applyEvent(Event{Lesson: "sleep", Status: StatusDone, Note: "1.050s virtual"})
	m.applyEvent(Event{Lesson: "mutex", Status: StatusError, Note: "counter mismatch"})
	view = m.View()
	if !strings.Contains(view, "(2/2)") || !strings.Contains(view, "counter mismatch") {
		t.Fatalf("view missing final rows:\n%s", view)
	}
}

func TestDoneQuits(t *testing.T) {
	m := newTestModel("basics")
	_, cmd := m.Update(doneMsg{})
	if !m.done {
		t.Fatal("model should be done")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if !strings.Contains(m.View(), "done: lessons") {
		t.Fatalf("done header missing:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"joinset-blocking", 10, "join..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestRelayTagsEvents(t *testing.T) {
	src := make(chan trace.Event, 2)
	dst := make(chan Event, 2)
	src <- trace.Event{Name: "task.spawn"}
	src <- trace.Event{Name: "timer.fire"}
	close(src)
	Relay(context.Background(), "interval", src, dst)
	close(dst)
	var names []string
	for ev := range dst {
		if ev.Lesson != "interval" || ev.Trace == nil {
			t.Fatalf("bad relayed event: %+v", ev)
		}
		names = append(names, ev.Trace.Name)
	}
	if strings.Join(names, ",") != "task.spawn,timer.fire" {
		t.Fatalf("relayed %v", names)
	}
}
