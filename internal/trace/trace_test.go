package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sampleEvent(name string, scope Scope) *Event {
	return &Event{
		Time:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Clock:  1500 * time.Microsecond,
		Kind:   KindPoint,
		Scope:  scope,
		Task:   3,
		Name:   name,
		Detail: "detail",
		Extra:  map[string]string{"b": "2", "a": "1"},
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"": LevelOff, "OFF": LevelOff, "phase": LevelPhase, " Detail ": LevelDetail, "debug": LevelDebug}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelGatesScopes(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeTask) || !LevelPhase.ShouldEmit(ScopeExecutor) {
		t.Fatalf("phase level should only emit executor events")
	}
	if LevelDetail.ShouldEmit(ScopeSync) || !LevelDetail.ShouldEmit(ScopeTask) {
		t.Fatalf("detail level should stop at task events")
	}
	if !LevelDebug.ShouldEmit(ScopeSync) {
		t.Fatalf("debug level should emit sync events")
	}
}

func TestStreamTextFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	tr.Emit(sampleEvent("task.spawn", ScopeTask))
	line := buf.String()
	for _, part := range []string{"1.500ms", "t3", "\u2022 task.spawn", "(detail)", "{a=1, b=2}"} {
		if !strings.Contains(line, part) {
			t.Fatalf("text line %q missing %q", line, part)
		}
	}
}

func TestStreamNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	tr.Emit(sampleEvent("task.done", ScopeTask))
	tr.Emit(sampleEvent("mutex.acquire", ScopeSync))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line at detail level, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["name"] != "task.done" || decoded["scope"] != "task" || decoded["clock_ms"] != 1.5 {
		t.Fatalf("unexpected json %v", decoded)
	}
}

func TestMsgpackStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatMsgpack)
	names := []string{"executor.run", "task.spawn", "timer.fire"}
	scopes := []Scope{ScopeExecutor, ScopeTask, ScopeSync}
	for i, name := range names {
		tr.Emit(sampleEvent(name, scopes[i]))
	}
	events, err := ReadMsgpack(&buf)
	if err != nil {
		t.Fatalf("ReadMsgpack: %v", err)
	}
	if len(events) != len(names) {
		t.Fatalf("want %d events, got %d", len(names), len(events))
	}
	for i, ev := range events {
		if ev.Name != names[i] || ev.Scope != scopes[i] || ev.Clock != 1500*time.Microsecond || ev.Task != 3 {
			t.Fatalf("event %d mismatch: %+v", i, ev)
		}
		if !ev.Time.Equal(sampleEvent("", 0).Time) {
			t.Fatalf("event %d time mismatch: %v", i, ev.Time)
		}
	}
	if events[0].Seq >= events[2].Seq {
		t.Fatalf("sequence numbers not increasing")
	}
}

func TestRingKeepsNewestInOrder(t *testing.T) {
	ring := NewRingTracer(3, LevelPhase)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ring.Emit(sampleEvent(name, ScopeSync))
	}
	var got []string
	for _, ev := range ring.Snapshot() {
		got = append(got, ev.Name)
	}
	if strings.Join(got, ",") != "c,d,e" {
		t.Fatalf("ring snapshot: got %v", got)
	}
}

func TestChanTracerDropsWhenFullAndCloses(t *testing.T) {
	ct := NewChanTracer(LevelDebug, 2)
	for range 5 {
		ct.Emit(sampleEvent("x", ScopeTask))
	}
	if err := ct.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = ct.Close()
	ct.Emit(sampleEvent("after", ScopeTask))
	n := 0
	for range ct.Events() {
		n++
	}
	if n != 2 {
		t.Fatalf("want 2 buffered events, got %d", n)
	}
}

func TestMultiTracerSkipsDisabled(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	multi := NewMultiTracer(LevelDebug, ring, Nop, nil)
	multi.Emit(sampleEvent("x", ScopeTask))
	if len(ring.Snapshot()) != 1 {
		t.Fatalf("ring did not receive event")
	}
}

func TestFindRing(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	stream := NewStreamTracer(&bytes.Buffer{}, LevelDebug, FormatText)
	if FindRing(NewMultiTracer(LevelDebug, stream, ring)) != ring {
		t.Fatal("ring inside multi tracer not found")
	}
	if FindRing(stream) != nil || FindRing(Nop) != nil {
		t.Fatal("tracers without a ring should yield nil")
	}
}

func TestNewHonoursOffLevel(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level should yield a disabled tracer")
	}
	tr, err = New(Config{Level: LevelDetail, Mode: ModeStream, Output: &bytes.Buffer{}, Format: FormatNDJSON})
	if err != nil || !tr.Enabled() {
		t.Fatalf("stream tracer: %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "-": FormatText, "t.ndjson": FormatNDJSON, "t.jsonl": FormatNDJSON, "t.msgpack": FormatMsgpack, "t.log": FormatText}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Fatalf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRingTracer(64, LevelPhase)
	stop := StartHeartbeat(t.Context(), ring, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	stop()
	stop()
	n := len(ring.Snapshot())
	time.Sleep(5 * time.Millisecond)
	if len(ring.Snapshot()) != n {
		t.Fatalf("heartbeat kept running after stop")
	}
}
