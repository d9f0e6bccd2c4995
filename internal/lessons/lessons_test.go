package lessons

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"strand/internal/asyncrt"
	"strand/internal/observ"
	"strand/internal/testkit"
)

func runVirtual(t *testing.T, l Lesson, cfg asyncrt.Config) (Report, string) {
	t.Helper()
	var out bytes.Buffer
	var inspected bool
	report := Run(context.Background(), l, Options{
		Executor: cfg,
		Out:      &out,
		FibLimit: 15,
		Inspect: func(exec *asyncrt.Executor) {
			inspected = true
			if err := testkit.CheckExecutorInvariants(exec.Snapshot()); err != nil {
				t.Errorf("%s: %v", l.Name, err)
			}
		},
	})
	if report.Err == nil && !inspected {
		t.Errorf("%s: executor was never inspected", l.Name)
	}
	return report, out.String()
}

func TestEveryLessonPassesOnVirtualClock(t *testing.T) {
	wantClock := map[string]time.Duration{
		"basics":       time.Second,
		"sleep":        1050 * time.Millisecond,
		"spawn":        2 * time.Second,
		"spawn-join":   2 * time.Second,
		"join":         3 * time.Second,
		"cancellation": 3 * time.Second,
		"failure":      2 * time.Second,
		"biased":       0,
		"else":         3 * time.Second,
		"precondition": 3 * time.Second,
		"timeout":      2 * time.Second,
		"time-timeout": 600 * time.Millisecond,
		"interval":     800 * time.Millisecond,
	}
	for _, l := range All() {
		t.Run(l.Name, func(t *testing.T) {
			report, out := runVirtual(t, l, asyncrt.Config{Seed: 7})
			if report.Err != nil {
				t.Fatalf("lesson failed: %v\n%s", report.Err, out)
			}
			if want, ok := wantClock[l.Name]; ok && report.Clock != want {
				t.Fatalf("virtual clock ended at %s, want %s", report.Clock, want)
			}
			if report.Stats.Spawned != report.Stats.Finished() {
				t.Fatalf("tasks left unfinished: %+v", report.Stats)
			}
			if !strings.Contains(out, l.Title()) {
				t.Fatalf("missing banner in output:\n%s", out)
			}
		})
	}
}

func TestEveryLessonPassesUnderFuzz(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		for _, l := range All() {
			report, out := runVirtual(t, l, asyncrt.Config{Seed: seed, Fuzz: true})
			if report.Err != nil {
				t.Fatalf("seed %d, %s: %v\n%s", seed, l.Name, report.Err, out)
			}
		}
	}
}

func TestSameSeedSameNarration(t *testing.T) {
	l, ok := Lookup("joinset")
	if !ok {
		t.Fatal("joinset lesson missing")
	}
	_, first := runVirtual(t, l, asyncrt.Config{Seed: 42, Fuzz: true})
	_, second := runVirtual(t, l, asyncrt.Config{Seed: 42, Fuzz: true})
	if first != second {
		t.Fatalf("runs diverged:\n%s\n---\n%s", first, second)
	}
}

func TestOneshotOnRealClock(t *testing.T) {
	l, _ := Lookup("oneshot")
	report, out := runVirtual(t, l, asyncrt.Config{TimerMode: asyncrt.TimerModeReal, Seed: 3})
	if report.Err != nil {
		t.Fatalf("real clock run failed: %v\n%s", report.Err, out)
	}
	if report.Wall <= 0 {
		t.Fatalf("wall time not measured: %s", report.Wall)
	}
}

func TestFailingAssertionIsReported(t *testing.T) {
	broken := Lesson{
		Name:    "broken",
		Summary: "always fails",
		Run: func(task *asyncrt.Task, env *Env) error {
			task.Sleep(time.Millisecond)
			return assertf("counter = %d, want %d", 9, 10)
		},
	}
	timer := observ.NewTimer()
	report := Run(context.Background(), broken, Options{Timer: timer})
	if !report.Failed() || !errors.Is(report.Err, ErrAssertion) {
		t.Fatalf("want an assertion error, got %v", report.Err)
	}
	if !strings.Contains(report.Err.Error(), "counter = 9") {
		t.Fatalf("unexpected message: %v", report.Err)
	}
	phases := timer.Report().Phases
	if len(phases) != 1 || phases[0].Name != "broken" || phases[0].Note != "failed" || phases[0].VirtualMS != 1 {
		t.Fatalf("unexpected timing: %+v", phases)
	}
}

func TestRegistry(t *testing.T) {
	names := Names()
	if len(names) != 18 {
		t.Fatalf("want 18 lessons, got %d", len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			t.Fatalf("duplicate lesson %q", name)
		}
		seen[name] = true
		if _, ok := Lookup(name); !ok {
			t.Fatalf("lookup %q failed", name)
		}
	}
	if _, ok := Lookup("async-read"); ok {
		t.Fatal("file lessons are not registered")
	}
	l, _ := Lookup("spawn-join")
	if got := l.Title(); got != "Spawn Join" {
		t.Fatalf("Title() = %q", got)
	}
}

func TestFib(t *testing.T) {
	for n := range uint64(20) {
		if fib(n) != fibIter(n) {
			t.Fatalf("fib(%d) = %d, want %d", n, fib(n), fibIter(n))
		}
	}
	if fibIter(42) != 267914296 {
		t.Fatalf("fibIter(42) = %d", fibIter(42))
	}
}

func TestBiasedElseIsTheFourthStep(t *testing.T) {
	l, _ := Lookup("biased")
	report, out := runVirtual(t, l, asyncrt.Config{})
	if report.Err != nil {
		t.Fatalf("biased failed: %v\n%s", report.Err, out)
	}
	if strings.Count(out, "branch ") != 3 || !strings.Contains(out, "else fired, count = 4") {
		t.Fatalf("unexpected narration:\n%s", out)
	}
}

func TestLessonSeed(t *testing.T) {
	tests := []struct {
		in   uint64
		want int64
	}{
		{0, 1},
		{42, 42},
		{1 << 63, 1 << 62},
		{^uint64(0), 1<<63 - 1},
	}
	for _, tt := range tests {
		if got := lessonSeed(tt.in); got != tt.want {
			t.Errorf("lessonSeed(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
