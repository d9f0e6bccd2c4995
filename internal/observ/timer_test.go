package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	a := timer.Begin("sleep")
	b := timer.Begin("mutex")
	timer.End(a, time.Second, "")
	timer.End(b, 250*time.Millisecond, "fuzz")
	timer.End(99, time.Hour, "ignored")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("want 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].VirtualMS != 1000 || report.Phases[1].VirtualMS != 250 {
		t.Fatalf("virtual durations: %+v", report.Phases)
	}
	if report.VirtualMS != 1250 {
		t.Fatalf("virtual total: %v", report.VirtualMS)
	}
	summary := timer.Summary()
	if !strings.Contains(summary, "sleep") || !strings.Contains(summary, "// fuzz") {
		t.Fatalf("summary missing rows:\n%s", summary)
	}
}

func TestTimerConcurrentUse(t *testing.T) {
	timer := NewTimer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx := timer.Begin("job")
			timer.End(idx, time.Millisecond, "")
		}()
	}
	wg.Wait()
	if got := len(timer.Report().Phases); got != 8 {
		t.Fatalf("want 8 phases, got %d", got)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || len(r.Phases) != 0 {
		t.Fatalf("empty timer report: %+v", r)
	}
}
