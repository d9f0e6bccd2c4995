// Package observ records how long lesson runs take, both on the wall clock
// and on the executor clock they ran against.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase records the duration and metadata of one run.
type Phase struct {
	Name    string
	Start   time.Time
	Dur     time.Duration
	Virtual time.Duration
	Note    string
}

// Timer tracks the execution time of multiple runs. It is safe for
// concurrent use so parallel lesson runs can share one.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index, recording the executor clock reading
// the run ended at.
func (t *Timer) End(idx int, virtual time.Duration, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Virtual = virtual
	p.Note = note
}

// Summary returns a human-readable table of all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	fmt.Fprintf(&b, "  %-20s %10s %12s\n", "", "wall", "clock")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %7.2f ms %9.2f ms", p.Name, p.DurationMS, p.VirtualMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms %9.2f ms\n", "total", report.TotalMS, report.VirtualMS)
	return b.String()
}

// PhaseReport is the serialisable form of one phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	VirtualMS  float64 `json:"virtual_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates every phase.
type Report struct {
	TotalMS   float64       `json:"total_ms"`
	VirtualMS float64       `json:"virtual_ms"`
	Phases    []PhaseReport `json:"phases"`
}

// Report lists phases in the order they began, with totals in milliseconds.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total, virtual time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		virtual += phase.Virtual
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: Millis(phase.Dur),
			VirtualMS:  Millis(phase.Virtual),
			Note:       phase.Note,
		}
	}
	report.TotalMS = Millis(total)
	report.VirtualMS = Millis(virtual)
	return report
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
