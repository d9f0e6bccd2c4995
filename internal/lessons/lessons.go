// Package lessons holds the small runnable programs that walk through the
// runtime one feature at a time: sleeping, spawning, joining, selecting,
// timeouts, intervals, join sets, mutexes and channels.
//
// Every lesson is a task body. It narrates what happens on the executor
// clock and returns an error wrapping ErrAssertion when the behaviour it
// demonstrates does not hold.
package lessons

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"strand/internal/asyncrt"
)

// ErrAssertion marks a lesson whose demonstrated behaviour did not hold.
var ErrAssertion = errors.New("lesson assertion failed")

var (
	clockColor = color.New(color.Faint)
	nameColor  = color.New(color.FgCyan)
	titleColor = color.New(color.Bold)
)

// Lesson is one runnable example.
type Lesson struct {
	Name    string
	Summary string
	Run     func(t *asyncrt.Task, env *Env) error
}

// Title is the display form of the lesson name, e.g. "Spawn Join".
func (l Lesson) Title() string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(l.Name, "-", " "))
}

// Env is what a lesson body may use besides its task.
type Env struct {
	Out      io.Writer
	Rand     *rand.Rand
	FibLimit uint64
}

// Say prints one narration line stamped with the executor clock.
func (e *Env) Say(t *asyncrt.Task, format string, args ...any) {
	out := e.Out
	if out == nil {
		out = io.Discard
	}
	stamp := clockColor.Sprintf("[%8.3fs]", t.Now().Duration().Seconds())
	who := t.Name()
	if who == "" {
		who = fmt.Sprintf("t%d", t.ID())
	}
	fmt.Fprintf(out, "%s %s %s\n", stamp, nameColor.Sprintf("%-10s", who), fmt.Sprintf(format, args...))
}

// randomMillis mimics a random u8 number of milliseconds.
func (e *Env) randomMillis() time.Duration {
	return time.Duration(e.Rand.Intn(256)) * time.Millisecond
}

func assertf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAssertion, fmt.Sprintf(format, args...))
}

var registry = []Lesson{
	{Name: "basics", Summary: "print, sleep one second, print again", Run: basics},
	{Name: "sleep", Summary: "a background ticker runs while main sleeps", Run: sleepLesson},
	{Name: "spawn", Summary: "spawned tasks finish in deadline order", Run: spawnLesson},
	{Name: "spawn-join", Summary: "await every spawned handle", Run: spawnJoin},
	{Name: "join", Summary: "run bodies concurrently inline and wait for all", Run: joinLesson},
	{Name: "cancellation", Summary: "the select loser is cancelled", Run: cancellation},
	{Name: "failure", Summary: "a panicking task does not take its siblings down", Run: failure},
	{Name: "biased", Summary: "biased select with guards counts to four", Run: biased},
	{Name: "else", Summary: "select falls back to else when every branch is disabled", Run: elseLesson},
	{Name: "precondition", Summary: "a guard decides which handle can win", Run: precondition},
	{Name: "timeout", Summary: "a five second operation under a two second limit", Run: timeoutLesson},
	{Name: "time-timeout", Summary: "the same operation under a short and a long limit", Run: timeTimeout},
	{Name: "interval", Summary: "five ticks on a 200ms grid", Run: intervalLesson},
	{Name: "joinset", Summary: "collect nine sleepers in completion order", Run: joinsetLesson},
	{Name: "joinset-blocking", Summary: "fibonacci numbers on the blocking pool", Run: joinsetBlocking},
	{Name: "mutex", Summary: "ten tasks increment a shared counter", Run: mutexLesson},
	{Name: "mpsc", Summary: "forty producers feed one bounded channel", Run: mpscLesson},
	{Name: "oneshot", Summary: "a worker reports back over a oneshot channel", Run: oneshotLesson},
}

// All returns every lesson in presentation order.
func All() []Lesson {
	return slices.Clone(registry)
}

// Names lists lesson names in presentation order.
func Names() []string {
	names := make([]string, len(registry))
	for i, l := range registry {
		names[i] = l.Name
	}
	return names
}

// Lookup finds a lesson by name.
func Lookup(name string) (Lesson, bool) {
	for _, l := range registry {
		if l.Name == name {
			return l, true
		}
	}
	return Lesson{}, false
}
