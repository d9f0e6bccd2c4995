package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strand/internal/config"
	"strand/internal/lessons"
	"strand/internal/observ"
	"strand/internal/trace"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <lesson>...",
		Short: "Run lessons, each on its own executor",
		Long: `Run one or more lessons. Each lesson gets a fresh executor; with the
virtual clock (the default) timers complete instantly and runs are
reproducible for a given seed.`,
		RunE: runLessons,
	}
	flags := cmd.Flags()
	flags.Bool("all", false, "run every lesson")
	flags.String("clock", "virtual", "executor clock (virtual|real)")
	flags.Uint64("seed", 1, "seed for scheduling and lesson randomness")
	flags.Bool("fuzz", false, "pick the next ready task at random")
	flags.Int("jobs", 1, "lessons to run in parallel")
	flags.Int("blocking-workers", 0, "blocking pool size per executor (0 = GOMAXPROCS)")
	flags.Uint64("fib-limit", 30, "largest fibonacci index computed by blocking lessons")
	flags.String("ui", "auto", "live progress view (auto|on|off)")
	flags.String("timings", "off", "print per-lesson timings (off|text|json)")
	flags.Lookup("timings").NoOptDefVal = "text"
	return cmd
}

func runLessons(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	selected, err := selectLessons(args, all)
	if err != nil {
		return err
	}
	timingsValue, err := cmd.Flags().GetString("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	timings, err := readTimingsMode(timingsValue)
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	tracer, stopTracing, err := setupTracing(cmd, settings)
	if err != nil {
		return err
	}
	defer stopTracing()

	plan := runPlan{
		id:       uuid.NewString(),
		lessons:  selected,
		settings: settings,
		tracer:   tracer,
		timer:    observ.NewTimer(),
	}
	out := cmd.OutOrStdout()
	var results []lessonResult
	if settings.UIMode.Live(isTerminal(os.Stdout)) {
		results, err = runPlanWithUI(cmd.Context(), plan, out)
	} else {
		var stream io.Writer
		if settings.Jobs <= 1 {
			stream = out
		}
		results, err = plan.execute(cmd.Context(), stream, runHooks{})
	}
	for i := range results {
		if results[i].output.Len() > 0 {
			if _, werr := results[i].output.WriteTo(out); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}

	failed := printSummary(out, results)
	if tracer.Enabled() {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: run %s\n", plan.id)
	}
	if failed > 0 {
		dumpRing(cmd.ErrOrStderr(), tracer)
	}
	if err := printTimings(out, plan.timer, timings); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lessons failed", failed, len(results))
	}
	return nil
}

// selectLessons resolves lesson names in the order given.
func selectLessons(args []string, all bool) ([]lessons.Lesson, error) {
	switch {
	case all && len(args) > 0:
		return nil, errors.New("pass lesson names or --all, not both")
	case all:
		return lessons.All(), nil
	case len(args) == 0:
		return nil, errors.New("name at least one lesson or pass --all (see strand list)")
	}
	selected := make([]lessons.Lesson, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, name := range args {
		l, ok := lessons.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown lesson %q (available: %s)", name, strings.Join(lessons.Names(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("lesson %q given twice", name)
		}
		seen[name] = true
		selected = append(selected, l)
	}
	return selected, nil
}

type runPlan struct {
	id       string
	lessons  []lessons.Lesson
	settings config.Settings
	tracer   trace.Tracer
	timer    *observ.Timer
}

// runHooks let a front end follow the plan. Every field is optional.
type runHooks struct {
	// tracer returns an extra tracer for one lesson and its release func.
	tracer   func(lesson string) (trace.Tracer, func())
	started  func(lesson string)
	finished func(lessons.Report)
}

type lessonResult struct {
	report lessons.Report
	output bytes.Buffer
}

func (p runPlan) names() []string {
	names := make([]string, len(p.lessons))
	for i, l := range p.lessons {
		names[i] = l.Name
	}
	return names
}

// execute runs the lessons with at most settings.Jobs in flight. Output goes
// to stream when it is non-nil, otherwise into each result's buffer. A
// failing lesson does not stop the others; an interrupt does.
func (p runPlan) execute(ctx context.Context, stream io.Writer, hooks runHooks) ([]lessonResult, error) {
	results := make([]lessonResult, len(p.lessons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.settings.Jobs, 1))
	for i, l := range p.lessons {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var out io.Writer = &results[i].output
			if stream != nil {
				out = stream
			}
			tracer := p.lessonTracer(l.Name)
			if hooks.tracer != nil {
				extra, release := hooks.tracer(l.Name)
				defer release()
				tracer = trace.NewMultiTracer(max(p.settings.TraceLevel, extra.Level()), tracer, extra)
			}
			if hooks.started != nil {
				hooks.started(l.Name)
			}
			report := lessons.Run(gctx, l, lessons.Options{
				Executor: p.settings.ExecutorConfig(tracer),
				Out:      out,
				FibLimit: p.settings.FibLimit,
				Timer:    p.timer,
			})
			results[i].report = report
			if hooks.finished != nil {
				hooks.finished(report)
			}
			if errors.Is(report.Err, context.Canceled) {
				return report.Err
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func (p runPlan) lessonTracer(name string) trace.Tracer {
	if p.tracer == nil || !p.tracer.Enabled() {
		return trace.Nop
	}
	return lessonTracer{Tracer: p.tracer, run: p.id, lesson: name}
}

// printSummary lists each lesson's outcome and returns how many failed.
func printSummary(out io.Writer, results []lessonResult) int {
	failed := 0
	fmt.Fprintln(out)
	for i := range results {
		rep := results[i].report
		if rep.Lesson == "" {
			continue
		}
		status := color.GreenString("ok  ")
		if rep.Failed() {
			status = color.RedString("FAIL")
			failed++
		}
		fmt.Fprintf(out, "%s %-18s clock %8.3fs  wall %8.1fms  tasks %d\n",
			status, rep.Lesson, rep.Clock.Seconds(), observ.Millis(rep.Wall), rep.Stats.Spawned)
		if rep.Failed() {
			fmt.Fprintf(out, "     %s\n", rep.Err)
		}
	}
	return failed
}

type timingsMode string

const (
	timingsOff  timingsMode = "off"
	timingsText timingsMode = "text"
	timingsJSON timingsMode = "json"
)

var timingsModes = []timingsMode{timingsOff, timingsText, timingsJSON}

func readTimingsMode(value string) (timingsMode, error) {
	mode := timingsMode(strings.ToLower(strings.TrimSpace(value)))
	if mode == "" {
		return timingsOff, nil
	}
	if !slices.Contains(timingsModes, mode) {
		return "", fmt.Errorf("invalid --timings value %q (expected off|text|json)", value)
	}
	return mode, nil
}
