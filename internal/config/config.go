// Package config loads strand.toml, the optional settings file picked up
// from the working directory or any of its parents.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"strand/internal/asyncrt"
	"strand/internal/trace"
)

// FileName is the settings file looked up by Discover.
const FileName = "strand.toml"

// Settings are the resolved values every command starts from. Flags given
// on the command line override them.
type Settings struct {
	Path string

	Clock           asyncrt.TimerMode
	Fuzz            bool
	Seed            uint64
	BlockingWorkers int

	TraceLevel     trace.Level
	TraceMode      trace.StorageMode
	TraceOutput    string
	TraceFormat    trace.Format
	TraceRingSize  int
	TraceHeartbeat time.Duration

	UIMode UIMode

	Jobs     int
	FibLimit uint64
}

// Default returns the settings used when no file is found.
func Default() Settings {
	return Settings{
		Clock:         asyncrt.TimerModeVirtual,
		Seed:          1,
		TraceLevel:    trace.LevelOff,
		TraceMode:     trace.ModeStream,
		TraceOutput:   "-",
		TraceFormat:   trace.FormatAuto,
		TraceRingSize: 4096,
		UIMode:        UIAuto,
		Jobs:          1,
		FibLimit:      30,
	}
}

type fileConfig struct {
	Executor executorSection `toml:"executor"`
	Trace    traceSection    `toml:"trace"`
	UI       uiSection       `toml:"ui"`
	Lessons  lessonsSection  `toml:"lessons"`
}

type executorSection struct {
	Clock           string `toml:"clock"`
	Fuzz            bool   `toml:"fuzz"`
	Seed            int64  `toml:"seed"`
	BlockingWorkers int64  `toml:"blocking_workers"`
}

type traceSection struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Output    string `toml:"output"`
	Format    string `toml:"format"`
	RingSize  int64  `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

type uiSection struct {
	Mode string `toml:"mode"`
}

type lessonsSection struct {
	Jobs     int64 `toml:"jobs"`
	FibLimit int64 `toml:"fib_limit"`
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest settings file above startDir, or the defaults
// when there is none.
func Discover(startDir string) (Settings, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Settings{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads one settings file. Keys it leaves out keep their defaults;
// unknown keys are an error.
func Load(path string) (Settings, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Settings{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	s := Default()
	s.Path = path
	if err := s.apply(meta, &cfg); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) apply(meta toml.MetaData, cfg *fileConfig) error {
	var err error
	if meta.IsDefined("executor", "clock") {
		if s.Clock, err = ParseClock(cfg.Executor.Clock); err != nil {
			return fmt.Errorf("[executor].clock: %w", err)
		}
	}
	if meta.IsDefined("executor", "fuzz") {
		s.Fuzz = cfg.Executor.Fuzz
	}
	if meta.IsDefined("executor", "seed") {
		if s.Seed, err = safecast.Conv[uint64](cfg.Executor.Seed); err != nil {
			return fmt.Errorf("[executor].seed: %w", err)
		}
	}
	if meta.IsDefined("executor", "blocking_workers") {
		if s.BlockingWorkers, err = nonNegative(cfg.Executor.BlockingWorkers); err != nil {
			return fmt.Errorf("[executor].blocking_workers: %w", err)
		}
	}
	if meta.IsDefined("trace", "level") {
		if s.TraceLevel, err = trace.ParseLevel(cfg.Trace.Level); err != nil {
			return fmt.Errorf("[trace].level: %w", err)
		}
	}
	if meta.IsDefined("trace", "mode") {
		if s.TraceMode, err = trace.ParseMode(cfg.Trace.Mode); err != nil {
			return fmt.Errorf("[trace].mode: %w", err)
		}
	}
	if meta.IsDefined("trace", "output") {
		s.TraceOutput = cfg.Trace.Output
	}
	if meta.IsDefined("trace", "format") {
		if s.TraceFormat, err = trace.ParseFormat(cfg.Trace.Format); err != nil {
			return fmt.Errorf("[trace].format: %w", err)
		}
	}
	if meta.IsDefined("trace", "ring_size") {
		if s.TraceRingSize, err = nonNegative(cfg.Trace.RingSize); err != nil {
			return fmt.Errorf("[trace].ring_size: %w", err)
		}
	}
	if meta.IsDefined("trace", "heartbeat") {
		if s.TraceHeartbeat, err = time.ParseDuration(cfg.Trace.Heartbeat); err != nil {
			return fmt.Errorf("[trace].heartbeat: %w", err)
		}
	}
	if meta.IsDefined("ui", "mode") {
		if s.UIMode, err = ParseUIMode(cfg.UI.Mode); err != nil {
			return fmt.Errorf("[ui].mode: %w", err)
		}
	}
	if meta.IsDefined("lessons", "jobs") {
		if s.Jobs, err = nonNegative(cfg.Lessons.Jobs); err != nil {
			return fmt.Errorf("[lessons].jobs: %w", err)
		}
	}
	if meta.IsDefined("lessons", "fib_limit") {
		if s.FibLimit, err = safecast.Conv[uint64](cfg.Lessons.FibLimit); err != nil {
			return fmt.Errorf("[lessons].fib_limit: %w", err)
		}
	}
	return nil
}

func nonNegative(v int64) (int, error) {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

// ParseClock maps "virtual" or "real" to a timer mode.
func ParseClock(s string) (asyncrt.TimerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "virtual":
		return asyncrt.TimerModeVirtual, nil
	case "real":
		return asyncrt.TimerModeReal, nil
	default:
		return asyncrt.TimerModeVirtual, fmt.Errorf("invalid clock %q (expected: virtual|real)", s)
	}
}

// UIMode selects whether `strand run` shows the live view.
type UIMode string

const (
	UIAuto UIMode = "auto"
	UIOn   UIMode = "on"
	UIOff  UIMode = "off"
)

// ParseUIMode validates a live view mode.
func ParseUIMode(s string) (UIMode, error) {
	switch mode := UIMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case UIAuto, UIOn, UIOff:
		return mode, nil
	case "":
		return UIAuto, nil
	default:
		return "", fmt.Errorf("invalid ui mode %q (expected: auto|on|off)", s)
	}
}

// Live reports whether the live view is used. Auto defers to whether
// output goes to a terminal.
func (m UIMode) Live(terminal bool) bool {
	switch m {
	case UIOn:
		return true
	case UIOff:
		return false
	default:
		return terminal
	}
}

// ExecutorConfig builds the runtime configuration for one executor.
func (s Settings) ExecutorConfig(tracer trace.Tracer) asyncrt.Config {
	return asyncrt.Config{
		Fuzz:            s.Fuzz,
		Seed:            s.Seed,
		TimerMode:       s.Clock,
		BlockingWorkers: s.BlockingWorkers,
		Tracer:          tracer,
	}
}

// TraceConfig builds the tracer configuration.
func (s Settings) TraceConfig() trace.Config {
	return trace.Config{
		Level:      s.TraceLevel,
		Mode:       s.TraceMode,
		Format:     s.TraceFormat,
		OutputPath: s.TraceOutput,
		RingSize:   s.TraceRingSize,
		Heartbeat:  s.TraceHeartbeat,
	}
}
