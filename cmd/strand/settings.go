package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"strand/internal/config"
	"strand/internal/trace"
)

// loadSettings reads strand.toml (from --config or discovered upward) and
// applies every flag the user set explicitly on top of it.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var s config.Settings
	if path != "" {
		s, err = config.Load(path)
	} else {
		s, err = config.Discover(".")
	}
	if err != nil {
		return config.Settings{}, err
	}
	if err := applyFlagOverrides(flags, &s); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, s *config.Settings) error {
	var err error
	if flags.Changed("trace") {
		if s.TraceOutput, err = flags.GetString("trace"); err != nil {
			return err
		}
		if s.TraceLevel == trace.LevelOff && !flags.Changed("trace-level") {
			s.TraceLevel = trace.LevelDetail
		}
	}
	if flags.Changed("trace-level") {
		v, _ := flags.GetString("trace-level")
		if s.TraceLevel, err = trace.ParseLevel(v); err != nil {
			return fmt.Errorf("invalid --trace-level: %w", err)
		}
	}
	if flags.Changed("trace-mode") {
		v, _ := flags.GetString("trace-mode")
		if s.TraceMode, err = trace.ParseMode(v); err != nil {
			return fmt.Errorf("invalid --trace-mode: %w", err)
		}
	}
	if flags.Changed("trace-format") {
		v, _ := flags.GetString("trace-format")
		if s.TraceFormat, err = trace.ParseFormat(v); err != nil {
			return fmt.Errorf("invalid --trace-format: %w", err)
		}
	}
	if flags.Changed("trace-ring-size") {
		if s.TraceRingSize, err = flags.GetInt("trace-ring-size"); err != nil {
			return err
		}
	}
	if flags.Changed("trace-heartbeat") {
		if s.TraceHeartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
			return err
		}
	}
	if flags.Changed("clock") {
		v, _ := flags.GetString("clock")
		if s.Clock, err = config.ParseClock(v); err != nil {
			return fmt.Errorf("invalid --clock: %w", err)
		}
	}
	if flags.Changed("seed") {
		if s.Seed, err = flags.GetUint64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("fuzz") {
		if s.Fuzz, err = flags.GetBool("fuzz"); err != nil {
			return err
		}
	}
	if flags.Changed("jobs") {
		if s.Jobs, err = flags.GetInt("jobs"); err != nil {
			return err
		}
	}
	if flags.Changed("blocking-workers") {
		if s.BlockingWorkers, err = flags.GetInt("blocking-workers"); err != nil {
			return err
		}
	}
	if flags.Changed("fib-limit") {
		if s.FibLimit, err = flags.GetUint64("fib-limit"); err != nil {
			return err
		}
	}
	if flags.Changed("ui") {
		v, _ := flags.GetString("ui")
		if s.UIMode, err = config.ParseUIMode(v); err != nil {
			return fmt.Errorf("invalid --ui: %w", err)
		}
	}
	return nil
}
