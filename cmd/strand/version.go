package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"strand/internal/config"
	"strand/internal/lessons"
	"strand/internal/version"
)

// versionPayload describes the binary and the executor defaults a plain
// `strand run` would start with under the current strand.toml.
type versionPayload struct {
	Tool            string `json:"tool"`
	Version         string `json:"version"`
	Go              string `json:"go"`
	Lessons         int    `json:"lessons"`
	Clock           string `json:"clock"`
	Seed            uint64 `json:"seed"`
	Fuzz            bool   `json:"fuzz"`
	BlockingWorkers int    `json:"blocking_workers"`
	Config          string `json:"config,omitempty"`
	GitCommit       string `json:"git_commit,omitempty"`
	GitMessage      string `json:"git_message,omitempty"`
	BuildDate       string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var (
		format string
		build  bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the strand build and its executor defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "pretty" && format != "json" {
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			payload := collectVersion(settings, build)
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			renderVersion(cmd.OutOrStdout(), payload)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	cmd.Flags().BoolVar(&build, "build", false, "include git commit, message and build date")
	return cmd
}

func collectVersion(s config.Settings, build bool) versionPayload {
	cfg := s.ExecutorConfig(nil)
	p := versionPayload{
		Tool:            "strand",
		Version:         strings.TrimSpace(version.Version),
		Go:              runtime.Version(),
		Lessons:         len(lessons.All()),
		Clock:           cfg.TimerMode.String(),
		Seed:            cfg.Seed,
		Fuzz:            cfg.Fuzz,
		BlockingWorkers: cfg.Workers(),
		Config:          s.Path,
	}
	if build {
		p.GitCommit = valueOrUnknown(version.GitCommit)
		p.GitMessage = valueOrUnknown(version.GitMessage)
		p.BuildDate = valueOrUnknown(version.BuildDate)
	}
	return p
}

func renderVersion(out io.Writer, p versionPayload) {
	fmt.Fprintf(out, "strand %s (%s), %d lessons\n", p.Version, p.Go, p.Lessons)
	schedule := "fifo"
	if p.Fuzz {
		schedule = "fuzz"
	}
	fmt.Fprintf(out, "executor: %s clock, %s schedule, seed %d, %d blocking workers\n",
		p.Clock, schedule, p.Seed, p.BlockingWorkers)
	if p.Config != "" {
		fmt.Fprintf(out, "config: %s\n", p.Config)
	}
	if p.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s %s\n", p.GitCommit, p.GitMessage)
		fmt.Fprintf(out, "built:  %s\n", p.BuildDate)
	}
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
