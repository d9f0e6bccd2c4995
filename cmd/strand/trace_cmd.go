package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"strand/internal/trace"
)

func newTraceCmd() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runtime traces",
	}
	showCmd := &cobra.Command{
		Use:   "show [flags] <file.msgpack>",
		Short: "Decode a msgpack trace and print its events",
		Args:  cobra.ExactArgs(1),
		RunE:  runTraceShow,
	}
	showCmd.Flags().String("format", "text", "output format (text|ndjson)")
	showCmd.Flags().Uint64("task", 0, "only events concerning this task id")
	showCmd.Flags().String("name", "", "only events whose name starts with this prefix")
	showCmd.Flags().String("lesson", "", "only events recorded by this lesson")
	showCmd.Flags().String("run", "", "only events recorded by this run id")
	traceCmd.AddCommand(showCmd)
	return traceCmd
}

type traceFilter struct {
	task   uint64
	prefix string
	lesson string
	run    string
}

func (f traceFilter) match(ev *trace.Event) bool {
	if f.task != 0 && ev.Task != f.task {
		return false
	}
	if f.prefix != "" && !strings.HasPrefix(ev.Name, f.prefix) {
		return false
	}
	if f.lesson != "" && ev.Extra["lesson"] != f.lesson {
		return false
	}
	if f.run != "" && ev.Extra["run"] != f.run {
		return false
	}
	return true
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	path := args[0]
	if trace.DetectFormat(path) != trace.FormatMsgpack {
		return fmt.Errorf("%s: only msgpack traces can be decoded (record one with --trace run.msgpack)", path)
	}
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := trace.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	if format != trace.FormatText && format != trace.FormatNDJSON {
		return fmt.Errorf("unsupported output format %q (expected text|ndjson)", formatValue)
	}
	var filter traceFilter
	if filter.task, err = cmd.Flags().GetUint64("task"); err != nil {
		return fmt.Errorf("failed to get task flag: %w", err)
	}
	if filter.prefix, err = cmd.Flags().GetString("name"); err != nil {
		return fmt.Errorf("failed to get name flag: %w", err)
	}
	if filter.lesson, err = cmd.Flags().GetString("lesson"); err != nil {
		return fmt.Errorf("failed to get lesson flag: %w", err)
	}
	if filter.run, err = cmd.Flags().GetString("run"); err != nil {
		return fmt.Errorf("failed to get run flag: %w", err)
	}
	if filter.run != "" {
		if _, err := uuid.Parse(filter.run); err != nil {
			return fmt.Errorf("invalid --run id: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	events, err := trace.ReadMsgpack(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	shown := 0
	for i := range events {
		if !filter.match(&events[i]) {
			continue
		}
		if _, err := out.Write(trace.FormatEvent(&events[i], format)); err != nil {
			return err
		}
		shown++
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d events shown\n", shown, len(events))
	return nil
}
