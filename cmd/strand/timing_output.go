package main

import (
	"encoding/json"
	"fmt"
	"io"

	"strand/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer, mode timingsMode) error {
	if out == nil || timer == nil {
		return nil
	}
	switch mode {
	case timingsText:
		_, err := fmt.Fprint(out, timer.Summary())
		return err
	case timingsJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(timer.Report())
	default:
		return nil
	}
}
