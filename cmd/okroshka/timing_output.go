package main

import (
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-runewidth"

	"okroshka/internal/observ"
	"okroshka/internal/pipeline"
)

// printStageTimings writes one line per file with the duration of every
// stage that ran, followed by the aggregated loader phase report.
func printStageTimings(out io.Writer, results []pipeline.Result) {
	if out == nil || len(results) == 0 {
		return
	}
	width := 0
	for _, r := range results {
		width = max(width, runewidth.StringWidth(r.File))
	}
	reports := make([]observ.Report, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(out, "%s ", runewidth.FillRight(r.File, width))
		for _, stage := range pipeline.Stages {
			if r.Timings.Has(stage) {
				fmt.Fprintf(out, " %s %.1f ms", stage, toMillis(r.Timings.Duration(stage)))
			}
		}
		fmt.Fprintf(out, "  total %.1f ms\n", toMillis(r.Timings.Sum()))
		reports = append(reports, r.Report)
	}
	if summary := observ.Aggregate(reports...).Summary(); summary != "" {
		fmt.Fprintln(out)
		fmt.Fprint(out, summary)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
