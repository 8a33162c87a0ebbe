package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"okroshka/internal/trace"
)

// setupTracing builds the tracer from the trace flags, falling back to the
// [trace] table of the config file for flags left at their defaults, and
// attaches it to the command context.
func setupTracing(cmd *cobra.Command, cfg *loadedConfig) (trace.Tracer, error) {
	pf := cmd.Root().PersistentFlags()
	var fileTrace traceConfig
	if cfg != nil {
		fileTrace = cfg.Config.Trace
	}

	traceOutput, err := stringSetting(pf, "trace", fileTrace.Output)
	if err != nil {
		return nil, err
	}
	levelStr, err := stringSetting(pf, "trace-level", fileTrace.Level)
	if err != nil {
		return nil, err
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	// An explicit output file implies the caller wants the stream.
	if traceOutput != "" && !pf.Changed("trace-mode") {
		mode = trace.ModeStream
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return tracer, nil
}
