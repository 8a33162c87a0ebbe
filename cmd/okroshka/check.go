package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"okroshka/internal/pipeline"
	"okroshka/internal/record"
)

type checkOptions struct {
	jobs        int
	inputFormat string
	ui          string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check FILE|DIR...",
		Short: "Load and validate IR module files",
		Long:  "Load every file (directories are searched for .json/.msgpack/.mpk files) and report whether it forms a valid module.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()
			return runCheck(cmd, s, opts, args)
		},
	}
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "number of files loaded in parallel (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.inputFormat, "input-format", "auto", "document format (auto|json|msgpack)")
	cmd.Flags().StringVar(&opts.ui, "ui", "auto", "progress view (auto|on|off)")
	return cmd
}

func runCheck(cmd *cobra.Command, s *session, opts checkOptions, args []string) error {
	if s.config != nil {
		fileCheck := s.config.Config.Check
		if !cmd.Flags().Changed("jobs") && fileCheck.Jobs > 0 {
			opts.jobs = fileCheck.Jobs
		}
		if !cmd.Flags().Changed("input-format") && fileCheck.InputFormat != "" {
			opts.inputFormat = fileCheck.InputFormat
		}
		if !cmd.Flags().Changed("ui") && fileCheck.UI != "" {
			opts.ui = fileCheck.UI
		}
	}
	if opts.jobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}
	format, err := record.ParseFormat(opts.inputFormat)
	if err != nil {
		return err
	}
	mode, err := readUIMode(opts.ui)
	if err != nil {
		return err
	}
	files, err := pipeline.ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no module files found")
	}

	req := pipeline.Request{Files: files, Format: format, Registry: s.registry, Jobs: opts.jobs}
	out := cmd.OutOrStdout()
	var results []pipeline.Result
	if shouldUseTUI(mode, s.quiet, len(files)) {
		results, err = runCheckWithUI(cmd.Context(), out, "checking modules", req)
	} else {
		results, err = pipeline.Check(cmd.Context(), req)
	}

	printCheckResults(out, results, s.quiet)
	if s.timings {
		printStageTimings(out, results)
	}
	if err != nil {
		failed := 0
		for _, r := range results {
			if !r.OK() {
				failed++
			}
		}
		if failed == 0 {
			return err
		}
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func printCheckResults(out io.Writer, results []pipeline.Result, quiet bool) {
	okLabel := color.New(color.FgGreen, color.Bold).Sprint("ok")
	failLabel := color.New(color.FgRed, color.Bold).Sprint("FAIL")
	for _, r := range results {
		switch {
		case r.File == "":
			// never started, e.g. after cancellation
		case r.OK():
			if !quiet {
				fmt.Fprintf(out, "%s   %s\n", okLabel, r.File)
			}
		default:
			fmt.Fprintf(out, "%s %s: %s: %v\n", failLabel, r.File, r.Failed, r.Err)
		}
	}
}
