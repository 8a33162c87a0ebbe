package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"okroshka/internal/version"
)

// newRootCmd builds the command tree. Every invocation gets fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "okroshka",
		Short:         "IR module loader and validator",
		Long:          `okroshka loads serialized IR modules, validates every cross-table reference and inspects the result`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCheckCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newOpcodesCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("config", "", "path to okroshka.toml (default: search upward from the working directory)")
	flags.String("opcodes", "", "load the instruction set from a TOML specification")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "ring", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "number of events kept in ring mode")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file on exit")
	flags.String("runtime-trace", "", "write a Go runtime execution trace to file")
	return root
}

// main executes the root command and exits with status 1 on failure.
func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		reportError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
