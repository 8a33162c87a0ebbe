package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"okroshka/internal/opcode"
	"okroshka/internal/prof"
	"okroshka/internal/trace"
)

// session carries the settings shared by every command after flags and the
// config file have been merged.
type session struct {
	config   *loadedConfig
	registry *opcode.Registry
	tracer   trace.Tracer
	profile  *prof.Session
	useColor bool
	quiet    bool
	timings  bool
	errOut   io.Writer
}

func openSession(cmd *cobra.Command) (*session, error) {
	pf := cmd.Root().PersistentFlags()

	configPath, err := pf.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := resolveConfig(configPath, ".")
	if err != nil {
		return nil, err
	}
	s := &session{config: cfg, errOut: cmd.ErrOrStderr()}

	colorFlag, err := pf.GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	if s.useColor, err = resolveColor(colorFlag); err != nil {
		return nil, err
	}
	color.NoColor = !s.useColor

	if s.quiet, err = pf.GetBool("quiet"); err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.timings, err = pf.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	specPath, err := pf.GetString("opcodes")
	if err != nil {
		return nil, fmt.Errorf("failed to get opcodes flag: %w", err)
	}
	if specPath == "" {
		specPath = cfg.opcodeSpecPath()
	}
	if specPath != "" {
		if s.registry, err = opcode.LoadFile(specPath); err != nil {
			return nil, err
		}
	} else {
		s.registry = opcode.Default()
	}

	if s.tracer, err = setupTracing(cmd, cfg); err != nil {
		return nil, err
	}

	var pcfg prof.Config
	if pcfg.CPU, err = pf.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if pcfg.Mem, err = pf.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if pcfg.Trace, err = pf.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if pcfg.Enabled() {
		if s.profile, err = prof.Start(pcfg); err != nil {
			s.close(nil)
			return nil, err
		}
	}
	return s, nil
}

// close stops profiling and flushes the tracer. When the command failed,
// events held in a ring buffer are written to stderr.
func (s *session) close(cmdErr error) {
	if s == nil {
		return
	}
	if err := s.profile.Stop(); err != nil {
		fmt.Fprintf(s.errOut, "profile: %v\n", err)
	}
	if s.tracer == nil {
		return
	}
	if cmdErr != nil {
		if ring, ok := trace.Ring(s.tracer); ok && len(ring.Snapshot()) > 0 {
			fmt.Fprintln(s.errOut, "trace (most recent events):")
			if err := ring.Dump(s.errOut, trace.FormatText); err != nil {
				fmt.Fprintf(s.errOut, "trace: dump error: %v\n", err)
			}
		}
	}
	if err := s.tracer.Flush(); err != nil {
		fmt.Fprintf(s.errOut, "trace: flush error: %v\n", err)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(s.errOut, "trace: close error: %v\n", err)
	}
}

// stringSetting returns the flag value when it was set explicitly, else the
// config value when non-empty, else the flag default.
func stringSetting(flags interface {
	GetString(string) (string, error)
	Changed(string) bool
}, name, fromConfig string) (string, error) {
	value, err := flags.GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !flags.Changed(name) && strings.TrimSpace(fromConfig) != "" {
		return fromConfig, nil
	}
	return value, nil
}

func resolveColor(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

func reportError(w io.Writer, err error) {
	label := color.New(color.FgRed, color.Bold).Sprint("error:")
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		for _, e := range multi.Unwrap() {
			fmt.Fprintln(w, label, e)
		}
		return
	}
	fmt.Fprintln(w, label, err)
}
