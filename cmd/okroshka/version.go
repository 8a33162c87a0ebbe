package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"okroshka/internal/opcode"
	"okroshka/internal/version"
)

type versionInfo struct {
	Version        string
	GitCommit      string
	GitMessage     string
	BuildDate      string
	OpcodeRevision string
	OpcodeCount    int
}

type versionOptions struct {
	format      string
	showHash    bool
	showMessage bool
	showDate    bool
}

type versionPayload struct {
	Tool           string `json:"tool"`
	Version        string `json:"version"`
	Tagline        string `json:"tagline"`
	OpcodeRevision string `json:"opcode_revision"`
	OpcodeCount    int    `json:"opcode_count"`
	GitCommit      string `json:"git_commit,omitempty"`
	GitMessage     string `json:"git_message,omitempty"`
	BuildDate      string `json:"build_date,omitempty"`
}

const versionTagline = "cold soup, checked references"

func newVersionCmd() *cobra.Command {
	var (
		format                          string
		showHash, showMessage, showDate bool
		showFull                        bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show okroshka build fingerprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			opts := versionOptions{
				format:      strings.ToLower(format),
				showHash:    showHash || showFull,
				showMessage: showMessage || showFull,
				showDate:    showDate || showFull,
			}
			switch opts.format {
			case "pretty", "json":
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			info := collectVersionInfo(s.registry)
			if opts.format == "json" {
				return renderVersionJSON(cmd.OutOrStdout(), info, opts)
			}
			renderVersionPretty(cmd.OutOrStdout(), info, opts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHash, "hash", false, "include git commit hash")
	cmd.Flags().BoolVar(&showMessage, "message", false, "include git commit message")
	cmd.Flags().BoolVar(&showDate, "date", false, "include build timestamp")
	cmd.Flags().BoolVar(&showFull, "full", false, "show every recorded bit of build metadata")
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

func collectVersionInfo(reg *opcode.Registry) versionInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	return versionInfo{
		Version:        v,
		GitCommit:      strings.TrimSpace(version.GitCommit),
		GitMessage:     strings.TrimSpace(version.GitMessage),
		BuildDate:      strings.TrimSpace(version.BuildDate),
		OpcodeRevision: reg.Revision(),
		OpcodeCount:    reg.Len(),
	}
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) {
	fmt.Fprintf(out, "okroshka %s: %s\n", version.Colorize(info.Version), versionTagline)
	fmt.Fprintf(out, "opcodes: revision %s, %d instructions\n", valueOrUnknown(info.OpcodeRevision), info.OpcodeCount)
	if opts.showHash {
		fmt.Fprintf(out, "commit:  %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.showMessage {
		fmt.Fprintf(out, "message: %s\n", valueOrUnknown(info.GitMessage))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:   %s\n", valueOrUnknown(info.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{
		Tool:           "okroshka",
		Version:        info.Version,
		Tagline:        versionTagline,
		OpcodeRevision: info.OpcodeRevision,
		OpcodeCount:    info.OpcodeCount,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showMessage {
		payload.GitMessage = valueOrUnknown(info.GitMessage)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
