package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"okroshka/internal/loader"
	"okroshka/internal/record"
)

type convertOptions struct {
	to          string
	inputFormat string
	validate    bool
}

func newConvertCmd() *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a module document between JSON and MessagePack",
		Long:  "Re-encode a module document. The output format follows --to, or the extension of OUT when --to is not given. Use - as OUT to write to stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			in, out := args[0], args[1]
			inFormat, err := record.ParseFormat(opts.inputFormat)
			if err != nil {
				return err
			}
			outFormat, err := outputFormat(opts.to, out)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			doc, err := loader.Parse(cmd.Context(), data, inFormat)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			if opts.validate {
				if _, err := loader.Load(cmd.Context(), doc, s.registry); err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
			}

			var buf bytes.Buffer
			if err := record.Encode(&buf, doc, outFormat); err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			if !s.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %d bytes)\n", out, outFormat, buf.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.to, "to", "", "output format (json|msgpack)")
	cmd.Flags().StringVar(&opts.inputFormat, "input-format", "auto", "document format (auto|json|msgpack)")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "load and validate the module before writing")
	return cmd
}

// outputFormat resolves the target encoding from --to or the output path.
func outputFormat(to, path string) (record.Format, error) {
	if strings.TrimSpace(to) != "" {
		f, err := record.ParseFormat(to)
		if err != nil {
			return 0, err
		}
		if f == record.FormatAuto {
			return 0, fmt.Errorf("--to must name a concrete format (json|msgpack)")
		}
		return f, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return record.FormatJSON, nil
	case ".msgpack", ".mpk", ".mp":
		return record.FormatMsgpack, nil
	default:
		return 0, fmt.Errorf("cannot infer output format from %q; pass --to", path)
	}
}
