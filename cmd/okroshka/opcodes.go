package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"okroshka/internal/opcode"
)

type opcodeRow struct {
	Tag      uint16 `json:"tag"`
	ID       string `json:"id"`
	Mnemonic string `json:"mnemonic"`
	Code     uint64 `json:"code"`
	Shape    string `json:"shape"`
}

type opcodesPayload struct {
	Revision string      `json:"revision"`
	Opcodes  []opcodeRow `json:"opcodes"`
}

func newOpcodesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "opcodes",
		Short: "List the instruction set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			switch strings.ToLower(format) {
			case "text":
				return renderOpcodesText(cmd.OutOrStdout(), s.registry)
			case "json":
				return renderOpcodesJSON(cmd.OutOrStdout(), s.registry)
			default:
				return fmt.Errorf("unsupported format %q (must be text or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json)")
	return cmd
}

func opcodeRows(reg *opcode.Registry) []opcodeRow {
	ops := reg.Opcodes()
	rows := make([]opcodeRow, len(ops))
	for i, op := range ops {
		rows[i] = opcodeRow{Tag: op.Tag, ID: op.ID, Mnemonic: op.Mnemonic, Code: op.Code, Shape: op.Shape.String()}
	}
	return rows
}

func renderOpcodesText(out io.Writer, reg *opcode.Registry) error {
	rows := opcodeRows(reg)
	mnWidth, idWidth := len("MNEMONIC"), len("ID")
	for _, r := range rows {
		mnWidth = max(mnWidth, runewidth.StringWidth(r.Mnemonic))
		idWidth = max(idWidth, runewidth.StringWidth(r.ID))
	}
	if _, err := fmt.Fprintf(out, "%4s  %-6s  %s  %s  %s\n", "TAG", "CODE",
		runewidth.FillRight("MNEMONIC", mnWidth), runewidth.FillRight("ID", idWidth), "SHAPE"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(out, "%4d  0x%04x  %s  %s  %s\n", r.Tag, r.Code,
			runewidth.FillRight(r.Mnemonic, mnWidth), runewidth.FillRight(r.ID, idWidth), r.Shape); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "\n%d opcodes, revision %s\n", len(rows), reg.Revision())
	return err
}

func renderOpcodesJSON(out io.Writer, reg *opcode.Registry) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(opcodesPayload{Revision: reg.Revision(), Opcodes: opcodeRows(reg)})
}
