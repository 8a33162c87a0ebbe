package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"okroshka/internal/ir"
	"okroshka/internal/loader"
	"okroshka/internal/observ"
	"okroshka/internal/opcode"
	"okroshka/internal/record"
)

func newDumpCmd() *cobra.Command {
	var format, inputFormat string
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Load a module and print its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			inFormat, err := record.ParseFormat(inputFormat)
			if err != nil {
				return err
			}
			timer := observ.NewTimer()
			ctx := observ.WithTimer(cmd.Context(), timer)
			m, err := loader.LoadFile(ctx, args[0], inFormat, s.registry)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := renderModule(out, m, s.registry, strings.ToLower(format)); err != nil {
				return err
			}
			if s.timings {
				fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json|spew)")
	cmd.Flags().StringVar(&inputFormat, "input-format", "auto", "document format (auto|json|msgpack)")
	return cmd
}

func renderModule(out io.Writer, m *ir.Module, reg *opcode.Registry, format string) error {
	switch format {
	case "text":
		return ir.DumpModule(out, m, ir.DumpOptions{MnemonicWidth: mnemonicWidth(reg)})
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newModuleView(m))
	case "spew":
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableCapacities: true}
		cfg.Fdump(out, newModuleView(m))
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or spew)", format)
	}
}

func mnemonicWidth(reg *opcode.Registry) int {
	width := 0
	for _, op := range reg.Opcodes() {
		width = max(width, runewidth.StringWidth(op.Mnemonic))
	}
	return width
}

type moduleView struct {
	Globals              []symbolView   `json:"globals"`
	Externals            []symbolView   `json:"externals"`
	Types                []typeView     `json:"types"`
	StringLiterals       []stringView   `json:"string_literals"`
	FunctionDeclarations []declView     `json:"function_declarations"`
	Functions            []functionView `json:"functions"`
	Data                 []dataView     `json:"data"`
	InlineAssembly       []asmView      `json:"inline_assembly"`
}

type symbolView struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type typeView struct {
	ID      ir.TypeID `json:"id"`
	Entries []string  `json:"entries"`
}

type stringView struct {
	ID     ir.StringLiteralID `json:"id"`
	Kind   string             `json:"kind"`
	Public bool               `json:"public"`
	Text   string             `json:"text"`
}

type declView struct {
	ID      ir.FuncDeclID `json:"id"`
	Name    string        `json:"name,omitempty"`
	Params  ir.TypeID     `json:"parameters"`
	Vararg  bool          `json:"vararg"`
	Returns ir.TypeID     `json:"returns"`
}

type functionView struct {
	Name        string        `json:"name"`
	Declaration ir.FuncDeclID `json:"declaration"`
	Locals      ir.TypeID     `json:"locals"`
	Body        []string      `json:"body"`
}

type dataView struct {
	Name     string    `json:"name"`
	Storage  string    `json:"storage"`
	Type     ir.TypeID `json:"type"`
	Elements []string  `json:"elements"`
}

type asmView struct {
	ID          ir.InlineAsmID `json:"id"`
	Global      bool           `json:"global"`
	Template    string         `json:"template"`
	Parameters  []asmParamView `json:"parameters"`
	Clobbers    []string       `json:"clobbers"`
	JumpTargets []asmJumpView  `json:"jump_targets"`
}

type asmParamView struct {
	ID         ir.AsmParamID `json:"id"`
	Aliases    []string      `json:"aliases"`
	Class      string        `json:"class"`
	Constraint string        `json:"constraint"`
	Types      []string      `json:"types"`
}

type asmJumpView struct {
	ID       ir.AsmJumpTargetID `json:"id"`
	Aliases  []string           `json:"aliases"`
	Function string             `json:"function"`
	Offset   int                `json:"offset"`
}

// newModuleView projects m onto plain sorted tables.
func newModuleView(m *ir.Module) moduleView {
	var v moduleView
	for _, sym := range slices.SortedFunc(m.Globals(), bySymbol) {
		v.Globals = append(v.Globals, symbolView{Name: sym.Name, Kind: sym.Kind.String()})
	}
	for _, sym := range slices.SortedFunc(m.Externals(), bySymbol) {
		v.Externals = append(v.Externals, symbolView{Name: sym.Name, Kind: sym.Kind.String()})
	}
	for _, t := range slices.SortedFunc(m.Types(), func(a, b ir.Type) int { return cmp.Compare(a.ID, b.ID) }) {
		tv := typeView{ID: t.ID}
		for _, e := range t.Entries() {
			tv.Entries = append(tv.Entries, e.String())
		}
		v.Types = append(v.Types, tv)
	}
	for _, s := range slices.SortedFunc(m.StringLiterals(), func(a, b ir.StringLiteral) int { return cmp.Compare(a.ID, b.ID) }) {
		text, err := s.Text()
		if err != nil {
			text = "<invalid>"
		}
		v.StringLiterals = append(v.StringLiterals, stringView{ID: s.ID, Kind: s.Kind.String(), Public: s.Public, Text: text})
	}
	for _, d := range slices.SortedFunc(m.FunctionDeclarations(), func(a, b ir.FunctionDeclaration) int { return cmp.Compare(a.ID, b.ID) }) {
		v.FunctionDeclarations = append(v.FunctionDeclarations, declView{ID: d.ID, Name: d.Name, Params: d.Params, Vararg: d.Vararg, Returns: d.Result})
	}
	for _, f := range slices.SortedFunc(m.Functions(), func(a, b ir.Function) int { return strings.Compare(a.Name, b.Name) }) {
		fv := functionView{Name: f.Name, Declaration: f.Declaration, Locals: f.Locals, Body: make([]string, 0, f.Body.Len())}
		for _, in := range f.Body.Instructions() {
			fv.Body = append(fv.Body, in.String())
		}
		v.Functions = append(v.Functions, fv)
	}
	for _, d := range slices.SortedFunc(m.DataObjects(), func(a, b ir.DataObject) int { return strings.Compare(a.Name, b.Name) }) {
		dv := dataView{Name: d.Name, Storage: d.Storage.String(), Type: d.Type, Elements: make([]string, 0, d.Len())}
		for _, e := range d.Elements() {
			dv.Elements = append(dv.Elements, e.String())
		}
		v.Data = append(v.Data, dv)
	}
	for _, a := range slices.SortedFunc(m.InlineAssemblies(), func(a, b *ir.InlineAssembly) int { return cmp.Compare(a.ID, b.ID) }) {
		av := asmView{ID: a.ID, Global: a.Global, Template: a.Template, Clobbers: a.Clobbers()}
		for _, p := range a.Parameters() {
			pv := asmParamView{ID: p.ID, Aliases: p.Aliases, Class: p.Class.String(), Constraint: p.Constraint.String()}
			for _, ref := range p.TypeRefs() {
				pv.Types = append(pv.Types, ref.String())
			}
			av.Parameters = append(av.Parameters, pv)
		}
		for _, t := range a.JumpTargets() {
			av.JumpTargets = append(av.JumpTargets, asmJumpView{ID: t.ID, Aliases: t.Aliases, Function: t.Function, Offset: t.Offset})
		}
		v.InlineAssembly = append(v.InlineAssembly, av)
	}
	return v
}

func bySymbol(a, b ir.Symbol) int { return strings.Compare(a.Name, b.Name) }
