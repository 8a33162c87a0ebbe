package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// MnemonicWidth pads instruction mnemonics to a fixed column; 0 disables padding.
	MnemonicWidth int
}

// DumpModule writes a human-readable representation of m. Tables are printed
// in key order.
func DumpModule(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	bw := bufio.NewWriter(w)

	dumpSymbols(bw, "globals", m.globals)
	dumpSymbols(bw, "externals", m.externals)

	fmt.Fprintf(bw, "types=%d\n", len(m.types))
	for _, id := range sortedKeys(m.types) {
		t := m.types[id]
		parts := make([]string, 0, t.Len())
		for _, e := range t.entries {
			parts = append(parts, e.String())
		}
		fmt.Fprintf(bw, "  T%d: %s\n", id, strings.Join(parts, ", "))
	}

	fmt.Fprintf(bw, "strings=%d\n", len(m.strings))
	for _, id := range sortedKeys(m.strings) {
		s := m.strings[id]
		text, err := s.Text()
		if err != nil {
			text = "<invalid>"
		}
		vis := ""
		if s.Public {
			vis = " public"
		}
		fmt.Fprintf(bw, "  S%d: %s%s %q\n", id, s.Kind, vis, text)
	}

	fmt.Fprintf(bw, "decls=%d\n", len(m.funcDecls))
	for _, id := range sortedKeys(m.funcDecls) {
		d := m.funcDecls[id]
		name := d.Name
		if name == "" {
			name = "_"
		}
		va := ""
		if d.Vararg {
			va = " vararg"
		}
		fmt.Fprintf(bw, "  D%d: %s params=T%d result=T%d%s\n", id, name, d.Params, d.Result, va)
	}

	fmt.Fprintf(bw, "data=%d\n", len(m.data))
	for _, name := range sortedKeys(m.data) {
		d := m.data[name]
		fmt.Fprintf(bw, "  %s: %s T%d\n", name, d.Storage, d.Type)
		for i, e := range d.elements {
			fmt.Fprintf(bw, "    [%d] %s\n", i, e)
		}
	}

	fmt.Fprintf(bw, "asm=%d\n", len(m.inlineAsm))
	for _, id := range sortedKeys(m.inlineAsm) {
		dumpInlineAssembly(bw, m.inlineAsm[id])
	}

	fmt.Fprintf(bw, "funcs=%d\n", len(m.funcs))
	for _, name := range sortedKeys(m.funcs) {
		dumpFunc(bw, m.funcs[name], opts)
	}
	return bw.Flush()
}

func dumpSymbols(w io.Writer, title string, syms map[string]Symbol) {
	if len(syms) == 0 {
		return
	}
	fmt.Fprintf(w, "%s=%d\n", title, len(syms))
	for _, name := range sortedKeys(syms) {
		fmt.Fprintf(w, "  %s %s\n", syms[name].Kind, name)
	}
}

func dumpInlineAssembly(w io.Writer, a *InlineAssembly) {
	scope := "local"
	if a.Global {
		scope = "global"
	}
	fmt.Fprintf(w, "  A%d: %s %q\n", a.ID, scope, a.Template)
	for _, p := range a.Parameters() {
		fmt.Fprintf(w, "    param %d %s [%s] %s %s\n", p.ID, p.Class, strings.Join(p.Aliases, ","), p.Constraint, paramOperands(p))
	}
	for _, t := range a.JumpTargets() {
		fmt.Fprintf(w, "    target %d [%s] %s@%d\n", t.ID, strings.Join(t.Aliases, ","), t.Function, t.Offset)
	}
	if c := a.Clobbers(); len(c) > 0 {
		fmt.Fprintf(w, "    clobbers %s\n", strings.Join(c, ","))
	}
}

// paramOperands renders the fields meaningful for the parameter's class.
func paramOperands(p *AsmParameter) string {
	switch p.Class {
	case AsmReadStore:
		return fmt.Sprintf("from=%s slot=%d to=%s slot=%d", p.Type, p.Slot, p.ToType, p.ToSlot)
	case AsmImmediateConstant:
		return fmt.Sprintf("%s value=%d", p.Type, p.Value)
	case AsmImmediateIdentifierBased:
		return fmt.Sprintf("%s value=%d symbol=%q", p.Type, p.Value, p.Symbol)
	case AsmImmediateLiteralBased:
		return fmt.Sprintf("%s value=%d literal=string#%d", p.Type, p.Value, p.Literal)
	default:
		return fmt.Sprintf("%s slot=%d", p.Type, p.Slot)
	}
}

func dumpFunc(w io.Writer, f Function, opts DumpOptions) {
	fmt.Fprintf(w, "\nfn %s: decl=D%d locals=T%d\n", f.Name, f.Declaration, f.Locals)
	for i, in := range f.Body.instrs {
		text := in.String()
		if opts.MnemonicWidth > 0 {
			mn := in.Mnemonic()
			text = runewidth.FillRight(mn, opts.MnemonicWidth) + strings.TrimPrefix(text, mn)
		}
		fmt.Fprintf(w, "  %4d  %s\n", i, text)
	}
}
