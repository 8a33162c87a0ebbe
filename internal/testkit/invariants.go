// Package testkit holds helpers shared by package tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"okroshka/internal/ir"
)

// CheckModuleInvariants re-checks, through the public accessors only, the
// guarantees a constructed module gives its consumers:
//  1. every function's declaration and locals type resolve
//  2. every instruction reference resolves and code references stay within
//     one past the end of their block
//  3. every type's entries form complete subtrees
//  4. every inline assembly jump target lands inside its function
func CheckModuleInvariants(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	for t := range m.Types() {
		for i := 0; i < t.Len(); {
			end, ok := t.SubtreeEnd(i)
			if !ok {
				return fmt.Errorf("type %d: entry %d subtree is truncated", t.ID, i)
			}
			i = end
		}
	}
	for f := range m.Functions() {
		if _, ok := m.FunctionDeclaration(f.Declaration); !ok {
			return fmt.Errorf("function %s: declaration %d missing", f.Name, f.Declaration)
		}
		if _, ok := m.Type(f.Locals); !ok {
			return fmt.Errorf("function %s: locals type %d missing", f.Name, f.Locals)
		}
		for i, in := range f.Body.Instructions() {
			if err := checkArgument(m, f.Body.Len(), in); err != nil {
				return fmt.Errorf("function %s: instruction %d (%s): %w", f.Name, i, in.Mnemonic(), err)
			}
		}
	}
	for asm := range m.InlineAssemblies() {
		for _, p := range asm.Parameters() {
			for _, ref := range p.TypeRefs() {
				if err := checkTypeRef(m, ref); err != nil {
					return fmt.Errorf("inline assembly %d parameter %d: %w", asm.ID, p.ID, err)
				}
			}
		}
		for _, target := range asm.JumpTargets() {
			f, ok := m.Function(target.Function)
			if !ok {
				return fmt.Errorf("inline assembly %d: jump target function %q missing", asm.ID, target.Function)
			}
			if target.Offset < 0 || target.Offset > f.Body.Len() {
				return fmt.Errorf("inline assembly %d: jump target %d outside %s", asm.ID, target.Offset, f.Name)
			}
		}
	}
	return nil
}

func checkArgument(m *ir.Module, blockLen int, in ir.Instruction) error {
	arg := in.Argument()
	if arg.Kind != in.Shape().ArgKind() {
		return fmt.Errorf("argument kind %s does not match shape %s", arg.Kind, in.Shape())
	}
	switch arg.Kind {
	case ir.ArgCodeRef:
		if arg.Code < 0 || arg.Code > blockLen {
			return fmt.Errorf("code reference %d outside block of %d", arg.Code, blockLen)
		}
	case ir.ArgString:
		if _, ok := m.StringLiteral(arg.String); !ok {
			return fmt.Errorf("string literal %d missing", arg.String)
		}
	case ir.ArgFuncRef:
		if _, ok := m.FunctionDeclaration(arg.Func.Decl); !ok {
			return fmt.Errorf("declaration %d missing", arg.Func.Decl)
		}
	case ir.ArgTypeRef:
		return checkTypeRef(m, arg.TypeRef)
	}
	return nil
}

func checkTypeRef(m *ir.Module, ref ir.TypeRef) error {
	t, ok := m.Type(ref.Type)
	if !ok {
		return fmt.Errorf("%s: type missing", ref)
	}
	n, err := safecast.Conv[uint64](t.Len())
	if err != nil {
		return fmt.Errorf("%s: entry count overflow: %w", ref, err)
	}
	if ref.Index >= n {
		return fmt.Errorf("%s: index beyond %d entries", ref, n)
	}
	return nil
}
