package ir

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// validate checks module invariants. Tables are walked in key order so the
// first reported violation does not depend on map iteration.
func (m *Module) validate() error {
	checks := []func() error{
		m.validateKeys,
		m.validateTypes,
		m.validateFunctionDeclarations,
		m.validateFunctions,
		m.validateData,
		m.validateInlineAssembly,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func (m *Module) validateKeys() error {
	for _, name := range sortedKeys(m.globals) {
		if s := m.globals[name]; s.Name != name {
			return validationErr(ValKeyMismatch, "global", name, "symbol name %q does not match the index key", s.Name)
		}
	}
	for _, name := range sortedKeys(m.externals) {
		if s := m.externals[name]; s.Name != name {
			return validationErr(ValKeyMismatch, "external", name, "symbol name %q does not match the index key", s.Name)
		}
	}
	for _, id := range sortedKeys(m.types) {
		if t := m.types[id]; t.ID != id {
			return validationErr(ValKeyMismatch, "type", id, "type identifier %d does not match the index key", t.ID)
		}
	}
	for _, id := range sortedKeys(m.strings) {
		if s := m.strings[id]; s.ID != id {
			return validationErr(ValKeyMismatch, "string literal", id, "string literal identifier %d does not match the index key", s.ID)
		}
	}
	for _, id := range sortedKeys(m.funcDecls) {
		if d := m.funcDecls[id]; d.ID != id {
			return validationErr(ValKeyMismatch, "function declaration", id, "function declaration identifier %d does not match the index key", d.ID)
		}
	}
	for _, name := range sortedKeys(m.funcs) {
		if f := m.funcs[name]; f.Name != name {
			return validationErr(ValKeyMismatch, "function", name, "function name %q does not match the index key", f.Name)
		}
	}
	for _, name := range sortedKeys(m.data) {
		if d := m.data[name]; d.Name != name {
			return validationErr(ValKeyMismatch, "data", name, "data name %q does not match the index key", d.Name)
		}
	}
	for _, id := range sortedKeys(m.inlineAsm) {
		a := m.inlineAsm[id]
		if a == nil {
			return validationErr(ValKeyMismatch, "inline assembly", id, "missing inline assembly block")
		}
		if a.ID != id {
			return validationErr(ValKeyMismatch, "inline assembly", id, "inline assembly identifier %d does not match the index key", a.ID)
		}
	}
	return nil
}

func (m *Module) validateTypes() error {
	for _, id := range sortedKeys(m.types) {
		if at, ok := m.types[id].wellFormed(); !ok {
			return validationErr(ValMalformedType, "type", id, "entry %d subtree runs past the end of the type", at)
		}
	}
	return nil
}

func (m *Module) validateFunctionDeclarations() error {
	for _, id := range sortedKeys(m.funcDecls) {
		d := m.funcDecls[id]
		if err := m.checkTypeID(d.Params, "function declaration", id, "parameters"); err != nil {
			return err
		}
		if err := m.checkTypeID(d.Result, "function declaration", id, "result"); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) validateFunctions() error {
	for _, name := range sortedKeys(m.funcs) {
		f := m.funcs[name]
		if _, ok := m.funcDecls[f.Declaration]; !ok {
			return validationErr(ValDanglingFunctionDecl, "function", name,
				"function declaration identifier does not exist: %d", f.Declaration)
		}
		if err := m.checkTypeID(f.Locals, "function", name, "locals"); err != nil {
			return err
		}
		if err := m.checkBlock(f.Body, name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) checkBlock(b Block, owner string) error {
	for i, in := range b.instrs {
		if err := m.checkInstruction(in, b.Len(), owner, i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) checkInstruction(in Instruction, blockLen int, owner string, pos int) error {
	where := func(kind ValidationErrorKind, format string, args ...any) error {
		return validationErr(kind, "function", owner, "instruction %d (%s): %s", pos, in.Mnemonic(), fmt.Sprintf(format, args...))
	}
	if in.op == nil {
		return where(ValShapeMismatch, "missing opcode")
	}
	arg := in.arg
	if want := in.op.Shape.ArgKind(); arg.Kind != want {
		return where(ValShapeMismatch, "opcode expects %s argument, got %s", want, arg.Kind)
	}
	switch arg.Kind {
	case ArgCodeRef:
		if arg.Code < 0 || arg.Code > blockLen {
			return where(ValCodeRefOutOfRange, "code reference %d exceeds block length %d", arg.Code, blockLen)
		}
	case ArgString:
		if _, ok := m.strings[arg.String]; !ok {
			return where(ValDanglingStringLiteral, "string literal identifier does not exist: %d", arg.String)
		}
	case ArgTypeRef:
		if kind, msg := m.typeRefProblem(arg.TypeRef); msg != "" {
			return where(kind, "%s", msg)
		}
	case ArgFuncRef:
		if _, ok := m.funcDecls[arg.Func.Decl]; !ok {
			return where(ValDanglingFunctionDecl, "function declaration identifier does not exist: %d", arg.Func.Decl)
		}
	}
	return nil
}

func (m *Module) validateData() error {
	for _, name := range sortedKeys(m.data) {
		if err := m.checkTypeID(m.data[name].Type, "data", name, "type"); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) validateInlineAssembly() error {
	for _, id := range sortedKeys(m.inlineAsm) {
		a := m.inlineAsm[id]
		for _, p := range a.Parameters() {
			for _, ref := range p.TypeRefs() {
				if kind, msg := m.typeRefProblem(ref); msg != "" {
					return validationErr(kind, "inline assembly", id, "parameter %d: %s", p.ID, msg)
				}
			}
			if p.Class == AsmImmediateLiteralBased {
				if _, ok := m.strings[p.Literal]; !ok {
					return validationErr(ValDanglingStringLiteral, "inline assembly", id,
						"parameter %d: string literal identifier does not exist: %d", p.ID, p.Literal)
				}
			}
		}
		for _, t := range a.JumpTargets() {
			f, ok := m.funcs[t.Function]
			if !ok {
				return validationErr(ValDanglingJumpFunction, "inline assembly", id,
					"jump target %d: function %q does not exist", t.ID, t.Function)
			}
			if t.Offset < 0 || t.Offset > f.Body.Len() {
				return validationErr(ValJumpTargetOutOfRange, "inline assembly", id,
					"jump target %d: offset %d exceeds body length %d of function %q", t.ID, t.Offset, f.Body.Len(), t.Function)
			}
		}
	}
	return nil
}

func (m *Module) checkTypeID(id TypeID, entity string, key any, role string) error {
	if _, ok := m.types[id]; !ok {
		return validationErr(ValDanglingType, entity, key, "%s type identifier does not exist: %d", role, id)
	}
	return nil
}

// typeRefProblem returns an empty message when ref is valid.
func (m *Module) typeRefProblem(ref TypeRef) (ValidationErrorKind, string) {
	t, ok := m.types[ref.Type]
	if !ok {
		return ValDanglingType, fmt.Sprintf("type identifier does not exist: %d", ref.Type)
	}
	if ref.Index >= uint64(t.Len()) {
		return ValTypeIndexOutOfRange, fmt.Sprintf("type index %d exceeds length %d of type %d", ref.Index, t.Len(), ref.Type)
	}
	return 0, ""
}
