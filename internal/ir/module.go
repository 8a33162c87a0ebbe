package ir

import (
	"iter"
	"maps"
)

// Tables holds freshly decoded module tables prior to validation.
type Tables struct {
	Globals              map[string]Symbol
	Externals            map[string]Symbol
	Types                map[TypeID]Type
	StringLiterals       map[StringLiteralID]StringLiteral
	FunctionDeclarations map[FuncDeclID]FunctionDeclaration
	Functions            map[string]Function
	Data                 map[string]DataObject
	InlineAssembly       map[InlineAsmID]*InlineAssembly
}

// Module is a validated, immutable IR module.
type Module struct {
	globals   map[string]Symbol
	externals map[string]Symbol
	types     map[TypeID]Type
	strings   map[StringLiteralID]StringLiteral
	funcDecls map[FuncDeclID]FunctionDeclaration
	funcs     map[string]Function
	data      map[string]DataObject
	inlineAsm map[InlineAsmID]*InlineAssembly
}

// NewModule deep-copies t and validates every cross-table reference. It
// returns a *ValidationError describing the first violation. Accessors return
// copies of any shared storage, so the module stays immutable.
func NewModule(t Tables) (*Module, error) {
	m := &Module{
		globals:   cloneOrEmpty(t.Globals),
		externals: cloneOrEmpty(t.Externals),
		types:     cloneOrEmpty(t.Types),
		strings:   cloneEach(t.StringLiterals, StringLiteral.clone),
		funcDecls: cloneOrEmpty(t.FunctionDeclarations),
		funcs:     cloneOrEmpty(t.Functions),
		data:      cloneOrEmpty(t.Data),
		inlineAsm: cloneEach(t.InlineAssembly, cloneAsm),
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func cloneOrEmpty[K comparable, V any](src map[K]V) map[K]V {
	if src == nil {
		return make(map[K]V)
	}
	return maps.Clone(src)
}

func cloneEach[K comparable, V any](src map[K]V, clone func(V) V) map[K]V {
	out := make(map[K]V, len(src))
	for k, v := range src {
		out[k] = clone(v)
	}
	return out
}

// cloneAsm tolerates nil so validation can report the broken entry.
func cloneAsm(a *InlineAssembly) *InlineAssembly {
	if a == nil {
		return nil
	}
	return a.clone()
}

func mapSeq[V, W any](seq iter.Seq[V], f func(V) W) iter.Seq[W] {
	return func(yield func(W) bool) {
		for v := range seq {
			if !yield(f(v)) {
				return
			}
		}
	}
}

// Global returns the exported symbol called name.
func (m *Module) Global(name string) (Symbol, bool) {
	s, ok := m.globals[name]
	return s, ok
}

// IsGlobal reports whether name is exported.
func (m *Module) IsGlobal(name string) bool {
	_, ok := m.globals[name]
	return ok
}

// Globals iterates exported symbols in unspecified order.
func (m *Module) Globals() iter.Seq[Symbol] { return maps.Values(m.globals) }

// External returns the imported symbol called name.
func (m *Module) External(name string) (Symbol, bool) {
	s, ok := m.externals[name]
	return s, ok
}

// IsExternal reports whether name is imported.
func (m *Module) IsExternal(name string) bool {
	_, ok := m.externals[name]
	return ok
}

// Externals iterates imported symbols in unspecified order.
func (m *Module) Externals() iter.Seq[Symbol] { return maps.Values(m.externals) }

// Type looks up a type by id.
func (m *Module) Type(id TypeID) (Type, bool) {
	t, ok := m.types[id]
	return t, ok
}

// Types iterates types in unspecified order.
func (m *Module) Types() iter.Seq[Type] { return maps.Values(m.types) }

// StringLiteral looks up a string literal by id.
func (m *Module) StringLiteral(id StringLiteralID) (StringLiteral, bool) {
	s, ok := m.strings[id]
	return s.clone(), ok
}

// StringLiterals iterates string literals in unspecified order.
func (m *Module) StringLiterals() iter.Seq[StringLiteral] {
	return mapSeq(maps.Values(m.strings), StringLiteral.clone)
}

// FunctionDeclaration looks up a declaration by id.
func (m *Module) FunctionDeclaration(id FuncDeclID) (FunctionDeclaration, bool) {
	d, ok := m.funcDecls[id]
	return d, ok
}

// FunctionDeclarations iterates declarations in unspecified order.
func (m *Module) FunctionDeclarations() iter.Seq[FunctionDeclaration] {
	return maps.Values(m.funcDecls)
}

// Function looks up a function definition by name.
func (m *Module) Function(name string) (Function, bool) {
	f, ok := m.funcs[name]
	return f, ok
}

// Functions iterates function definitions in unspecified order.
func (m *Module) Functions() iter.Seq[Function] { return maps.Values(m.funcs) }

// Data looks up a data object by name.
func (m *Module) Data(name string) (DataObject, bool) {
	d, ok := m.data[name]
	return d, ok
}

// DataObjects iterates data objects in unspecified order.
func (m *Module) DataObjects() iter.Seq[DataObject] { return maps.Values(m.data) }

// InlineAssembly returns a copy of the inline assembly block with the given id.
func (m *Module) InlineAssembly(id InlineAsmID) (*InlineAssembly, bool) {
	a, ok := m.inlineAsm[id]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// InlineAssemblies iterates copies of the inline assembly blocks in
// unspecified order.
func (m *Module) InlineAssemblies() iter.Seq[*InlineAssembly] {
	return mapSeq(maps.Values(m.inlineAsm), cloneAsm)
}

// Counts summarizes table sizes.
type Counts struct {
	Globals, Externals, Types, StringLiterals, FunctionDeclarations, Functions, Data, InlineAssembly int
}

// Counts returns the size of every table.
func (m *Module) Counts() Counts {
	return Counts{
		Globals:              len(m.globals),
		Externals:            len(m.externals),
		Types:                len(m.types),
		StringLiterals:       len(m.strings),
		FunctionDeclarations: len(m.funcDecls),
		Functions:            len(m.funcs),
		Data:                 len(m.data),
		InlineAssembly:       len(m.inlineAsm),
	}
}
