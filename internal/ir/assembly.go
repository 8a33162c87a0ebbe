package ir

import (
	"fmt"
	"maps"
	"slices"
)

// AsmParamClass enumerates inline assembly parameter classes.
type AsmParamClass uint8

const (
	AsmImmediateConstant AsmParamClass = iota
	AsmImmediateIdentifierBased
	AsmImmediateLiteralBased
	AsmRead
	AsmLoad
	AsmStore
	AsmLoadStore
	AsmReadStore
)

func (c AsmParamClass) String() string {
	switch c {
	case AsmImmediateConstant:
		return "immediate"
	case AsmImmediateIdentifierBased:
		return "immediate identifier_based"
	case AsmImmediateLiteralBased:
		return "immediate literal_based"
	case AsmRead:
		return "read"
	case AsmLoad:
		return "load"
	case AsmStore:
		return "store"
	case AsmLoadStore:
		return "load_store"
	case AsmReadStore:
		return "read_store"
	default:
		return fmt.Sprintf("asmclass(%d)", uint8(c))
	}
}

// Immediate reports whether the class is one of the immediate variants.
func (c AsmParamClass) Immediate() bool {
	return c <= AsmImmediateLiteralBased
}

// AsmConstraint restricts where a parameter may live.
type AsmConstraint uint8

const (
	AsmConstraintNone AsmConstraint = iota
	AsmConstraintRegister
	AsmConstraintMemory
	AsmConstraintRegisterMemory
)

func (c AsmConstraint) String() string {
	switch c {
	case AsmConstraintNone:
		return "none"
	case AsmConstraintRegister:
		return "register"
	case AsmConstraintMemory:
		return "memory"
	case AsmConstraintRegisterMemory:
		return "register_memory"
	default:
		return fmt.Sprintf("constraint(%d)", uint8(c))
	}
}

// AsmParameter is an inline assembly operand.
//
// Type/Slot describe the read side (or the only side); ToType/ToSlot are set
// for read_store only. Immediates use Value plus Symbol (identifier based) or
// Literal (literal based).
type AsmParameter struct {
	ID         AsmParamID
	Aliases    []string
	Class      AsmParamClass
	Constraint AsmConstraint

	Type    TypeRef
	Slot    uint64
	ToType  TypeRef
	ToSlot  uint64
	Value   int64
	Symbol  string
	Literal StringLiteralID
}

// TypeRefs returns every type reference the parameter carries.
func (p *AsmParameter) TypeRefs() []TypeRef {
	if p.Class == AsmReadStore {
		return []TypeRef{p.Type, p.ToType}
	}
	return []TypeRef{p.Type}
}

func (p *AsmParameter) clone() *AsmParameter {
	c := *p
	c.Aliases = slices.Clone(p.Aliases)
	return &c
}

// AsmJumpTarget is a label an inline assembly block may jump to.
type AsmJumpTarget struct {
	ID       AsmJumpTargetID
	Aliases  []string
	Function string
	Offset   int
}

func (t *AsmJumpTarget) clone() *AsmJumpTarget {
	c := *t
	c.Aliases = slices.Clone(t.Aliases)
	return &c
}

// AliasKind tells which table an alias resolves into.
type AliasKind uint8

const (
	AliasParameter AliasKind = iota
	AliasJumpTarget
)

// AliasTarget is an alias index entry.
type AliasTarget struct {
	Kind AliasKind
	ID   uint64
}

// InlineAssembly is a block of target assembly with typed operands.
type InlineAssembly struct {
	ID       InlineAsmID
	Global   bool
	Template string

	params   map[AsmParamID]*AsmParameter
	targets  map[AsmJumpTargetID]*AsmJumpTarget
	clobbers map[string]struct{}
	aliases  map[string]AliasTarget
}

// NewInlineAssembly assembles a block and builds its alias index. Map keys
// must match the stored identifiers and aliases must be unique across
// parameters and jump targets. Parameters and targets are copied; accessors
// hand out copies as well, so a constructed block never changes.
func NewInlineAssembly(
	id InlineAsmID,
	global bool,
	template string,
	params map[AsmParamID]*AsmParameter,
	clobbers []string,
	targets map[AsmJumpTargetID]*AsmJumpTarget,
) (*InlineAssembly, error) {
	asm := &InlineAssembly{
		ID:       id,
		Global:   global,
		Template: template,
		params:   make(map[AsmParamID]*AsmParameter, len(params)),
		targets:  make(map[AsmJumpTargetID]*AsmJumpTarget, len(targets)),
		clobbers: make(map[string]struct{}, len(clobbers)),
		aliases:  make(map[string]AliasTarget),
	}
	for _, c := range clobbers {
		asm.clobbers[c] = struct{}{}
	}

	for _, key := range slices.Sorted(maps.Keys(params)) {
		p := params[key]
		if p == nil || p.ID != key {
			return nil, validationErr(ValKeyMismatch, "inline assembly", id,
				"parameter identifier does not match the index %d", key)
		}
		if err := asm.index(p.Aliases, AliasTarget{Kind: AliasParameter, ID: uint64(key)}); err != nil {
			return nil, err
		}
		asm.params[key] = p.clone()
	}
	for _, key := range slices.Sorted(maps.Keys(targets)) {
		t := targets[key]
		if t == nil || t.ID != key {
			return nil, validationErr(ValKeyMismatch, "inline assembly", id,
				"jump target identifier does not match the index %d", key)
		}
		if err := asm.index(t.Aliases, AliasTarget{Kind: AliasJumpTarget, ID: uint64(key)}); err != nil {
			return nil, err
		}
		asm.targets[key] = t.clone()
	}
	return asm, nil
}

func (a *InlineAssembly) index(aliases []string, target AliasTarget) error {
	for _, alias := range aliases {
		if _, dup := a.aliases[alias]; dup {
			return validationErr(ValDuplicateAlias, "inline assembly", a.ID,
				"duplicate alias %q", alias)
		}
		a.aliases[alias] = target
	}
	return nil
}

// clone returns a deep copy of the block.
func (a *InlineAssembly) clone() *InlineAssembly {
	c := *a
	c.params = make(map[AsmParamID]*AsmParameter, len(a.params))
	for k, p := range a.params {
		c.params[k] = p.clone()
	}
	c.targets = make(map[AsmJumpTargetID]*AsmJumpTarget, len(a.targets))
	for k, t := range a.targets {
		c.targets[k] = t.clone()
	}
	c.clobbers = maps.Clone(a.clobbers)
	c.aliases = maps.Clone(a.aliases)
	return &c
}

// Parameter returns a copy of the parameter with the given id.
func (a *InlineAssembly) Parameter(id AsmParamID) (*AsmParameter, bool) {
	p, ok := a.params[id]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Parameters returns copies of the parameters ordered by id.
func (a *InlineAssembly) Parameters() []*AsmParameter {
	out := make([]*AsmParameter, 0, len(a.params))
	for _, k := range slices.Sorted(maps.Keys(a.params)) {
		out = append(out, a.params[k].clone())
	}
	return out
}

// JumpTarget returns a copy of the jump target with the given id.
func (a *InlineAssembly) JumpTarget(id AsmJumpTargetID) (*AsmJumpTarget, bool) {
	t, ok := a.targets[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// JumpTargets returns copies of the jump targets ordered by id.
func (a *InlineAssembly) JumpTargets() []*AsmJumpTarget {
	out := make([]*AsmJumpTarget, 0, len(a.targets))
	for _, k := range slices.Sorted(maps.Keys(a.targets)) {
		out = append(out, a.targets[k].clone())
	}
	return out
}

// Alias resolves an operand alias.
func (a *InlineAssembly) Alias(name string) (AliasTarget, bool) {
	t, ok := a.aliases[name]
	return t, ok
}

// HasClobber reports whether the block clobbers name.
func (a *InlineAssembly) HasClobber(name string) bool {
	_, ok := a.clobbers[name]
	return ok
}

// Clobbers returns the clobber set in sorted order.
func (a *InlineAssembly) Clobbers() []string {
	return slices.Sorted(maps.Keys(a.clobbers))
}
