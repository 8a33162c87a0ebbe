// Package opcode holds the instruction set registry: the single table from
// which opcode tags, mnemonics, numeric codes and payload shapes are derived.
package opcode

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"okroshka/internal/ir"
)

//go:embed opcodes.toml
var builtinSpec []byte

// Spec is the declarative form of an instruction set.
type Spec struct {
	Revision string      `toml:"revision"`
	Opcodes  []SpecEntry `toml:"opcode"`
}

// SpecEntry declares one opcode.
type SpecEntry struct {
	ID       string `toml:"id"`
	Mnemonic string `toml:"mnemonic"`
	Code     uint64 `toml:"code"`
	Type     string `toml:"type"`
}

// Registry is an immutable instruction set. It is safe for concurrent use.
type Registry struct {
	revision   string
	ops        []ir.OpcodeInfo
	byMnemonic map[string]*ir.OpcodeInfo
	byCode     map[uint64]*ir.OpcodeInfo
	byID       map[string]*ir.OpcodeInfo
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in instruction set.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(bytes.NewReader(builtinSpec))
		if err != nil {
			panic(fmt.Sprintf("opcode: embedded specification is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Load parses a TOML instruction set specification.
func Load(r io.Reader) (*Registry, error) {
	var spec Spec
	md, err := toml.NewDecoder(r).Decode(&spec)
	if err != nil {
		return nil, fmt.Errorf("opcode spec: %w", err)
	}
	if err := rejectUndecoded(md); err != nil {
		return nil, err
	}
	return New(spec)
}

// LoadFile parses a TOML instruction set specification from disk.
func LoadFile(path string) (*Registry, error) {
	var spec Spec
	md, err := toml.DecodeFile(path, &spec)
	if err != nil {
		return nil, fmt.Errorf("opcode spec %s: %w", path, err)
	}
	if err := rejectUndecoded(md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reg, err := New(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

func rejectUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("opcode spec: unknown keys: %s", strings.Join(keys, ", "))
}

// New builds a registry. Tags follow declaration order. Identifiers,
// mnemonics and codes must each be unique, and every type must name a known
// payload shape.
func New(spec Spec) (*Registry, error) {
	if len(spec.Opcodes) == 0 {
		return nil, fmt.Errorf("opcode spec: no opcodes declared")
	}
	reg := &Registry{
		revision:   spec.Revision,
		ops:        make([]ir.OpcodeInfo, len(spec.Opcodes)),
		byMnemonic: make(map[string]*ir.OpcodeInfo, len(spec.Opcodes)),
		byCode:     make(map[uint64]*ir.OpcodeInfo, len(spec.Opcodes)),
		byID:       make(map[string]*ir.OpcodeInfo, len(spec.Opcodes)),
	}
	for i, e := range spec.Opcodes {
		tag, err := safecast.Conv[uint16](i)
		if err != nil {
			return nil, fmt.Errorf("opcode spec: too many opcodes (%d)", len(spec.Opcodes))
		}
		if e.ID == "" || e.Mnemonic == "" {
			return nil, fmt.Errorf("opcode[%d]: id and mnemonic are required", i)
		}
		shape, err := ir.ParseShape(e.Type)
		if err != nil {
			return nil, fmt.Errorf("opcode[%d] %s: %w", i, e.ID, err)
		}
		reg.ops[i] = ir.OpcodeInfo{Tag: tag, ID: e.ID, Mnemonic: e.Mnemonic, Code: e.Code, Shape: shape}
		info := &reg.ops[i]
		if prev, dup := reg.byID[e.ID]; dup {
			return nil, fmt.Errorf("opcode[%d]: duplicate id %q (first at tag %d)", i, e.ID, prev.Tag)
		}
		if prev, dup := reg.byMnemonic[e.Mnemonic]; dup {
			return nil, fmt.Errorf("opcode[%d] %s: duplicate mnemonic %q (first used by %s)", i, e.ID, e.Mnemonic, prev.ID)
		}
		if prev, dup := reg.byCode[e.Code]; dup {
			return nil, fmt.Errorf("opcode[%d] %s: duplicate code %#x (first used by %s)", i, e.ID, e.Code, prev.ID)
		}
		reg.byID[e.ID] = info
		reg.byMnemonic[e.Mnemonic] = info
		reg.byCode[e.Code] = info
	}
	return reg, nil
}

// Revision returns the specification revision, possibly empty.
func (r *Registry) Revision() string { return r.revision }

// Len returns the number of opcodes.
func (r *Registry) Len() int { return len(r.ops) }

// Opcodes returns a copy of the table in tag order.
func (r *Registry) Opcodes() []ir.OpcodeInfo {
	out := make([]ir.OpcodeInfo, len(r.ops))
	copy(out, r.ops)
	return out
}

// Lookup resolves a mnemonic.
func (r *Registry) Lookup(mnemonic string) (*ir.OpcodeInfo, bool) {
	info, ok := r.byMnemonic[mnemonic]
	return info, ok
}

// ByCode resolves a numeric code.
func (r *Registry) ByCode(code uint64) (*ir.OpcodeInfo, bool) {
	info, ok := r.byCode[code]
	return info, ok
}

// ByID resolves a symbolic identifier.
func (r *Registry) ByID(id string) (*ir.OpcodeInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// ByTag returns the opcode with the given dense tag.
func (r *Registry) ByTag(tag uint16) (*ir.OpcodeInfo, bool) {
	if int(tag) >= len(r.ops) {
		return nil, false
	}
	return &r.ops[tag], true
}
