package ir

import "fmt"

// ArgKind distinguishes the normalized instruction argument forms.
type ArgKind uint8

const (
	// ArgNone represents an instruction without payload.
	ArgNone ArgKind = iota
	// ArgInteger represents a signed integer payload.
	ArgInteger
	// ArgUInteger represents an unsigned integer payload.
	ArgUInteger
	// ArgUIntegerPair represents a pair of unsigned 32-bit integers.
	ArgUIntegerPair
	// ArgBoolean represents a boolean payload.
	ArgBoolean
	// ArgFloat64 represents a double precision payload.
	ArgFloat64
	// ArgFloat32 represents a single precision payload.
	ArgFloat32
	// ArgString represents a string literal reference.
	ArgString
	// ArgTypeRef represents a type reference.
	ArgTypeRef
	// ArgCodeRef represents a code reference into the enclosing block.
	ArgCodeRef
	// ArgIdentifier represents a symbol name.
	ArgIdentifier
	// ArgFuncRef represents a function declaration reference.
	ArgFuncRef
	// ArgMemFlags represents memory access flags.
	ArgMemFlags
)

func (k ArgKind) String() string {
	switch k {
	case ArgNone:
		return "none"
	case ArgInteger:
		return "integer"
	case ArgUInteger:
		return "uinteger"
	case ArgUIntegerPair:
		return "uinteger pair"
	case ArgBoolean:
		return "boolean"
	case ArgFloat64:
		return "float64"
	case ArgFloat32:
		return "float32"
	case ArgString:
		return "string"
	case ArgTypeRef:
		return "typeref"
	case ArgCodeRef:
		return "coderef"
	case ArgIdentifier:
		return "identifier"
	case ArgFuncRef:
		return "funcref"
	case ArgMemFlags:
		return "memflags"
	default:
		return fmt.Sprintf("arg(%d)", uint8(k))
	}
}

// MemFlags describes memory access properties of load/store instructions.
type MemFlags struct {
	Volatile bool
}

// FuncRef references a function declaration. Name is empty when the
// reference carries no display name.
type FuncRef struct {
	Decl FuncDeclID
	Name string
}

// Argument is the normalized view of an instruction payload. Only the field
// selected by Kind is meaningful.
type Argument struct {
	Kind ArgKind

	Int     int64
	Uint    uint64
	Pair    [2]uint32
	Bool    bool
	F64     float64
	F32     float32
	String  StringLiteralID
	TypeRef TypeRef
	Code    int
	Ident   string
	Func    FuncRef
	Mem     MemFlags
}

// Instruction is one opcode together with its payload. The zero value is
// not a valid instruction; use NewInstruction or the opcode registry.
type Instruction struct {
	op  *OpcodeInfo
	arg Argument
}

// NewInstruction pairs an opcode with its argument, rejecting arguments whose
// kind does not match the opcode's shape.
func NewInstruction(op *OpcodeInfo, arg Argument) (Instruction, error) {
	if op == nil {
		return Instruction{}, fmt.Errorf("nil opcode")
	}
	if want := op.Shape.ArgKind(); arg.Kind != want {
		return Instruction{}, fmt.Errorf("opcode %s expects %s argument, got %s", op.Mnemonic, want, arg.Kind)
	}
	return Instruction{op: op, arg: arg}, nil
}

// Opcode returns the registry row of the instruction.
func (i Instruction) Opcode() *OpcodeInfo { return i.op }

// Mnemonic returns the opcode mnemonic.
func (i Instruction) Mnemonic() string {
	if i.op == nil {
		return ""
	}
	return i.op.Mnemonic
}

// Code returns the opcode numeric code.
func (i Instruction) Code() uint64 {
	if i.op == nil {
		return 0
	}
	return i.op.Code
}

// Shape returns the opcode payload shape.
func (i Instruction) Shape() Shape {
	if i.op == nil {
		return ShapeNone
	}
	return i.op.Shape
}

// Argument returns the normalized payload view.
func (i Instruction) Argument() Argument { return i.arg }

func (i Instruction) String() string {
	name := i.Mnemonic()
	switch a := i.arg; a.Kind {
	case ArgNone:
		return name
	case ArgInteger:
		return fmt.Sprintf("%s %d", name, a.Int)
	case ArgUInteger:
		return fmt.Sprintf("%s %d", name, a.Uint)
	case ArgUIntegerPair:
		return fmt.Sprintf("%s %d, %d", name, a.Pair[0], a.Pair[1])
	case ArgBoolean:
		return fmt.Sprintf("%s %t", name, a.Bool)
	case ArgFloat64:
		return fmt.Sprintf("%s %g", name, a.F64)
	case ArgFloat32:
		return fmt.Sprintf("%s %g", name, a.F32)
	case ArgString:
		return fmt.Sprintf("%s string#%d", name, a.String)
	case ArgTypeRef:
		return fmt.Sprintf("%s %s", name, a.TypeRef)
	case ArgCodeRef:
		return fmt.Sprintf("%s @%d", name, a.Code)
	case ArgIdentifier:
		return fmt.Sprintf("%s %s", name, a.Ident)
	case ArgFuncRef:
		if a.Func.Name != "" {
			return fmt.Sprintf("%s decl#%d (%s)", name, a.Func.Decl, a.Func.Name)
		}
		return fmt.Sprintf("%s decl#%d", name, a.Func.Decl)
	case ArgMemFlags:
		if a.Mem.Volatile {
			return name + " volatile"
		}
		return name
	default:
		return name
	}
}
