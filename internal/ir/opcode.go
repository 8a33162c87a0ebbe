package ir

import "fmt"

// Shape is the payload class every opcode declares.
type Shape uint8

const (
	// ShapeNone carries no payload.
	ShapeNone Shape = iota
	// ShapeI64 carries a signed 64-bit integer.
	ShapeI64
	// ShapeU64 carries an unsigned 64-bit integer.
	ShapeU64
	// ShapeString carries a string literal identifier.
	ShapeString
	// ShapeU32Pair carries two unsigned 32-bit integers.
	ShapeU32Pair
	// ShapeF32 carries a single precision float.
	ShapeF32
	// ShapeF64 carries a double precision float.
	ShapeF64
	// ShapeBool carries a boolean.
	ShapeBool
	// ShapeIdentifier carries a symbol name.
	ShapeIdentifier
	// ShapeTypeRef carries a type reference.
	ShapeTypeRef
	// ShapeCodeRef carries an instruction offset within the enclosing block.
	ShapeCodeRef
	// ShapeFuncRef carries a function declaration reference.
	ShapeFuncRef
	// ShapeMemFlags carries memory access flags.
	ShapeMemFlags

	shapeCount
)

var shapeNames = [...]string{
	ShapeNone:       "none",
	ShapeI64:        "i64",
	ShapeU64:        "u64",
	ShapeString:     "string",
	ShapeU32Pair:    "u32",
	ShapeF32:        "f32",
	ShapeF64:        "f64",
	ShapeBool:       "bool",
	ShapeIdentifier: "identifier",
	ShapeTypeRef:    "typeref",
	ShapeCodeRef:    "coderef",
	ShapeFuncRef:    "funcref",
	ShapeMemFlags:   "memflags",
}

// shapeArgs maps every shape to the argument kind it exposes.
var shapeArgs = [...]ArgKind{
	ShapeNone:       ArgNone,
	ShapeI64:        ArgInteger,
	ShapeU64:        ArgUInteger,
	ShapeString:     ArgString,
	ShapeU32Pair:    ArgUIntegerPair,
	ShapeF32:        ArgFloat32,
	ShapeF64:        ArgFloat64,
	ShapeBool:       ArgBoolean,
	ShapeIdentifier: ArgIdentifier,
	ShapeTypeRef:    ArgTypeRef,
	ShapeCodeRef:    ArgCodeRef,
	ShapeFuncRef:    ArgFuncRef,
	ShapeMemFlags:   ArgMemFlags,
}

func (s Shape) String() string {
	if s < shapeCount {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// ArgKind returns the argument kind instructions of this shape expose.
func (s Shape) ArgKind() ArgKind {
	if s < shapeCount {
		return shapeArgs[s]
	}
	return ArgNone
}

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	return s < shapeCount
}

// ParseShape converts a specification shape name to a Shape.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return ShapeNone, fmt.Errorf("unknown opcode shape %q", name)
}

// OpcodeInfo is one row of the opcode registry.
type OpcodeInfo struct {
	Tag      uint16 // dense index into the registry
	ID       string // symbolic identifier, e.g. "int_add"
	Mnemonic string
	Code     uint64
	Shape    Shape
}

func (o *OpcodeInfo) String() string {
	if o == nil {
		return "<nil opcode>"
	}
	return o.Mnemonic
}
