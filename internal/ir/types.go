package ir

import (
	"fmt"
	"slices"
)

// TypeKind enumerates type entry kinds.
type TypeKind uint8

const (
	TypeInt8 TypeKind = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeBool
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeWord
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeBits
	TypeBuiltin
	TypeStruct
	TypeUnion
	TypeArray

	typeKindCount
)

var typeKindNames = [...]string{
	TypeInt8:       "int8",
	TypeInt16:      "int16",
	TypeInt32:      "int32",
	TypeInt64:      "int64",
	TypeBool:       "bool",
	TypeChar:       "char",
	TypeShort:      "short",
	TypeInt:        "int",
	TypeLong:       "long",
	TypeWord:       "word",
	TypeFloat:      "float",
	TypeDouble:     "double",
	TypeLongDouble: "long_double",
	TypeBits:       "bits",
	TypeBuiltin:    "builtin",
	TypeStruct:     "struct",
	TypeUnion:      "union",
	TypeArray:      "array",
}

func (k TypeKind) String() string {
	if k < typeKindCount {
		return typeKindNames[k]
	}
	return fmt.Sprintf("type(%d)", uint8(k))
}

// ParseTypeKind resolves an interchange type tag.
func ParseTypeKind(name string) (TypeKind, bool) {
	i := slices.Index(typeKindNames[:], name)
	if i < 0 {
		return 0, false
	}
	return TypeKind(i), true
}

// BuiltinKind enumerates builtin type classes.
type BuiltinKind uint8

const (
	// BuiltinVarargList is the platform va_list.
	BuiltinVarargList BuiltinKind = iota
)

func (b BuiltinKind) String() string {
	if b == BuiltinVarargList {
		return "vararg"
	}
	return fmt.Sprintf("builtin(%d)", uint8(b))
}

// TypeEntry is one node of a flattened type tree.
//
// Struct and union entries are followed by Fields child subtrees; an array
// entry is followed by exactly one child subtree describing its element.
type TypeEntry struct {
	Kind      TypeKind
	Alignment uint64 // 0 = unspecified
	Fields    int    // struct, union
	Length    uint64 // array
	Width     uint64 // bits
	Builtin   BuiltinKind
}

// children reports how many direct child subtrees follow the entry.
func (e TypeEntry) children() int {
	switch e.Kind {
	case TypeStruct, TypeUnion:
		return e.Fields
	case TypeArray:
		return 1
	default:
		return 0
	}
}

func (e TypeEntry) String() string {
	var s string
	switch e.Kind {
	case TypeBits:
		s = fmt.Sprintf("bits(%d)", e.Width)
	case TypeBuiltin:
		s = "builtin(" + e.Builtin.String() + ")"
	case TypeStruct, TypeUnion:
		s = fmt.Sprintf("%s{%d}", e.Kind, e.Fields)
	case TypeArray:
		s = fmt.Sprintf("array[%d]", e.Length)
	default:
		s = e.Kind.String()
	}
	if e.Alignment != 0 {
		s += fmt.Sprintf(" align(%d)", e.Alignment)
	}
	return s
}

// Type is a flattened pre-order description of a value layout.
type Type struct {
	ID      TypeID
	entries []TypeEntry
}

// NewType wraps entries into a Type. The slice is copied.
func NewType(id TypeID, entries []TypeEntry) Type {
	return Type{ID: id, entries: slices.Clone(entries)}
}

// Len returns the number of flattened entries.
func (t Type) Len() int { return len(t.entries) }

// At returns entry i.
func (t Type) At(i int) TypeEntry { return t.entries[i] }

// Entries returns a copy of the flattened entries.
func (t Type) Entries() []TypeEntry { return slices.Clone(t.entries) }

// SubtreeEnd returns the index one past the last entry of the subtree rooted
// at i. It returns false when the subtree runs past the end of the sequence.
func (t Type) SubtreeEnd(i int) (int, bool) {
	if i < 0 || i >= len(t.entries) {
		return 0, false
	}
	// pending counts subtrees still to be consumed
	pending := 1
	j := i
	for pending > 0 {
		if j >= len(t.entries) {
			return 0, false
		}
		pending += t.entries[j].children() - 1
		j++
	}
	return j, true
}

// wellFormed reports the first entry whose subtree overruns the sequence.
func (t Type) wellFormed() (int, bool) {
	for i := 0; i < len(t.entries); {
		end, ok := t.SubtreeEnd(i)
		if !ok {
			return i, false
		}
		i = end
	}
	return 0, true
}

// TypeRef addresses one entry of a type.
type TypeRef struct {
	Type  TypeID
	Index uint64
}

func (r TypeRef) String() string {
	return fmt.Sprintf("type#%d[%d]", r.Type, r.Index)
}
