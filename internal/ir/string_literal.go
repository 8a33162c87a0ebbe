package ir

import (
	"encoding/binary"
	"fmt"
	"slices"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// StringKind tags the encoding of a string literal.
type StringKind uint8

const (
	StringMultibyte StringKind = iota
	StringUnicode16
	StringUnicode32
)

func (k StringKind) String() string {
	switch k {
	case StringMultibyte:
		return "multibyte"
	case StringUnicode16:
		return "unicode16"
	case StringUnicode32:
		return "unicode32"
	default:
		return fmt.Sprintf("string(%d)", uint8(k))
	}
}

// StringLiteral is a module-level literal. Exactly one of Bytes, Units16 and
// Units32 is populated, according to Kind.
type StringLiteral struct {
	ID      StringLiteralID
	Public  bool
	Kind    StringKind
	Bytes   []byte
	Units16 []uint16
	Units32 []uint32
}

func (s StringLiteral) clone() StringLiteral {
	s.Bytes = slices.Clone(s.Bytes)
	s.Units16 = slices.Clone(s.Units16)
	s.Units32 = slices.Clone(s.Units32)
	return s
}

// Len returns the literal length in code units.
func (s StringLiteral) Len() int {
	switch s.Kind {
	case StringUnicode16:
		return len(s.Units16)
	case StringUnicode32:
		return len(s.Units32)
	default:
		return len(s.Bytes)
	}
}

// Text decodes the literal into Go text. Invalid sequences decode to U+FFFD.
func (s StringLiteral) Text() (string, error) {
	switch s.Kind {
	case StringMultibyte:
		return string(s.Bytes), nil
	case StringUnicode16:
		buf := make([]byte, 0, 2*len(s.Units16))
		for _, u := range s.Units16 {
			buf = binary.LittleEndian.AppendUint16(buf, u)
		}
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(buf)
		if err != nil {
			return "", fmt.Errorf("string literal %d: %w", s.ID, err)
		}
		return string(out), nil
	case StringUnicode32:
		buf := make([]byte, 0, 4*len(s.Units32))
		for _, u := range s.Units32 {
			buf = binary.LittleEndian.AppendUint32(buf, u)
		}
		out, err := utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM).NewDecoder().Bytes(buf)
		if err != nil {
			return "", fmt.Errorf("string literal %d: %w", s.ID, err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("string literal %d: unknown kind %s", s.ID, s.Kind)
	}
}
