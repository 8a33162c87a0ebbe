package ir

import (
	"fmt"
	"strings"
)

// DecodeErrorKind enumerates the reasons a document fails to decode.
type DecodeErrorKind uint8

const (
	// DecodeMissingField indicates a required field is absent.
	DecodeMissingField DecodeErrorKind = iota + 1
	// DecodeWrongKind indicates a field holds a value of the wrong kind.
	DecodeWrongKind
	// DecodeOutOfRange indicates a numeric value does not fit its target width.
	DecodeOutOfRange
	// DecodeUnknownTag indicates an unrecognized tag string.
	DecodeUnknownTag
	// DecodeUnknownOpcode indicates an instruction mnemonic missing from the registry.
	DecodeUnknownOpcode
	// DecodeMalformedPayload indicates an instruction payload that does not match its shape.
	DecodeMalformedPayload
	// DecodeSyntax indicates the document itself could not be parsed.
	DecodeSyntax
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeMissingField:
		return "missing field"
	case DecodeWrongKind:
		return "wrong kind"
	case DecodeOutOfRange:
		return "out of range"
	case DecodeUnknownTag:
		return "unknown tag"
	case DecodeUnknownOpcode:
		return "unknown opcode"
	case DecodeMalformedPayload:
		return "malformed payload"
	case DecodeSyntax:
		return "syntax"
	default:
		return fmt.Sprintf("decode error kind=%d", uint8(k))
	}
}

// DecodeError reports a document that does not match the IR schema.
type DecodeError struct {
	Kind   DecodeErrorKind
	Entity string // e.g. "function", "type entry", "instruction"
	Key    string // entity key or array position, may be empty
	Field  string // offending field, may be empty
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString("decode ")
	sb.WriteString(e.Entity)
	if e.Key != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Key)
	}
	if e.Field != "" {
		sb.WriteString(" field ")
		sb.WriteString(fmt.Sprintf("%q", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationErrorKind names the module invariant that was violated.
type ValidationErrorKind uint8

const (
	// ValKeyMismatch indicates a table key differs from the entity's own identifier.
	ValKeyMismatch ValidationErrorKind = iota + 1
	// ValDuplicateKey indicates two entities of one table share a key.
	ValDuplicateKey
	// ValDanglingType indicates a reference to a missing type.
	ValDanglingType
	// ValTypeIndexOutOfRange indicates a type reference index past the type's entries.
	ValTypeIndexOutOfRange
	// ValDanglingFunctionDecl indicates a reference to a missing function declaration.
	ValDanglingFunctionDecl
	// ValDanglingStringLiteral indicates a reference to a missing string literal.
	ValDanglingStringLiteral
	// ValCodeRefOutOfRange indicates a code reference past the end of its block.
	ValCodeRefOutOfRange
	// ValDanglingJumpFunction indicates a jump target naming a missing function.
	ValDanglingJumpFunction
	// ValJumpTargetOutOfRange indicates a jump target offset past the function body.
	ValJumpTargetOutOfRange
	// ValDuplicateAlias indicates an inline assembly alias used twice.
	ValDuplicateAlias
	// ValMalformedType indicates type entries that do not form a pre-order forest.
	ValMalformedType
	// ValShapeMismatch indicates an instruction argument that does not match its opcode shape.
	ValShapeMismatch
)

func (k ValidationErrorKind) String() string {
	switch k {
	case ValKeyMismatch:
		return "key mismatch"
	case ValDuplicateKey:
		return "duplicate key"
	case ValDanglingType:
		return "dangling type reference"
	case ValTypeIndexOutOfRange:
		return "type index out of range"
	case ValDanglingFunctionDecl:
		return "dangling function declaration reference"
	case ValDanglingStringLiteral:
		return "dangling string literal reference"
	case ValCodeRefOutOfRange:
		return "code reference out of range"
	case ValDanglingJumpFunction:
		return "dangling jump target function"
	case ValJumpTargetOutOfRange:
		return "jump target out of range"
	case ValDuplicateAlias:
		return "duplicate alias"
	case ValMalformedType:
		return "malformed type"
	case ValShapeMismatch:
		return "shape mismatch"
	default:
		return fmt.Sprintf("validation error kind=%d", uint8(k))
	}
}

// ValidationError reports the first violated module invariant.
type ValidationError struct {
	Kind    ValidationErrorKind
	Entity  string // e.g. "function", "inline assembly"
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Key, e.Message)
}

func validationErr(kind ValidationErrorKind, entity string, key any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Entity:  entity,
		Key:     fmt.Sprint(key),
		Message: fmt.Sprintf(format, args...),
	}
}
