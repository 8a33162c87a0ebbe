package record

import (
	"errors"
	"fmt"
)

// Problem classifies a field access failure.
type Problem uint8

const (
	ProblemMissing Problem = iota + 1
	ProblemWrongKind
	ProblemOutOfRange
	ProblemInvalid
)

func (p Problem) String() string {
	switch p {
	case ProblemMissing:
		return "missing"
	case ProblemWrongKind:
		return "wrong kind"
	case ProblemOutOfRange:
		return "out of range"
	case ProblemInvalid:
		return "invalid value"
	default:
		return fmt.Sprintf("problem(%d)", uint8(p))
	}
}

// FieldError reports why a field could not be read.
type FieldError struct {
	Field   string // may be empty for bare values
	Problem Problem
	Want    Kind
	Got     Kind
	Detail  string
}

func (e *FieldError) Error() string {
	var msg string
	switch e.Problem {
	case ProblemMissing:
		msg = "required field is missing"
	case ProblemWrongKind:
		msg = fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
	default:
		msg = e.Problem.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Field == "" {
		return msg
	}
	return fmt.Sprintf("field %q: %s", e.Field, msg)
}

func wrongKind(want Kind, got Value) error {
	return &FieldError{Problem: ProblemWrongKind, Want: want, Got: got.Kind()}
}

func outOfRange(want Kind, got Value, format string, args ...any) error {
	return &FieldError{Problem: ProblemOutOfRange, Want: want, Got: got.Kind(), Detail: fmt.Sprintf(format, args...)}
}

// OutOfRange builds a range error for values that parse but do not fit
// their destination.
func OutOfRange(field, format string, args ...any) error {
	return &FieldError{Field: field, Problem: ProblemOutOfRange, Detail: fmt.Sprintf(format, args...)}
}

// Invalid builds an error for values of the right kind but the wrong form,
// e.g. an array of unexpected length.
func Invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Problem: ProblemInvalid, Detail: fmt.Sprintf(format, args...)}
}

// withField attaches a field name to a nameless FieldError.
func withField(err error, name string) error {
	var fe *FieldError
	if errors.As(err, &fe) && fe.Field == "" {
		cp := *fe
		cp.Field = name
		return &cp
	}
	return err
}

// WithField names the field of a FieldError produced by a bare Value
// accessor, e.g. an array element.
func WithField(err error, name string) error {
	return withField(err, name)
}
