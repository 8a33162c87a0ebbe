package loader

import (
	"errors"
	"fmt"

	"okroshka/internal/ir"
	"okroshka/internal/record"
)

// fail converts a field access failure into a decode error naming the
// entity and key it occurred in.
func fail(entity, key, field string, err error) error {
	var de *ir.DecodeError
	if errors.As(err, &de) {
		cp := *de
		if cp.Key == "" {
			cp.Key = key
		}
		if cp.Entity == "" {
			cp.Entity = entity
		}
		return &cp
	}
	kind := ir.DecodeWrongKind
	var fe *record.FieldError
	if errors.As(err, &fe) {
		if fe.Field != "" {
			field = joinField(field, fe.Field)
		}
		switch fe.Problem {
		case record.ProblemMissing:
			kind = ir.DecodeMissingField
		case record.ProblemOutOfRange:
			kind = ir.DecodeOutOfRange
		}
	}
	return &ir.DecodeError{Kind: kind, Entity: entity, Key: key, Field: field, Err: err}
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	case field[0] == '[':
		return prefix + field
	default:
		return prefix + "." + field
	}
}

func unknownTag(entity, key, field, tag string) error {
	return &ir.DecodeError{
		Kind:   ir.DecodeUnknownTag,
		Entity: entity,
		Key:    key,
		Field:  field,
		Detail: fmt.Sprintf("%q is not recognized", tag),
	}
}

func position(i int) string { return fmt.Sprintf("#%d", i) }

func duplicateKey(entity string, key any) error {
	return &ir.ValidationError{
		Kind:    ir.ValDuplicateKey,
		Entity:  entity,
		Key:     fmt.Sprint(key),
		Message: "key appears more than once in the table",
	}
}
