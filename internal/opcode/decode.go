package opcode

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"okroshka/internal/ir"
	"okroshka/internal/record"
)

const instructionEntity = "instruction"

// Decode converts an instruction record into a typed instruction. The record
// carries the mnemonic under "opcode" and the payload under "arg" (or
// "memory_flags" for memflags opcodes).
func (r *Registry) Decode(v record.Value) (ir.Instruction, error) {
	obj, err := v.AsObject()
	if err != nil {
		return ir.Instruction{}, decodeErr(ir.DecodeWrongKind, "", "", err)
	}
	mnemonic, err := obj.String("opcode")
	if err != nil {
		return ir.Instruction{}, fieldErr("opcode", err)
	}
	info, ok := r.Lookup(mnemonic)
	if !ok {
		return ir.Instruction{}, decodeErr(ir.DecodeUnknownOpcode, "opcode", fmt.Sprintf("%q is not registered", mnemonic), nil)
	}
	arg, err := decodeArgument(info, obj)
	if err != nil {
		var de *ir.DecodeError
		if errors.As(err, &de) {
			if de.Detail == "" {
				de.Detail = fmt.Sprintf("%s expects %s payload", info.Mnemonic, info.Shape)
			}
			return ir.Instruction{}, de
		}
		return ir.Instruction{}, err
	}
	return ir.NewInstruction(info, arg)
}

func decodeArgument(info *ir.OpcodeInfo, obj record.Object) (ir.Argument, error) {
	arg := ir.Argument{Kind: info.Shape.ArgKind()}
	var err error
	switch info.Shape {
	case ir.ShapeNone:
	case ir.ShapeI64:
		arg.Int, err = obj.Int64("arg")
	case ir.ShapeU64:
		arg.Uint, err = obj.Uint64("arg")
	case ir.ShapeString:
		var id uint64
		id, err = obj.Uint64("arg")
		arg.String = ir.StringLiteralID(id)
	case ir.ShapeU32Pair:
		arg.Pair, err = decodePair(obj)
	case ir.ShapeF32:
		arg.F32, err = obj.Float32("arg")
	case ir.ShapeF64:
		arg.F64, err = obj.Float64("arg")
	case ir.ShapeBool:
		arg.Bool, err = obj.Bool("arg")
	case ir.ShapeIdentifier:
		var sub record.Object
		if sub, err = obj.Object("arg"); err == nil {
			arg.Ident, err = sub.String("data")
			err = nested("arg", err)
		}
	case ir.ShapeTypeRef:
		arg.TypeRef, err = decodeTypeRef(obj)
	case ir.ShapeCodeRef:
		var off uint64
		if off, err = obj.Uint64("arg"); err == nil {
			arg.Code, err = safecast.Conv[int](off)
			if err != nil {
				err = record.OutOfRange("arg", "code reference %d does not fit int", off)
			}
		}
	case ir.ShapeFuncRef:
		arg.Func, err = decodeFuncRef(obj)
	case ir.ShapeMemFlags:
		var sub record.Object
		if sub, err = obj.Object("memory_flags"); err == nil {
			arg.Mem.Volatile, err = sub.Bool("volatile")
			err = nested("memory_flags", err)
		}
	default:
		return arg, decodeErr(ir.DecodeMalformedPayload, "", fmt.Sprintf("unsupported shape %s", info.Shape), nil)
	}
	if err != nil {
		return arg, payloadErr(err)
	}
	return arg, nil
}

func decodePair(obj record.Object) ([2]uint32, error) {
	var out [2]uint32
	elems, err := obj.Array("arg")
	if err != nil {
		return out, err
	}
	if len(elems) != 2 {
		return out, record.Invalid("arg", "expected 2 elements, got %d", len(elems))
	}
	for i, e := range elems {
		field := fmt.Sprintf("arg[%d]", i)
		u, err := e.AsUint64()
		if err != nil {
			return out, record.WithField(err, field)
		}
		out[i], err = safecast.Conv[uint32](u)
		if err != nil {
			return out, record.OutOfRange(field, "value %d does not fit 32 bits", u)
		}
	}
	return out, nil
}

func decodeTypeRef(obj record.Object) (ir.TypeRef, error) {
	sub, err := obj.Object("arg")
	if err != nil {
		return ir.TypeRef{}, err
	}
	id, err := sub.Uint64("type")
	if err != nil {
		return ir.TypeRef{}, nested("arg", err)
	}
	index, err := sub.Uint64("index")
	if err != nil {
		return ir.TypeRef{}, nested("arg", err)
	}
	return ir.TypeRef{Type: ir.TypeID(id), Index: index}, nil
}

func decodeFuncRef(obj record.Object) (ir.FuncRef, error) {
	sub, err := obj.Object("arg")
	if err != nil {
		return ir.FuncRef{}, err
	}
	id, err := sub.Uint64("identifier")
	if err != nil {
		return ir.FuncRef{}, nested("arg", err)
	}
	name, _, err := sub.OptString("name")
	if err != nil {
		return ir.FuncRef{}, nested("arg", err)
	}
	return ir.FuncRef{Decl: ir.FuncDeclID(id), Name: name}, nil
}

// nested prefixes the field of a FieldError with its parent object.
func nested(parent string, err error) error {
	var fe *record.FieldError
	if err == nil || !errors.As(err, &fe) {
		return err
	}
	cp := *fe
	cp.Field = parent + "." + fe.Field
	return &cp
}

// payloadErr maps a payload field failure to a decode error. Values that do
// not fit their destination are OutOfRange; anything else is a malformed
// payload.
func payloadErr(err error) error {
	var fe *record.FieldError
	if !errors.As(err, &fe) {
		return decodeErr(ir.DecodeMalformedPayload, "", "", err)
	}
	kind := ir.DecodeMalformedPayload
	if fe.Problem == record.ProblemOutOfRange {
		kind = ir.DecodeOutOfRange
	}
	return decodeErr(kind, fe.Field, "", err)
}

// fieldErr maps an envelope field failure to a decode error.
func fieldErr(field string, err error) error {
	var fe *record.FieldError
	kind := ir.DecodeWrongKind
	if errors.As(err, &fe) {
		switch fe.Problem {
		case record.ProblemMissing:
			kind = ir.DecodeMissingField
		case record.ProblemOutOfRange:
			kind = ir.DecodeOutOfRange
		}
	}
	return decodeErr(kind, field, "", err)
}

func decodeErr(kind ir.DecodeErrorKind, field, detail string, err error) *ir.DecodeError {
	return &ir.DecodeError{Kind: kind, Entity: instructionEntity, Field: field, Detail: detail, Err: err}
}
