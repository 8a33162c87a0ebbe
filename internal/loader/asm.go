package loader

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"okroshka/internal/ir"
	"okroshka/internal/record"
)

const asmEntity = "inline assembly"

func decodeInlineAssembly(v record.Value, i int) (ir.InlineAsmID, *ir.InlineAssembly, error) {
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	id, err := obj.Uint64("identifier")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	key = fmt.Sprint(id)
	global, err := obj.Bool("global")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	template, err := obj.String("template")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}

	paramVals, err := obj.Array("parameters")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	params := make(map[ir.AsmParamID]*ir.AsmParameter, len(paramVals))
	for j, pv := range paramVals {
		path := fmt.Sprintf("parameters[%d]", j)
		p, err := decodeAsmParameter(pv, key, path)
		if err != nil {
			return 0, nil, err
		}
		if _, dup := params[p.ID]; dup {
			return 0, nil, duplicateKey(asmEntity+" parameter", fmt.Sprintf("%s/%d", key, p.ID))
		}
		params[p.ID] = p
	}

	clobberVals, err := obj.Array("clobbers")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	clobbers, err := decodeStrings(clobberVals, "clobbers")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}

	targetVals, err := obj.Array("jump_targets")
	if err != nil {
		return 0, nil, fail(asmEntity, key, "", err)
	}
	targets := make(map[ir.AsmJumpTargetID]*ir.AsmJumpTarget, len(targetVals))
	for j, tv := range targetVals {
		path := fmt.Sprintf("jump_targets[%d]", j)
		t, err := decodeJumpTarget(tv, key, path)
		if err != nil {
			return 0, nil, err
		}
		if _, dup := targets[t.ID]; dup {
			return 0, nil, duplicateKey(asmEntity+" jump target", fmt.Sprintf("%s/%d", key, t.ID))
		}
		targets[t.ID] = t
	}

	asm, err := ir.NewInlineAssembly(ir.InlineAsmID(id), global, template, params, clobbers, targets)
	if err != nil {
		return 0, nil, err
	}
	return asm.ID, asm, nil
}

func decodeStrings(vals []record.Value, field string) ([]string, error) {
	out := make([]string, len(vals))
	for i, v := range vals {
		s, err := v.AsString()
		if err != nil {
			return nil, record.WithField(err, fmt.Sprintf("%s[%d]", field, i))
		}
		out[i] = s
	}
	return out, nil
}

func decodeAsmParameter(v record.Value, key, path string) (*ir.AsmParameter, error) {
	obj, err := v.AsObject()
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	id, err := obj.Uint64("identifier")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	p := &ir.AsmParameter{ID: ir.AsmParamID(id)}
	names, err := obj.Array("names")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	if p.Aliases, err = decodeStrings(names, "names"); err != nil {
		return nil, fail(asmEntity, key, path, err)
	}

	class, err := obj.String("class")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	switch class {
	case "read":
		p.Class = ir.AsmRead
		p.Type, p.Slot, err = decodeOperand(obj, "type", "type_index", "from")
	case "load":
		p.Class = ir.AsmLoad
		p.Type, p.Slot, err = decodeOperand(obj, "type", "type_index", "from")
	case "store":
		p.Class = ir.AsmStore
		p.Type, p.Slot, err = decodeOperand(obj, "type", "type_index", "to")
	case "load_store":
		p.Class = ir.AsmLoadStore
		p.Type, p.Slot, err = decodeOperand(obj, "type", "type_index", "from_to")
	case "read_store":
		p.Class = ir.AsmReadStore
		if p.Type, p.Slot, err = decodeOperand(obj, "from_type", "from_type_index", "from"); err == nil {
			p.ToType, p.ToSlot, err = decodeStoreSide(obj)
		}
	case "immediate":
		err = decodeImmediate(obj, p)
		var uv unknownVariant
		if errors.As(err, &uv) {
			return nil, unknownTag(asmEntity, key, joinField(path, "variant"), string(uv))
		}
	default:
		return nil, unknownTag(asmEntity, key, joinField(path, "class"), class)
	}
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}

	constraint, err := obj.String("constraint")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	switch constraint {
	case "none":
		p.Constraint = ir.AsmConstraintNone
	case "register":
		p.Constraint = ir.AsmConstraintRegister
	case "memory":
		p.Constraint = ir.AsmConstraintMemory
	case "register_memory":
		p.Constraint = ir.AsmConstraintRegisterMemory
	default:
		return nil, unknownTag(asmEntity, key, joinField(path, "constraint"), constraint)
	}
	return p, nil
}

func decodeOperand(obj record.Object, typeField, indexField, slotField string) (ir.TypeRef, uint64, error) {
	id, err := obj.Uint64(typeField)
	if err != nil {
		return ir.TypeRef{}, 0, err
	}
	index, err := obj.Uint64(indexField)
	if err != nil {
		return ir.TypeRef{}, 0, err
	}
	slot, err := obj.Uint64(slotField)
	if err != nil {
		return ir.TypeRef{}, 0, err
	}
	return ir.TypeRef{Type: ir.TypeID(id), Index: index}, slot, nil
}

// decodeStoreSide reads the destination operand of read_store. Documents
// that only carry from_* fields describe a parameter read and written
// through the same slot.
func decodeStoreSide(obj record.Object) (ir.TypeRef, uint64, error) {
	if !obj.Present("to_type") && !obj.Present("to_type_index") && !obj.Present("to") {
		return decodeOperand(obj, "from_type", "from_type_index", "from")
	}
	return decodeOperand(obj, "to_type", "to_type_index", "to")
}

type unknownVariant string

func (u unknownVariant) Error() string { return fmt.Sprintf("unknown immediate variant %q", string(u)) }

func decodeImmediate(obj record.Object, p *ir.AsmParameter) error {
	id, err := obj.Uint64("type")
	if err != nil {
		return err
	}
	index, err := obj.Uint64("type_index")
	if err != nil {
		return err
	}
	p.Type = ir.TypeRef{Type: ir.TypeID(id), Index: index}
	if p.Value, err = obj.Int64("value"); err != nil {
		return err
	}

	variant, ok, err := obj.OptString("variant")
	if err != nil {
		return err
	}
	if !ok {
		p.Class = ir.AsmImmediateConstant
		return nil
	}
	switch variant {
	case "identifier_based":
		sym, ok, err := obj.OptString("base")
		if err != nil {
			return err
		}
		if !ok {
			p.Class = ir.AsmImmediateConstant
			return nil
		}
		p.Class, p.Symbol = ir.AsmImmediateIdentifierBased, sym
	case "literal_based":
		lit, err := obj.Uint64("base")
		if err != nil {
			return err
		}
		p.Class, p.Literal = ir.AsmImmediateLiteralBased, ir.StringLiteralID(lit)
	default:
		return unknownVariant(variant)
	}
	return nil
}

func decodeJumpTarget(v record.Value, key, path string) (*ir.AsmJumpTarget, error) {
	obj, err := v.AsObject()
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	id, err := obj.Uint64("identifier")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	t := &ir.AsmJumpTarget{ID: ir.AsmJumpTargetID(id)}
	names, err := obj.Array("names")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	if t.Aliases, err = decodeStrings(names, "names"); err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	if t.Function, err = obj.String("function"); err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	offset, err := obj.Uint64("target")
	if err != nil {
		return nil, fail(asmEntity, key, path, err)
	}
	if t.Offset, err = safecast.Conv[int](offset); err != nil {
		return nil, fail(asmEntity, key, path, record.OutOfRange("target", "offset %d does not fit int", offset))
	}
	return t, nil
}
