package loader

import (
	"fmt"

	"fortio.org/safecast"

	"okroshka/internal/ir"
	"okroshka/internal/opcode"
	"okroshka/internal/record"
)

func decodeSymbol(entity string, v record.Value, i int) (string, ir.Symbol, error) {
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return "", ir.Symbol{}, fail(entity, key, "", err)
	}
	name, err := obj.String("identifier")
	if err != nil {
		return "", ir.Symbol{}, fail(entity, key, "", err)
	}
	tag, err := obj.String("type")
	if err != nil {
		return "", ir.Symbol{}, fail(entity, name, "", err)
	}
	sym := ir.Symbol{Name: name}
	switch tag {
	case "global":
		sym.Kind = ir.SymbolGlobal
	case "thread_local":
		sym.Kind = ir.SymbolThreadLocal
	default:
		return "", ir.Symbol{}, unknownTag(entity, name, "type", tag)
	}
	return name, sym, nil
}

func decodeFunctionDeclaration(v record.Value, i int) (ir.FuncDeclID, ir.FunctionDeclaration, error) {
	const entity = "function declaration"
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return 0, ir.FunctionDeclaration{}, fail(entity, key, "", err)
	}
	id, err := obj.Uint64("identifier")
	if err != nil {
		return 0, ir.FunctionDeclaration{}, fail(entity, key, "", err)
	}
	key = fmt.Sprint(id)
	decl := ir.FunctionDeclaration{ID: ir.FuncDeclID(id)}
	if decl.Name, _, err = obj.OptString("name"); err != nil {
		return 0, decl, fail(entity, key, "", err)
	}
	params, err := obj.Uint64("parameters")
	if err != nil {
		return 0, decl, fail(entity, key, "", err)
	}
	if decl.Vararg, err = obj.Bool("vararg"); err != nil {
		return 0, decl, fail(entity, key, "", err)
	}
	result, err := obj.Uint64("returns")
	if err != nil {
		return 0, decl, fail(entity, key, "", err)
	}
	decl.Params, decl.Result = ir.TypeID(params), ir.TypeID(result)
	return decl.ID, decl, nil
}

func decodeFunction(reg *opcode.Registry, v record.Value, i int) (string, ir.Function, error) {
	const entity = "function"
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return "", ir.Function{}, fail(entity, key, "", err)
	}
	name, err := obj.String("name")
	if err != nil {
		return "", ir.Function{}, fail(entity, key, "", err)
	}
	decl, err := obj.Uint64("identifier")
	if err != nil {
		return "", ir.Function{}, fail(entity, name, "", err)
	}
	locals, err := obj.Uint64("locals")
	if err != nil {
		return "", ir.Function{}, fail(entity, name, "", err)
	}
	body, err := obj.Array("body")
	if err != nil {
		return "", ir.Function{}, fail(entity, name, "", err)
	}
	instrs := make([]ir.Instruction, len(body))
	for j, rec := range body {
		if instrs[j], err = reg.Decode(rec); err != nil {
			return "", ir.Function{}, fail(entity, fmt.Sprintf("%s[%d]", name, j), "", err)
		}
	}
	return name, ir.Function{
		Name:        name,
		Declaration: ir.FuncDeclID(decl),
		Locals:      ir.TypeID(locals),
		Body:        ir.NewBlock(instrs...),
	}, nil
}

func decodeData(v record.Value, i int) (string, ir.DataObject, error) {
	const entity = "data"
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return "", ir.DataObject{}, fail(entity, key, "", err)
	}
	name, err := obj.String("identifier")
	if err != nil {
		return "", ir.DataObject{}, fail(entity, key, "", err)
	}
	tag, err := obj.String("storage")
	if err != nil {
		return "", ir.DataObject{}, fail(entity, name, "", err)
	}
	var storage ir.DataStorage
	switch tag {
	case "global":
		storage = ir.StorageGlobal
	case "thread_local":
		storage = ir.StorageThreadLocal
	default:
		return "", ir.DataObject{}, unknownTag(entity, name, "storage", tag)
	}
	typ, err := obj.Uint64("type")
	if err != nil {
		return "", ir.DataObject{}, fail(entity, name, "", err)
	}
	values, err := obj.Array("value")
	if err != nil {
		return "", ir.DataObject{}, fail(entity, name, "", err)
	}
	elems := make([]ir.DataElement, len(values))
	for j, ev := range values {
		if elems[j], err = decodeDataElement(ev, name, fmt.Sprintf("value[%d]", j)); err != nil {
			return "", ir.DataObject{}, err
		}
	}
	return name, ir.NewDataObject(name, storage, ir.TypeID(typ), elems), nil
}

func decodeDataElement(v record.Value, owner, path string) (ir.DataElement, error) {
	const entity = "data"
	obj, err := v.AsObject()
	if err != nil {
		return ir.DataElement{}, fail(entity, owner, path, err)
	}
	class, err := obj.String("class")
	if err != nil {
		return ir.DataElement{}, fail(entity, owner, path, err)
	}
	var el ir.DataElement
	switch class {
	case "undefined":
		el.Kind = ir.DataUndefined
		el.Count, err = obj.OptUint64("count", 1)
	case "aggregate":
		el.Kind = ir.DataAggregate
	case "integer":
		el.Kind = ir.DataInteger
		el.Int, err = obj.Int64("value")
	case "float32":
		el.Kind = ir.DataFloat32
		el.F32, err = obj.Float32("value")
	case "float64":
		el.Kind = ir.DataFloat64
		el.Float, err = obj.Float64("value")
	case "long_double":
		el.Kind = ir.DataLongDouble
		el.Float, err = obj.Float64("value")
	case "string":
		el.Kind = ir.DataString
		var s string
		s, err = obj.String("content")
		el.Bytes = []byte(s)
	case "pointer":
		el.Kind = ir.DataPointer
		if el.Symbol, err = obj.String("reference"); err == nil {
			el.Offset, err = obj.Int64("offset")
		}
	case "string_pointer":
		el.Kind = ir.DataStringPointer
		var id uint64
		if id, err = obj.Uint64("string"); err == nil {
			el.Literal = ir.StringLiteralID(id)
			el.Offset, err = obj.Int64("offset")
		}
	case "raw":
		el.Kind = ir.DataRaw
		el.Bytes, err = decodeRaw(obj)
	default:
		return ir.DataElement{}, unknownTag(entity, owner, joinField(path, "class"), class)
	}
	if err != nil {
		return ir.DataElement{}, fail(entity, owner, path, err)
	}
	return el, nil
}

func decodeRaw(obj record.Object) ([]byte, error) {
	vals, err := obj.Array("value")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		field := fmt.Sprintf("value[%d]", i)
		u, err := v.AsUint64()
		if err != nil {
			return nil, record.WithField(err, field)
		}
		if out[i], err = safecast.Conv[byte](u); err != nil {
			return nil, record.OutOfRange(field, "byte %d exceeds 255", u)
		}
	}
	return out, nil
}

func decodeStringLiteral(v record.Value, i int) (ir.StringLiteralID, ir.StringLiteral, error) {
	const entity = "string literal"
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return 0, ir.StringLiteral{}, fail(entity, key, "", err)
	}
	id, err := obj.Uint64("id")
	if err != nil {
		return 0, ir.StringLiteral{}, fail(entity, key, "", err)
	}
	key = fmt.Sprint(id)
	lit := ir.StringLiteral{ID: ir.StringLiteralID(id)}
	if lit.Public, err = obj.Bool("public"); err != nil {
		return 0, lit, fail(entity, key, "", err)
	}
	tag, err := obj.String("type")
	if err != nil {
		return 0, lit, fail(entity, key, "", err)
	}
	switch tag {
	case "multibyte":
		lit.Kind = ir.StringMultibyte
		var s string
		s, err = obj.String("literal")
		lit.Bytes = []byte(s)
	case "unicode16":
		lit.Kind = ir.StringUnicode16
		lit.Units16, err = decodeUnits[uint16](obj)
	case "unicode32":
		lit.Kind = ir.StringUnicode32
		lit.Units32, err = decodeUnits[uint32](obj)
	default:
		return 0, lit, unknownTag(entity, key, "type", tag)
	}
	if err != nil {
		return 0, lit, fail(entity, key, "", err)
	}
	return lit.ID, lit, nil
}

// decodeUnits reads the "literal" array of code units, each of which must
// fit U.
func decodeUnits[U uint16 | uint32](obj record.Object) ([]U, error) {
	vals, err := obj.Array("literal")
	if err != nil {
		return nil, err
	}
	out := make([]U, len(vals))
	for i, v := range vals {
		field := fmt.Sprintf("literal[%d]", i)
		u, err := v.AsUint64()
		if err != nil {
			return nil, record.WithField(err, field)
		}
		if out[i], err = safecast.Conv[U](u); err != nil {
			return nil, record.OutOfRange(field, "code unit %d does not fit", u)
		}
	}
	return out, nil
}
