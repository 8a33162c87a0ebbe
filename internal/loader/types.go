package loader

import (
	"fmt"
	"slices"

	"okroshka/internal/ir"
	"okroshka/internal/record"
)

const typeEntity = "type"

// pendingEntry is a type entry record waiting to be flattened.
type pendingEntry struct {
	v    record.Value
	path string
}

func decodeType(v record.Value, i int) (ir.TypeID, ir.Type, error) {
	key := position(i)
	obj, err := v.AsObject()
	if err != nil {
		return 0, ir.Type{}, fail(typeEntity, key, "", err)
	}
	id, err := obj.Uint64("identifier")
	if err != nil {
		return 0, ir.Type{}, fail(typeEntity, key, "", err)
	}
	key = fmt.Sprint(id)
	roots, err := obj.Array("type")
	if err != nil {
		return 0, ir.Type{}, fail(typeEntity, key, "", err)
	}
	entries, err := flattenEntries(roots, key)
	if err != nil {
		return 0, ir.Type{}, err
	}
	return ir.TypeID(id), ir.NewType(ir.TypeID(id), entries), nil
}

// flattenEntries emits the pre-order flattening of a forest of nested type
// entry records. Struct and union fields and array elements are pushed on an
// explicit stack so deeply nested types cannot exhaust the goroutine stack.
func flattenEntries(roots []record.Value, key string) ([]ir.TypeEntry, error) {
	stack := make([]pendingEntry, 0, len(roots))
	pushAll := func(vals []record.Value, prefix string) {
		for j := len(vals) - 1; j >= 0; j-- {
			stack = append(stack, pendingEntry{v: vals[j], path: fmt.Sprintf("%s[%d]", prefix, j)})
		}
	}
	pushAll(roots, "type")

	var entries []ir.TypeEntry
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, err := top.v.AsObject()
		if err != nil {
			return nil, fail(typeEntity, key, top.path, err)
		}
		tag, err := obj.String("type")
		if err != nil {
			return nil, fail(typeEntity, key, top.path, err)
		}
		kind, ok := ir.ParseTypeKind(tag)
		if !ok {
			return nil, unknownTag(typeEntity, key, joinField(top.path, "type"), tag)
		}
		entry := ir.TypeEntry{Kind: kind}
		if entry.Alignment, err = obj.OptUint64("alignment", 0); err != nil {
			return nil, fail(typeEntity, key, top.path, err)
		}

		switch kind {
		case ir.TypeBits:
			if entry.Width, err = obj.Uint64("width"); err != nil {
				return nil, fail(typeEntity, key, top.path, err)
			}
		case ir.TypeBuiltin:
			class, err := obj.String("class")
			if err != nil {
				return nil, fail(typeEntity, key, top.path, err)
			}
			if class != "vararg" {
				return nil, unknownTag(typeEntity, key, joinField(top.path, "class"), class)
			}
			entry.Builtin = ir.BuiltinVarargList
		case ir.TypeStruct, ir.TypeUnion:
			fields, err := obj.Array("fields")
			if err != nil {
				return nil, fail(typeEntity, key, top.path, err)
			}
			entry.Fields = len(fields)
			pushAll(fields, joinField(top.path, "fields"))
		case ir.TypeArray:
			if entry.Length, err = obj.Uint64("length"); err != nil {
				return nil, fail(typeEntity, key, top.path, err)
			}
			elem, err := obj.Require("element_type")
			if err != nil {
				return nil, fail(typeEntity, key, top.path, err)
			}
			stack = append(stack, pendingEntry{v: elem, path: joinField(top.path, "element_type")})
		}
		entries = append(entries, entry)
	}
	return slices.Clip(entries), nil
}
