package testkit

// Doc builds interchange documents for tests. Every table starts present and
// empty; the helpers append entities in document form.
type Doc map[string]any

// NewDoc returns a document with every module table empty.
func NewDoc() Doc {
	return Doc{
		"globals":               []any{},
		"externals":             []any{},
		"types":                 []any{},
		"string_literals":       []any{},
		"function_declarations": []any{},
		"functions":             []any{},
		"data":                  []any{},
		"inline_assembly":       []any{},
	}
}

// Add appends entries to table.
func (d Doc) Add(table string, entries ...any) Doc {
	list, _ := d[table].([]any)
	d[table] = append(list, entries...)
	return d
}

// Set replaces table with entries.
func (d Doc) Set(table string, entries ...any) Doc {
	d[table] = append([]any{}, entries...)
	return d
}

// Scalar returns a type record with a single entry of the given kind.
func Scalar(id int, kind string) map[string]any {
	return map[string]any{"identifier": id, "type": []any{map[string]any{"type": kind}}}
}

// Decl returns a function declaration record.
func Decl(id, params, returns int) map[string]any {
	return map[string]any{"identifier": id, "parameters": params, "vararg": false, "returns": returns}
}

// Func returns a function record with the given body.
func Func(name string, decl, locals int, body ...any) map[string]any {
	return map[string]any{"identifier": decl, "name": name, "locals": locals, "body": append([]any{}, body...)}
}

// Op returns an instruction record. A nil arg is omitted.
func Op(mnemonic string, arg any) map[string]any {
	rec := map[string]any{"opcode": mnemonic}
	if arg != nil {
		rec["arg"] = arg
	}
	return rec
}

// Minimal returns the smallest valid module: one int32 type, one declaration
// and a function f that returns.
func Minimal() Doc {
	return NewDoc().
		Add("types", Scalar(1, "int32")).
		Add("function_declarations", Decl(1, 1, 1)).
		Add("functions", Func("f", 1, 1, Op("ret", nil)))
}
