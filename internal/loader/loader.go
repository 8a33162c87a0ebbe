// Package loader turns an interchange document into a validated IR module.
//
// Decoding is all-or-nothing: the first malformed field aborts the load with
// an *ir.DecodeError. A fully decoded document is handed to ir.NewModule,
// which reports broken cross-table references as *ir.ValidationError.
package loader

import (
	"context"
	"fmt"
	"os"

	"okroshka/internal/ir"
	"okroshka/internal/observ"
	"okroshka/internal/opcode"
	"okroshka/internal/record"
	"okroshka/internal/trace"
)

// Table names as they appear in documents.
const (
	TableTypes                = "types"
	TableStringLiterals       = "string_literals"
	TableGlobals              = "globals"
	TableExternals            = "externals"
	TableFunctionDeclarations = "function_declarations"
	TableFunctions            = "functions"
	TableData                 = "data"
	TableInlineAssembly       = "inline_assembly"
)

// LoadFile reads, decodes and validates the document at path.
func LoadFile(ctx context.Context, path string, format record.Format, reg *opcode.Registry) (*ir.Module, error) {
	end := observ.TimerFrom(ctx).Track("read")
	data, err := os.ReadFile(path)
	end(path)
	if err != nil {
		return nil, err
	}
	m, err := LoadBytes(ctx, data, format, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadBytes parses data in the given format, then decodes and validates it.
func LoadBytes(ctx context.Context, data []byte, format record.Format, reg *opcode.Registry) (*ir.Module, error) {
	doc, err := Parse(ctx, data, format)
	if err != nil {
		return nil, err
	}
	return Load(ctx, doc, reg)
}

// Parse reads data into a record tree. Syntax errors are reported as
// *ir.DecodeError of kind DecodeSyntax.
func Parse(ctx context.Context, data []byte, format record.Format) (record.Value, error) {
	if format == record.FormatAuto {
		format = record.Detect(data)
	}
	_, span := trace.Start(ctx, trace.ScopePass, "parse")
	end := observ.TimerFrom(ctx).Track("parse")
	doc, err := record.Decode(data, format)
	end(format.String())
	span.WithExtra("format", format.String()).End("")
	if err != nil {
		return record.Null, &ir.DecodeError{Kind: ir.DecodeSyntax, Entity: "document", Err: err}
	}
	return doc, nil
}

// Load decodes doc and validates the resulting module.
func Load(ctx context.Context, doc record.Value, reg *opcode.Registry) (*ir.Module, error) {
	tables, err := Decode(ctx, doc, reg)
	if err != nil {
		return nil, err
	}
	return Validate(ctx, tables)
}

// Validate assembles decoded tables into a module, reporting the first
// broken cross-table reference.
func Validate(ctx context.Context, tables ir.Tables) (*ir.Module, error) {
	_, span := trace.Start(ctx, trace.ScopePass, "validate")
	end := observ.TimerFrom(ctx).Track("validate")
	m, err := ir.NewModule(tables)
	if err != nil {
		end("failed")
		span.End(err.Error())
		return nil, err
	}
	end("")
	span.End("ok")
	return m, nil
}

// Decode converts doc into module tables without checking cross-table
// references. A nil registry selects the built-in instruction set.
func Decode(ctx context.Context, doc record.Value, reg *opcode.Registry) (ir.Tables, error) {
	if err := ctx.Err(); err != nil {
		return ir.Tables{}, err
	}
	if reg == nil {
		reg = opcode.Default()
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "decode")
	tables, err := decodeTables(ctx, doc, reg)
	if err != nil {
		span.End(err.Error())
		return ir.Tables{}, err
	}
	span.End("ok")
	return tables, nil
}

func decodeTables(ctx context.Context, doc record.Value, reg *opcode.Registry) (ir.Tables, error) {
	obj, err := doc.AsObject()
	if err != nil {
		return ir.Tables{}, fail("module", "", "", err)
	}
	var t ir.Tables
	// Types and string literals first so later tables can be checked
	// against them once the module is assembled.
	steps := []struct {
		name string
		run  func(context.Context, []record.Value) error
	}{
		{TableTypes, func(ctx context.Context, vs []record.Value) (err error) {
			t.Types, err = collect(ctx, "type", vs, decodeType)
			return err
		}},
		{TableStringLiterals, func(ctx context.Context, vs []record.Value) (err error) {
			t.StringLiterals, err = collect(ctx, "string literal", vs, decodeStringLiteral)
			return err
		}},
		{TableGlobals, func(ctx context.Context, vs []record.Value) (err error) {
			t.Globals, err = collect(ctx, "global", vs, symbolDecoder("global"))
			return err
		}},
		{TableExternals, func(ctx context.Context, vs []record.Value) (err error) {
			t.Externals, err = collect(ctx, "external", vs, symbolDecoder("external"))
			return err
		}},
		{TableFunctionDeclarations, func(ctx context.Context, vs []record.Value) (err error) {
			t.FunctionDeclarations, err = collect(ctx, "function declaration", vs, decodeFunctionDeclaration)
			return err
		}},
		{TableFunctions, func(ctx context.Context, vs []record.Value) (err error) {
			t.Functions, err = collect(ctx, "function", vs, func(v record.Value, i int) (string, ir.Function, error) {
				return decodeFunction(reg, v, i)
			})
			return err
		}},
		{TableData, func(ctx context.Context, vs []record.Value) (err error) {
			t.Data, err = collect(ctx, "data", vs, decodeData)
			return err
		}},
		{TableInlineAssembly, func(ctx context.Context, vs []record.Value) (err error) {
			t.InlineAssembly, err = collect(ctx, "inline assembly", vs, decodeInlineAssembly)
			return err
		}},
	}

	timer := observ.TimerFrom(ctx)
	for _, step := range steps {
		elems, err := obj.Array(step.name)
		if err != nil {
			return ir.Tables{}, fail("module", "", "", err)
		}
		tctx, span := trace.Start(ctx, trace.ScopeTable, "table:"+step.name)
		end := timer.Track("decode:" + step.name)
		err = step.run(tctx, elems)
		note := fmt.Sprintf("%d entries", len(elems))
		end(note)
		if err != nil {
			span.End(err.Error())
			return ir.Tables{}, err
		}
		span.End(note)
	}
	return t, nil
}

func symbolDecoder(entity string) func(record.Value, int) (string, ir.Symbol, error) {
	return func(v record.Value, i int) (string, ir.Symbol, error) {
		return decodeSymbol(entity, v, i)
	}
}

// collect decodes every element of a table and indexes it by key.
func collect[K comparable, V any](ctx context.Context, entity string, elems []record.Value, decode func(record.Value, int) (K, V, error)) (map[K]V, error) {
	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	out := make(map[K]V, len(elems))
	for i, e := range elems {
		k, v, err := decode(e, i)
		if err != nil {
			return nil, err
		}
		if _, dup := out[k]; dup {
			return nil, duplicateKey(entity, k)
		}
		out[k] = v
		trace.Point(tr, trace.ScopeEntity, entity, fmt.Sprint(k), parent)
	}
	return out, nil
}
