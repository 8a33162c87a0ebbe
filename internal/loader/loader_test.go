package loader_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"okroshka/internal/ir"
	"okroshka/internal/loader"
	"okroshka/internal/observ"
	"okroshka/internal/record"
	"okroshka/internal/testkit"
	"okroshka/internal/trace"
)

const fixture = "testdata/module.json"

func loadFixture(t *testing.T) *ir.Module {
	t.Helper()
	m, err := loader.LoadFile(context.Background(), fixture, record.FormatAuto, nil)
	if err != nil {
		t.Fatalf("load %s: %v", fixture, err)
	}
	return m
}

func emptyDoc() map[string]any { return testkit.NewDoc() }

func int32Type(id int) map[string]any { return testkit.Scalar(id, "int32") }

func load(doc map[string]any) (*ir.Module, error) {
	return loader.Load(context.Background(), record.MustOf(doc), nil)
}

func TestLoadFixture(t *testing.T) {
	m := loadFixture(t)

	want := ir.Counts{Globals: 3, Externals: 1, Types: 3, StringLiterals: 3, FunctionDeclarations: 3, Functions: 1, Data: 2, InlineAssembly: 1}
	if got := m.Counts(); got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
	if err := testkit.CheckModuleInvariants(m); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if sym, ok := m.Global("tls_slot"); !ok || sym.Kind != ir.SymbolThreadLocal {
		t.Fatalf("tls_slot = %+v, %v", sym, ok)
	}
	if !m.IsExternal("printf") || m.IsGlobal("printf") {
		t.Fatalf("printf should be external only")
	}

	typ, ok := m.Type(2)
	if !ok {
		t.Fatalf("type 2 missing")
	}
	kinds := []ir.TypeKind{ir.TypeStruct, ir.TypeInt64, ir.TypeArray, ir.TypeChar}
	if typ.Len() != len(kinds) {
		t.Fatalf("type 2 has %d entries, want %d", typ.Len(), len(kinds))
	}
	for i, k := range kinds {
		if typ.At(i).Kind != k {
			t.Errorf("type 2 entry %d = %v, want %v", i, typ.At(i).Kind, k)
		}
	}
	if root := typ.At(0); root.Alignment != 8 || root.Fields != 2 {
		t.Errorf("struct entry = %+v", root)
	}
	if arr := typ.At(2); arr.Length != 4 {
		t.Errorf("array length = %d", arr.Length)
	}

	fn, ok := m.Function("main")
	if !ok {
		t.Fatalf("function main missing")
	}
	mnemonics := []string{"getglobal", "load32u", "pushstring", "invoke", "offsetptr", "branch", "ret"}
	if fn.Body.Len() != len(mnemonics) {
		t.Fatalf("body has %d instructions", fn.Body.Len())
	}
	for i, instr := range fn.Body.Instructions() {
		if instr.Mnemonic() != mnemonics[i] {
			t.Errorf("instr %d = %s, want %s", i, instr.Mnemonic(), mnemonics[i])
		}
	}
	if arg := fn.Body.At(1).Argument(); !arg.Mem.Volatile {
		t.Errorf("load32u should be volatile: %s", spew.Sdump(arg))
	}
	if arg := fn.Body.At(3).Argument(); arg.Func.Decl != 2 || arg.Func.Name != "printf" {
		t.Errorf("invoke arg = %s", spew.Sdump(arg.Func))
	}
	if arg := fn.Body.At(5).Argument(); arg.Code != 7 {
		t.Errorf("branch target = %d", arg.Code)
	}

	decl, _ := m.FunctionDeclaration(3)
	if decl.Name != "" {
		t.Errorf("null name should decode as empty, got %q", decl.Name)
	}

	table, _ := m.Data("table")
	if table.Storage != ir.StorageThreadLocal || table.Len() != 7 {
		t.Fatalf("table = %v with %d elements", table.Storage, table.Len())
	}
	if raw := table.At(2); !bytes.Equal(raw.Bytes, []byte{1, 2, 255}) {
		t.Errorf("raw bytes = %v", raw.Bytes)
	}
	if undef := table.At(5); undef.Kind != ir.DataUndefined || undef.Count != 1 {
		t.Errorf("undefined element = %+v", undef)
	}

	for id, want := range map[ir.StringLiteralID]string{0: "hi %d\n", 1: "hi", 2: "\U0001F600"} {
		lit, _ := m.StringLiteral(id)
		got, err := lit.Text()
		if err != nil || got != want {
			t.Errorf("literal %d text = %q, %v; want %q", id, got, err, want)
		}
	}
}

func TestLoadFixtureInlineAssembly(t *testing.T) {
	m := loadFixture(t)
	asm, ok := m.InlineAssembly(0)
	if !ok {
		t.Fatalf("inline assembly 0 missing")
	}
	rs, _ := asm.Parameter(1)
	if rs.Class != ir.AsmReadStore {
		t.Fatalf("parameter 1 class = %v", rs.Class)
	}
	// The document carries only from_* fields for read_store.
	if rs.ToType != rs.Type || rs.ToSlot != rs.Slot || rs.Slot != 1 {
		t.Errorf("read_store fallback: %s", spew.Sdump(rs))
	}
	imm, _ := asm.Parameter(2)
	if imm.Class != ir.AsmImmediateLiteralBased || imm.Literal != 0 || imm.Value != 42 {
		t.Errorf("immediate = %s", spew.Sdump(imm))
	}
	if target, ok := asm.Alias("done"); !ok || target.Kind != ir.AliasJumpTarget {
		t.Errorf("alias done = %+v, %v", target, ok)
	}
	if target, ok := asm.Alias("0"); !ok || target.Kind != ir.AliasParameter || target.ID != 0 {
		t.Errorf("alias 0 = %+v, %v", target, ok)
	}
	if !asm.HasClobber("cc") || asm.HasClobber("rax") {
		t.Errorf("clobbers = %v", asm.Clobbers())
	}
}

func TestJSONAndMsgpackLoadEquivalentModules(t *testing.T) {
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	doc, err := loader.Parse(ctx, data, record.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var packed bytes.Buffer
	if err := record.Encode(&packed, doc, record.FormatMsgpack); err != nil {
		t.Fatal(err)
	}

	fromJSON, err := loader.LoadBytes(ctx, data, record.FormatAuto, nil)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromMsgpack, err := loader.LoadBytes(ctx, packed.Bytes(), record.FormatAuto, nil)
	if err != nil {
		t.Fatalf("msgpack: %v", err)
	}

	var a, b strings.Builder
	if err := ir.DumpModule(&a, fromJSON, ir.DumpOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := ir.DumpModule(&b, fromMsgpack, ir.DumpOptions{}); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Fatalf("dumps differ:\njson:\n%s\nmsgpack:\n%s", a.String(), b.String())
	}
}

func TestScenarioResultTypeMustExist(t *testing.T) {
	if _, err := load(testkit.Minimal()); err != nil {
		t.Fatalf("valid module rejected: %v", err)
	}
	doc := testkit.Minimal().Set(loader.TableFunctionDeclarations, testkit.Decl(1, 1, 2))
	_, err := load(doc)
	var ve *ir.ValidationError
	if !errors.As(err, &ve) || ve.Kind != ir.ValDanglingType {
		t.Fatalf("expected dangling type, got %v", err)
	}
	if !strings.Contains(err.Error(), "type identifier does not exist") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestScenarioStringLiteralMustExist(t *testing.T) {
	doc := testkit.Minimal().Set(loader.TableFunctions, testkit.Func("f", 1, 1, testkit.Op("pushstring", 5)))
	_, err := load(doc)
	if err == nil || !strings.Contains(err.Error(), "string literal identifier does not exist") {
		t.Fatalf("expected dangling string literal, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		kind   ir.DecodeErrorKind
		entity string
		field  string
	}{
		{
			name:   "missing table",
			mutate: func(doc map[string]any) { delete(doc, loader.TableData) },
			kind:   ir.DecodeMissingField,
			entity: "module",
			field:  "data",
		},
		{
			name:   "table of wrong kind",
			mutate: func(doc map[string]any) { doc[loader.TableGlobals] = "nope" },
			kind:   ir.DecodeWrongKind,
			entity: "module",
			field:  "globals",
		},
		{
			name: "symbol missing type",
			mutate: func(doc map[string]any) {
				doc[loader.TableGlobals] = []any{map[string]any{"identifier": "g"}}
			},
			kind:   ir.DecodeMissingField,
			entity: "global",
			field:  "type",
		},
		{
			name: "unknown symbol tag",
			mutate: func(doc map[string]any) {
				doc[loader.TableExternals] = []any{map[string]any{"identifier": "g", "type": "weak"}}
			},
			kind:   ir.DecodeUnknownTag,
			entity: "external",
			field:  "type",
		},
		{
			name: "unknown type entry",
			mutate: func(doc map[string]any) {
				doc[loader.TableTypes] = []any{map[string]any{"identifier": 1, "type": []any{
					map[string]any{"type": "struct", "fields": []any{map[string]any{"type": "int128"}}},
				}}}
			},
			kind:   ir.DecodeUnknownTag,
			entity: "type",
			field:  "type[0].fields[0].type",
		},
		{
			name: "array without element type",
			mutate: func(doc map[string]any) {
				doc[loader.TableTypes] = []any{map[string]any{"identifier": 1, "type": []any{
					map[string]any{"type": "array", "length": 2},
				}}}
			},
			kind:   ir.DecodeMissingField,
			entity: "type",
			field:  "type[0].element_type",
		},
		{
			name: "raw byte out of range",
			mutate: func(doc map[string]any) {
				doc[loader.TableData] = []any{map[string]any{"identifier": "d", "storage": "global", "type": 1, "value": []any{
					map[string]any{"class": "raw", "value": []any{1, 256}},
				}}}
			},
			kind:   ir.DecodeOutOfRange,
			entity: "data",
			field:  "value[0].value[1]",
		},
		{
			name: "float32 beyond range",
			mutate: func(doc map[string]any) {
				doc[loader.TableData] = []any{map[string]any{"identifier": "d", "storage": "global", "type": 1, "value": []any{
					map[string]any{"class": "float32", "value": 1e300},
				}}}
			},
			kind:   ir.DecodeOutOfRange,
			entity: "data",
			field:  "value[0].value",
		},
		{
			name: "unknown data class",
			mutate: func(doc map[string]any) {
				doc[loader.TableData] = []any{map[string]any{"identifier": "d", "storage": "global", "type": 1, "value": []any{
					map[string]any{"class": "complex"},
				}}}
			},
			kind:   ir.DecodeUnknownTag,
			entity: "data",
			field:  "value[0].class",
		},
		{
			name: "unicode16 unit too wide",
			mutate: func(doc map[string]any) {
				doc[loader.TableStringLiterals] = []any{map[string]any{"id": 0, "public": false, "type": "unicode16", "literal": []any{65536}}}
			},
			kind:   ir.DecodeOutOfRange,
			entity: "string literal",
			field:  "literal[0]",
		},
		{
			name: "unknown opcode",
			mutate: func(doc map[string]any) {
				doc[loader.TableFunctions] = []any{map[string]any{"identifier": 1, "name": "f", "locals": 1, "body": []any{
					map[string]any{"opcode": "frobnicate"},
				}}}
			},
			kind:   ir.DecodeUnknownOpcode,
			entity: "instruction",
			field:  "opcode",
		},
		{
			name: "unknown immediate variant",
			mutate: func(doc map[string]any) {
				doc[loader.TableInlineAssembly] = []any{asmBlock(map[string]any{
					"identifier": 0, "names": []any{}, "class": "immediate", "type": 1, "type_index": 0,
					"value": 1, "variant": "register_based", "constraint": "none",
				})}
			},
			kind:   ir.DecodeUnknownTag,
			entity: "inline assembly",
			field:  "parameters[0].variant",
		},
		{
			name: "unknown constraint",
			mutate: func(doc map[string]any) {
				doc[loader.TableInlineAssembly] = []any{asmBlock(map[string]any{
					"identifier": 0, "names": []any{}, "class": "read", "type": 1, "type_index": 0,
					"from": 0, "constraint": "stack",
				})}
			},
			kind:   ir.DecodeUnknownTag,
			entity: "inline assembly",
			field:  "parameters[0].constraint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := emptyDoc()
			tt.mutate(doc)
			_, err := load(doc)
			var de *ir.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Kind != tt.kind || de.Entity != tt.entity || de.Field != tt.field {
				t.Fatalf("got kind=%v entity=%q field=%q (%v), want kind=%v entity=%q field=%q",
					de.Kind, de.Entity, de.Field, err, tt.kind, tt.entity, tt.field)
			}
		})
	}
}

func asmBlock(params ...any) map[string]any {
	return map[string]any{
		"identifier":   0,
		"global":       true,
		"template":     "nop",
		"parameters":   params,
		"clobbers":     []any{},
		"jump_targets": []any{},
	}
}

func TestDuplicateKeys(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"types", func(doc map[string]any) {
			doc[loader.TableTypes] = []any{int32Type(1), int32Type(1)}
		}},
		{"globals", func(doc map[string]any) {
			g := map[string]any{"identifier": "g", "type": "global"}
			doc[loader.TableGlobals] = []any{g, g}
		}},
		{"asm parameters", func(doc map[string]any) {
			p := map[string]any{"identifier": 3, "names": []any{}, "class": "immediate", "type": 1, "type_index": 0, "value": 0, "constraint": "none"}
			doc[loader.TableTypes] = []any{int32Type(1)}
			doc[loader.TableInlineAssembly] = []any{asmBlock(p, p)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := emptyDoc()
			tt.mutate(doc)
			_, err := load(doc)
			var ve *ir.ValidationError
			if !errors.As(err, &ve) || ve.Kind != ir.ValDuplicateKey {
				t.Fatalf("expected duplicate key, got %v", err)
			}
		})
	}
}

func TestImmediateVariants(t *testing.T) {
	base := func(extra map[string]any) map[string]any {
		p := map[string]any{"identifier": 0, "names": []any{}, "class": "immediate", "type": 1, "type_index": 0, "value": 7, "constraint": "none"}
		for k, v := range extra {
			p[k] = v
		}
		return p
	}
	tests := []struct {
		name   string
		extra  map[string]any
		class  ir.AsmParamClass
		symbol string
	}{
		{"absent variant", nil, ir.AsmImmediateConstant, ""},
		{"null variant", map[string]any{"variant": nil}, ir.AsmImmediateConstant, ""},
		{"identifier based", map[string]any{"variant": "identifier_based", "base": "sym"}, ir.AsmImmediateIdentifierBased, "sym"},
		{"identifier based null base", map[string]any{"variant": "identifier_based", "base": nil}, ir.AsmImmediateConstant, ""},
		{"literal based", map[string]any{"variant": "literal_based", "base": 0}, ir.AsmImmediateLiteralBased, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := emptyDoc()
			doc[loader.TableTypes] = []any{int32Type(1)}
			doc[loader.TableStringLiterals] = []any{map[string]any{"id": 0, "public": false, "type": "multibyte", "literal": "x"}}
			doc[loader.TableInlineAssembly] = []any{asmBlock(base(tt.extra))}
			m, err := load(doc)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			asm, _ := m.InlineAssembly(0)
			p, _ := asm.Parameter(0)
			if p.Class != tt.class || p.Symbol != tt.symbol || p.Value != 7 {
				t.Fatalf("parameter = %s", spew.Sdump(p))
			}
		})
	}
}

func TestDeeplyNestedTypeFlattens(t *testing.T) {
	const depth = 20000
	var entry any = map[string]any{"type": "int8"}
	for range depth {
		entry = map[string]any{"type": "array", "length": 1, "element_type": entry}
	}
	doc := emptyDoc()
	doc[loader.TableTypes] = []any{map[string]any{"identifier": 9, "type": []any{entry}}}

	tables, err := loader.Decode(context.Background(), record.MustOf(doc), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	typ := tables.Types[9]
	if typ.Len() != depth+1 {
		t.Fatalf("entries = %d, want %d", typ.Len(), depth+1)
	}
	if typ.At(depth).Kind != ir.TypeInt8 {
		t.Fatalf("innermost entry = %v", typ.At(depth).Kind)
	}
	if end, ok := typ.SubtreeEnd(0); !ok || end != depth+1 {
		t.Fatalf("SubtreeEnd(0) = %d, %v", end, ok)
	}
}

func TestTopLevelMustBeObject(t *testing.T) {
	_, err := loader.Load(context.Background(), record.MustOf([]any{}), nil)
	var de *ir.DecodeError
	if !errors.As(err, &de) || de.Kind != ir.DecodeWrongKind || de.Entity != "module" {
		t.Fatalf("got %v", err)
	}
}

func TestLoadBytesSyntaxError(t *testing.T) {
	_, err := loader.LoadBytes(context.Background(), []byte(`{"types": [`), record.FormatJSON, nil)
	var de *ir.DecodeError
	if !errors.As(err, &de) || de.Kind != ir.DecodeSyntax {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestLoadBytesRejectsDeeplyNestedMsgpack(t *testing.T) {
	doc := append(bytes.Repeat([]byte{0x91}, 3_000_000), 0xc0)
	_, err := loader.LoadBytes(context.Background(), doc, record.FormatMsgpack, nil)
	var de *ir.DecodeError
	if !errors.As(err, &de) || de.Kind != ir.DecodeSyntax {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if !errors.Is(err, record.ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep in chain, got %v", err)
	}
}

func TestLoadFileWrapsPath(t *testing.T) {
	_, err := loader.LoadFile(context.Background(), "testdata/missing.json", record.FormatAuto, nil)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDecodeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Decode(ctx, record.MustOf(emptyDoc()), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadEmitsTableSpansAndTimings(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	timer := observ.NewTimer()
	ctx := trace.WithTracer(context.Background(), ring)
	ctx = observ.WithTimer(ctx, timer)

	if _, err := loader.LoadFile(ctx, fixture, record.FormatAuto, nil); err != nil {
		t.Fatal(err)
	}

	tables := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		if ev.Scope == trace.ScopeEntity {
			t.Fatalf("entity events must be filtered at detail level: %+v", ev)
		}
		if ev.Scope == trace.ScopeTable && ev.Kind == trace.KindSpanEnd {
			tables[strings.TrimPrefix(ev.Name, "table:")] = true
		}
	}
	if len(tables) != 8 {
		t.Fatalf("table spans = %v", tables)
	}

	summary := timer.Summary()
	for _, phase := range []string{"read", "parse", "decode:functions", "validate"} {
		if !strings.Contains(summary, phase) {
			t.Errorf("timer summary lacks %q:\n%s", phase, summary)
		}
	}
}
