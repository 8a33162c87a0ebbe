package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"okroshka/internal/ir"
)

func TestType_SubtreeEnd(t *testing.T) {
	// struct { int8; array[4] of struct { int32; double } ; bits(3) }
	typ := ir.NewType(1, []ir.TypeEntry{
		{Kind: ir.TypeStruct, Fields: 3},
		{Kind: ir.TypeInt8},
		{Kind: ir.TypeArray, Length: 4},
		{Kind: ir.TypeStruct, Fields: 2},
		{Kind: ir.TypeInt32},
		{Kind: ir.TypeDouble},
		{Kind: ir.TypeBits, Width: 3},
	})
	tests := []struct {
		at, end int
	}{
		{0, 7},
		{1, 2},
		{2, 6},
		{3, 6},
		{6, 7},
	}
	for _, tt := range tests {
		end, ok := typ.SubtreeEnd(tt.at)
		if !ok || end != tt.end {
			t.Errorf("SubtreeEnd(%d) = %d, %v; want %d", tt.at, end, ok, tt.end)
		}
	}
	if _, ok := typ.SubtreeEnd(7); ok {
		t.Error("SubtreeEnd past the end should fail")
	}
}

func TestParseTypeKind(t *testing.T) {
	for _, name := range []string{"int8", "long_double", "builtin", "array"} {
		k, ok := ir.ParseTypeKind(name)
		if !ok || k.String() != name {
			t.Errorf("ParseTypeKind(%q) = %v, %v", name, k, ok)
		}
	}
	if _, ok := ir.ParseTypeKind("quad"); ok {
		t.Error("expected unknown kind")
	}
}

func TestParseShape(t *testing.T) {
	for _, name := range []string{"none", "u32", "typeref", "memflags"} {
		s, err := ir.ParseShape(name)
		if err != nil || s.String() != name {
			t.Errorf("ParseShape(%q) = %v, %v", name, s, err)
		}
	}
	if _, err := ir.ParseShape("u128"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestStringLiteral_Text(t *testing.T) {
	tests := []struct {
		name string
		lit  ir.StringLiteral
		want string
	}{
		{name: "multibyte", lit: ir.StringLiteral{Kind: ir.StringMultibyte, Bytes: []byte("héllo")}, want: "héllo"},
		{name: "utf16_surrogates", lit: ir.StringLiteral{Kind: ir.StringUnicode16, Units16: []uint16{0x48, 0xD83D, 0xDE00}}, want: "H😀"},
		{name: "utf32", lit: ir.StringLiteral{Kind: ir.StringUnicode32, Units32: []uint32{0x41, 0x1F600, 0}}, want: "A😀\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lit.Text()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDumpModule(t *testing.T) {
	m, err := ir.NewModule(asmTables(t, 0, 0))
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	var buf bytes.Buffer
	if err := ir.DumpModule(&buf, m, ir.DumpOptions{MnemonicWidth: 8}); err != nil {
		t.Fatalf("DumpModule: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"types=1", "T1: int32", "fn f: decl=D1 locals=T1", "ret", "target 0 [l0] f@0", "clobbers memory",
		"param 0 immediate literal_based [x] none type#1[0] value=0 literal=string#0"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestDumpModule_ParameterOperands(t *testing.T) {
	tables := asmTables(t, 0, 0)
	asm, err := ir.NewInlineAssembly(8, true, "", map[ir.AsmParamID]*ir.AsmParameter{
		0: {ID: 0, Class: ir.AsmReadStore, Constraint: ir.AsmConstraintRegister,
			Type: ir.TypeRef{Type: 1}, Slot: 2, ToType: ir.TypeRef{Type: 1}, ToSlot: 3},
		1: {ID: 1, Class: ir.AsmImmediateIdentifierBased, Type: ir.TypeRef{Type: 1}, Value: -4, Symbol: "counter"},
		2: {ID: 2, Class: ir.AsmLoad, Constraint: ir.AsmConstraintMemory, Type: ir.TypeRef{Type: 1}, Slot: 5},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewInlineAssembly: %v", err)
	}
	tables.InlineAssembly[8] = asm
	m, err := ir.NewModule(tables)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	var buf bytes.Buffer
	if err := ir.DumpModule(&buf, m, ir.DumpOptions{}); err != nil {
		t.Fatalf("DumpModule: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"param 0 read_store [] register from=type#1[0] slot=2 to=type#1[0] slot=3",
		`param 1 immediate identifier_based [] none type#1[0] value=-4 symbol="counter"`,
		"param 2 load [] memory type#1[0] slot=5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
