package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"okroshka/internal/opcode"
)

const fixture = "../../internal/loader/testdata/module.json"

const validModule = `{
  "globals": [], "externals": [], "string_literals": [], "data": [], "inline_assembly": [],
  "types": [ { "identifier": 1, "type": [ { "type": "int32" } ] } ],
  "function_declarations": [ { "identifier": 1, "parameters": 1, "vararg": false, "returns": 1 } ],
  "functions": [ { "identifier": 1, "name": "f", "locals": 1, "body": [ { "opcode": "ret" } ] } ]
}`

// execute runs the CLI with colors off and returns stdout, stderr and the
// command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", validModule)
	bad := writeFile(t, dir, "bad.json", strings.Replace(validModule, `"returns": 1`, `"returns": 9`, 1))

	out, _, err := execute(t, "check", "--ui", "off", good)
	if err != nil {
		t.Fatalf("check good.json: %v", err)
	}
	if !strings.Contains(out, "ok") || !strings.Contains(out, good) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "check", "--ui", "off", "--jobs", "2", good, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "FAIL "+bad) || !strings.Contains(out, "type identifier does not exist") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "--quiet", "check", "--ui", "off", good)
	if err != nil || out != "" {
		t.Fatalf("quiet check printed %q (err %v)", out, err)
	}
}

func TestCheckCommandDirectoryAndTimings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", validModule)
	writeFile(t, dir, "b.json", validModule)

	out, _, err := execute(t, "--timings", "check", "--ui", "off", dir)
	if err != nil {
		t.Fatalf("check dir: %v", err)
	}
	for _, want := range []string{"a.json", "b.json", "decode", "timings:", "decode:functions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestCheckCommandWritesTrace(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "m.json", validModule)
	tracePath := filepath.Join(dir, "trace.ndjson")

	if _, _, err := execute(t, "--trace", tracePath, "--trace-level", "phase", "check", "--ui", "off", file); err != nil {
		t.Fatalf("check: %v", err)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"name":"decode"`, `"name":"validate"`, `"scope":"driver"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("trace lacks %s:\n%s", want, data)
		}
	}
}

func TestDumpCommand(t *testing.T) {
	out, _, err := execute(t, "dump", fixture)
	if err != nil {
		t.Fatalf("dump text: %v", err)
	}
	for _, want := range []string{"types=3", "fn main: decl=D1 locals=T2", "clobbers cc,memory"} {
		if !strings.Contains(out, want) {
			t.Errorf("text dump lacks %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "dump", "--format", "json", fixture)
	if err != nil {
		t.Fatalf("dump json: %v", err)
	}
	var view moduleView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode json dump: %v\n%s", err, out)
	}
	if len(view.Functions) != 1 || view.Functions[0].Name != "main" || len(view.Functions[0].Body) != 7 {
		t.Fatalf("functions = %+v", view.Functions)
	}
	if len(view.Types) != 3 || view.Types[0].ID != 1 {
		t.Fatalf("types = %+v", view.Types)
	}

	out, _, err = execute(t, "dump", "--format", "spew", fixture)
	if err != nil {
		t.Fatalf("dump spew: %v", err)
	}
	if !strings.Contains(out, "moduleView") {
		t.Fatalf("spew dump lacks type name:\n%s", out)
	}

	if _, _, err := execute(t, "dump", "--format", "yaml", fixture); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestOpcodesCommand(t *testing.T) {
	out, _, err := execute(t, "opcodes", "--format", "json")
	if err != nil {
		t.Fatalf("opcodes: %v", err)
	}
	var payload opcodesPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Opcodes) != opcode.Default().Len() {
		t.Fatalf("listed %d opcodes, registry has %d", len(payload.Opcodes), opcode.Default().Len())
	}

	out, _, err = execute(t, "opcodes")
	if err != nil {
		t.Fatalf("opcodes text: %v", err)
	}
	if !strings.Contains(out, "MNEMONIC") || !strings.Contains(out, "pushstring") {
		t.Fatalf("unexpected text listing:\n%s", out)
	}
}

func TestOpcodesFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ops.toml", `revision = "custom"

[[opcode]]
id = "return"
mnemonic = "ret"
code = 1
type = "none"
`)
	cfg := writeFile(t, dir, configFileName, "[opcodes]\nspec = \"ops.toml\"\n")

	out, _, err := execute(t, "--config", cfg, "opcodes", "--format", "json")
	if err != nil {
		t.Fatalf("opcodes: %v", err)
	}
	var payload opcodesPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Revision != "custom" || len(payload.Opcodes) != 1 {
		t.Fatalf("payload = %+v", payload)
	}

	// The valid module only uses ret, so it still checks with the small set.
	file := writeFile(t, dir, "m.json", validModule)
	if _, _, err := execute(t, "--config", cfg, "check", "--ui", "off", file); err != nil {
		t.Fatalf("check with custom opcodes: %v", err)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	packed := filepath.Join(dir, "module.msgpack")
	if _, _, err := execute(t, "--quiet", "convert", "--validate", fixture, packed); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, _, err := execute(t, "check", "--ui", "off", packed); err != nil {
		t.Fatalf("check converted file: %v", err)
	}

	out, _, err := execute(t, "convert", "--to", "json", packed, "-")
	if err != nil {
		t.Fatalf("convert back: %v", err)
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"inline_assembly"`) {
		t.Fatalf("unexpected json:\n%s", out)
	}

	if _, _, err := execute(t, "convert", fixture, filepath.Join(dir, "out.bin")); err == nil {
		t.Fatalf("expected an error for an unknown output extension")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "okroshka" || payload.Version == "" || payload.OpcodeCount == 0 || payload.GitCommit == "" {
		t.Fatalf("payload = %+v", payload)
	}

	out, _, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version pretty: %v", err)
	}
	if !strings.HasPrefix(out, "okroshka ") || !strings.Contains(out, "opcodes: revision") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckCommandWritesHeapProfile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", validModule)
	heap := filepath.Join(dir, "heap.pprof")

	if _, _, err := execute(t, "--mem-profile", heap, "check", "--ui", "off", good); err != nil {
		t.Fatalf("check with profile: %v", err)
	}
	info, err := os.Stat(heap)
	if err != nil || info.Size() == 0 {
		t.Fatalf("heap profile not written: %v", err)
	}
}
