package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"okroshka/internal/ir"
	"okroshka/internal/testkit"
)

const validModule = `{
  "globals": [], "externals": [], "string_literals": [], "data": [], "inline_assembly": [],
  "types": [ { "identifier": 1, "type": [ { "type": "int32" } ] } ],
  "function_declarations": [ { "identifier": 1, "parameters": 1, "vararg": false, "returns": 1 } ],
  "functions": [ { "identifier": 1, "name": "f", "locals": 1, "body": [ { "opcode": "ret" } ] } ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func TestCheckReportsOneResultPerFileInOrder(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", validModule)
	dangling := writeFile(t, dir, "dangling.json", strings.Replace(validModule, `"returns": 1`, `"returns": 2`, 1))
	broken := writeFile(t, dir, "broken.json", `{"types": [`)
	missing := filepath.Join(dir, "missing.json")

	sink := &recordingSink{}
	files := []string{good, dangling, broken, missing}
	results, err := Check(context.Background(), Request{Files: files, Jobs: 2, Progress: sink})
	if err == nil {
		t.Fatalf("expected aggregate error")
	}
	if len(results) != len(files) {
		t.Fatalf("got %d results, want %d", len(results), len(files))
	}
	for i, r := range results {
		if r.File != files[i] {
			t.Errorf("result %d is for %s, want %s", i, r.File, files[i])
		}
	}

	if !results[0].OK() || results[0].Module == nil {
		t.Fatalf("good.json failed: %v", results[0].Err)
	}
	if err := testkit.CheckModuleInvariants(results[0].Module); err != nil {
		t.Fatalf("good.json invariants: %v", err)
	}
	for _, stage := range Stages {
		if !results[0].Timings.Has(stage) {
			t.Errorf("good.json lacks %s timing", stage)
		}
	}
	if len(results[0].Report.Phases) == 0 {
		t.Errorf("good.json has no phase report")
	}

	var ve *ir.ValidationError
	if results[1].Failed != StageValidate || !errors.As(results[1].Err, &ve) {
		t.Errorf("dangling.json: stage=%s err=%v", results[1].Failed, results[1].Err)
	}
	var de *ir.DecodeError
	if results[2].Failed != StageParse || !errors.As(results[2].Err, &de) || de.Kind != ir.DecodeSyntax {
		t.Errorf("broken.json: stage=%s err=%v", results[2].Failed, results[2].Err)
	}
	if results[3].Failed != StageRead || !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Errorf("missing.json: stage=%s err=%v", results[3].Failed, results[3].Err)
	}

	for _, f := range []string{dangling, broken, missing} {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("aggregate error does not mention %s:\n%v", f, err)
		}
	}
	if strings.Contains(err.Error(), good) {
		t.Errorf("aggregate error mentions the valid file:\n%v", err)
	}

	var queued, done, failed int
	for _, evt := range sink.events {
		switch evt.Status {
		case StatusQueued:
			queued++
		case StatusDone:
			done++
		case StatusError:
			failed++
		}
	}
	if queued != len(files) || failed != 3 {
		t.Errorf("queued=%d failed=%d", queued, failed)
	}
	// good: 4 stages, dangling: 3, broken: 1, missing: 0
	if done != 8 {
		t.Errorf("done events = %d, want 8", done)
	}
}

func TestCheckAllValid(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.json", validModule),
		writeFile(t, dir, "b.json", validModule),
	}
	results, err := Check(context.Background(), Request{Files: files})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("%s: %v", r.File, r.Err)
		}
	}
}

func TestCheckCancelled(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.json", validModule)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, Request{Files: []string{file}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	b := writeFile(t, sub, "b.msgpack", "")
	a := writeFile(t, dir, "a.json", "")
	writeFile(t, dir, "notes.txt", "")
	single := writeFile(t, t.TempDir(), "explicit.txt", "")

	got, err := ExpandPaths([]string{single, dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{single, a, b}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ExpandPaths = %v, want %v", got, want)
	}

	if _, err := ExpandPaths([]string{filepath.Join(dir, "nope")}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestTimingsSum(t *testing.T) {
	var tm Timings
	tm.Set(StageRead, 2)
	tm.Set(StageDecode, 3)
	if got := tm.Sum(); got != 5 {
		t.Fatalf("Sum() = %d", got)
	}
	if got := tm.Sum(StageDecode); got != 3 {
		t.Fatalf("Sum(decode) = %d", got)
	}
	if tm.Has(StageValidate) {
		t.Fatalf("validate should be unset")
	}
}
