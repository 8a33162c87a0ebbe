package ui

import (
	"errors"
	"strings"
	"testing"

	"okroshka/internal/pipeline"
)

func TestApplyEventTracksFileState(t *testing.T) {
	m := NewProgressModel("check", []string{"a.json", "b.json"}, nil).(*progressModel)

	m.applyEvent(pipeline.Event{File: "a.json", Stage: pipeline.StageDecode, Status: pipeline.StatusWorking})
	if got := m.items[0].status; got != "decoding" {
		t.Fatalf("status = %q, want decoding", got)
	}
	m.applyEvent(pipeline.Event{File: "a.json", Stage: pipeline.StageDecode, Status: pipeline.StatusDone})
	if m.items[0].finished {
		t.Fatalf("a file is not finished before validation")
	}
	m.applyEvent(pipeline.Event{File: "a.json", Stage: pipeline.StageValidate, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "b.json", Stage: pipeline.StageParse, Status: pipeline.StatusError, Err: errors.New("bad")})
	m.applyEvent(pipeline.Event{File: "unknown.json", Stage: pipeline.StageRead, Status: pipeline.StatusWorking})

	finished, failed := m.tally()
	if finished != 2 || failed != 1 {
		t.Fatalf("tally = %d finished, %d failed", finished, failed)
	}
	view := m.View()
	for _, want := range []string{"a.json", "b.json", "ok", "error", "(2/2, 1 failed)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 2, "ab"},
		{"日本語のパス", 7, "日本..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
