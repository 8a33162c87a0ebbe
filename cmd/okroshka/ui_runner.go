package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"okroshka/internal/pipeline"
	"okroshka/internal/ui"
)

type checkOutcome struct {
	results []pipeline.Result
	err     error
}

func runCheckWithUI(ctx context.Context, out io.Writer, title string, req pipeline.Request) ([]pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		req.Progress = pipeline.ChannelSink{Ch: events}
		results, err := pipeline.Check(ctx, req)
		outcomeCh <- checkOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Files, events)
	program := tea.NewProgram(model, tea.WithOutput(out))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the producer from blocking on a full channel
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
