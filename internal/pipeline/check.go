// Package pipeline loads and validates many module files concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"okroshka/internal/ir"
	"okroshka/internal/loader"
	"okroshka/internal/observ"
	"okroshka/internal/opcode"
	"okroshka/internal/record"
	"okroshka/internal/trace"
)

// Extensions recognized when expanding directories.
var Extensions = []string{".json", ".msgpack", ".mpk"}

// Request describes a check run.
type Request struct {
	Files    []string
	Format   record.Format
	Registry *opcode.Registry // nil selects the built-in instruction set
	Jobs     int              // <= 0 selects GOMAXPROCS
	Progress ProgressSink
}

// Result is the outcome of loading one file.
type Result struct {
	File    string
	Module  *ir.Module
	Err     error
	Failed  Stage
	Timings Timings
	Report  observ.Report
}

// OK reports whether the file loaded and validated.
func (r Result) OK() bool { return r.Err == nil }

// Check loads every file of req concurrently. Results are returned in input
// order, one per file. The returned error joins the per-file failures, each
// prefixed with its path; it is nil when every file is valid.
func Check(ctx context.Context, req Request) ([]Result, error) {
	if len(req.Files) == 0 {
		return nil, nil
	}
	reg := req.Registry
	if reg == nil {
		reg = opcode.Default()
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for _, file := range req.Files {
		emit(req.Progress, Event{File: file, Stage: StageRead, Status: StatusQueued})
	}

	// each goroutine owns results[i]
	results := make([]Result, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Files)))
	for i, file := range req.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(gctx, file, req.Format, reg, req.Progress)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.File, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func checkFile(ctx context.Context, file string, format record.Format, reg *opcode.Registry, sink ProgressSink) Result {
	res := Result{File: file}
	timer := observ.NewTimer()
	ctx = observ.WithTimer(ctx, timer)
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "check")
	span.WithExtra("file", file)

	run := func(stage Stage, fn func() error) bool {
		emit(sink, Event{File: file, Stage: stage, Status: StatusWorking})
		start := time.Now()
		err := fn()
		elapsed := time.Since(start)
		res.Timings.Set(stage, elapsed)
		if err != nil {
			res.Err, res.Failed = err, stage
			emit(sink, Event{File: file, Stage: stage, Status: StatusError, Err: err, Elapsed: elapsed})
			return false
		}
		emit(sink, Event{File: file, Stage: stage, Status: StatusDone, Elapsed: elapsed})
		return true
	}

	var (
		data   []byte
		doc    record.Value
		tables ir.Tables
	)
	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageRead, func() (err error) {
			end := timer.Track("read")
			data, err = os.ReadFile(file)
			end(file)
			return err
		}},
		{StageParse, func() (err error) {
			doc, err = loader.Parse(ctx, data, format)
			return err
		}},
		{StageDecode, func() (err error) {
			tables, err = loader.Decode(ctx, doc, reg)
			return err
		}},
		{StageValidate, func() (err error) {
			res.Module, err = loader.Validate(ctx, tables)
			return err
		}},
	}
	for _, step := range steps {
		if !run(step.stage, step.fn) {
			break
		}
	}

	res.Report = timer.Report()
	if res.Err != nil {
		span.End(res.Err.Error())
	} else {
		span.End("ok")
	}
	return res
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// ExpandPaths replaces every directory in paths with the module files found
// beneath it, sorted. Plain files are kept as given.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}
