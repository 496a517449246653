package app

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/discovery"
	"treegrep/internal/engine/extract"
	"treegrep/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Failure is a file that was selected but could not be searched.
type Failure struct {
	Path string
	Err  error
}

type Stats struct {
	Discovered int
	Selected   int
	Matched    int
	Failed     int
	Records    int
	Duration   time.Duration
}

// Result is everything one search produced. Files are in completion order;
// pass them through Aggregate before rendering.
type Result struct {
	Files    []*extract.File
	Failures []Failure
	// Warnings are traversal problems that did not stop the walk.
	Warnings []error
	Stats    Stats
}

// Run walks the configured roots and searches every selected file. Per-file
// failures are collected in the result, not returned. The returned error is
// fatal: a root that cannot be walked, or ctx ending before the walk is
// complete.
func (a *App) Run(ctx context.Context) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithAttributes(
		attribute.StringSlice("treegrep.languages", a.Languages()),
		attribute.StringSlice("treegrep.paths", a.Config.Paths),
	))
	defer span.End()
	start := time.Now()

	stream, err := discovery.Walk(ctx, a.walkOptions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &Result{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.workers())
	for {
		entry, ok := stream.Next(ctx)
		if !ok {
			break
		}
		res.Stats.Discovered++
		if !entry.IsFile {
			continue
		}
		ex, ok := a.selector.Select(entry)
		if !ok {
			continue
		}
		res.Stats.Selected++
		a.throttle.Do(func() {
			slog.Debug("search progress", "discovered", res.Stats.Discovered, "selected", res.Stats.Selected)
		})

		g.Go(func() error {
			file, err := a.searchFile(ctx, ex, entry.Path)
			a.progress.Add(1)

			mu.Lock()
			defer mu.Unlock()
			a.collect(ctx, res, entry.Path, file, err)
			return nil
		})
	}
	_ = g.Wait()
	<-stream.Done()

	res.Warnings = stream.Warnings()
	res.Stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("treegrep.files.selected", res.Stats.Selected),
		attribute.Int("treegrep.files.failed", res.Stats.Failed),
		attribute.Int("treegrep.records", res.Stats.Records),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	slog.Debug("search finished",
		"discovered", res.Stats.Discovered,
		"selected", res.Stats.Selected,
		"matched", res.Stats.Matched,
		"failed", res.Stats.Failed,
		"records", res.Stats.Records,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

func (a *App) walkOptions() discovery.Options {
	return discovery.Options{
		Roots:        a.Config.Paths,
		GitIgnore:    a.Config.GitIgnore,
		Hidden:       a.Config.Hidden,
		Workers:      a.Config.Workers,
		ExcludeDirs:  a.Config.ExcludeDirs,
		ExcludeFiles: a.Config.ExcludeFiles,
	}
}

func (a *App) workers() int {
	if a.Config.Workers > 0 {
		return a.Config.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (a *App) searchFile(ctx context.Context, ex *extract.Extractor, path string) (*extract.File, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.searchFile", trace.WithAttributes(
		attribute.String("treegrep.path", path),
		attribute.String("treegrep.language", ex.Language()),
	))
	defer span.End()

	file, err := ex.ExtractFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return file, err
}

// collect records one finished file. The caller holds the result lock.
func (a *App) collect(ctx context.Context, res *Result, path string, file *extract.File, err error) {
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		res.Failures = append(res.Failures, Failure{Path: path, Err: err})
		res.Stats.Failed++
		recordFailure(path, err)
	case file != nil:
		res.Files = append(res.Files, file)
		res.Stats.Matched++
		res.Stats.Records += len(file.Matches)
	}
}

func recordFailure(path string, err error) {
	observability.FileFailuresTotal.WithLabelValues(string(errors.CodeOf(err))).Inc()
	slog.Warn("failed to search file", "path", path, "error", err)
}
