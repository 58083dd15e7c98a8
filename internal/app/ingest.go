// internal/app/ingest.go
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/pkg/config"
)

// Sources names the files read by a startup ingestion. Empty paths are
// skipped.
type Sources struct {
	Catalog   string
	PriceList string
	Sales     string
}

// SourcesFromConfig reads the INGEST_* paths.
func SourcesFromConfig(cfg *config.Config) Sources {
	return Sources{
		Catalog:   cfg.Ingest.CatalogPath,
		PriceList: cfg.Ingest.PriceListPath,
		Sales:     cfg.Ingest.SalesPath,
	}
}

// StepReport is the outcome of ingesting one source.
type StepReport struct {
	Name   string
	Path   string
	Rows   int
	Result domain.ImportResult
	Err    error
}

// IngestReport summarizes a startup ingestion.
type IngestReport struct {
	Steps    []StepReport
	Counters []domain.CounterSnapshot
}

// Failed counts the steps that returned an error.
func (r IngestReport) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// IngestOptions tunes Ingest.
type IngestOptions struct {
	// DryRun parses the files without writing. The App may be nil.
	DryRun       bool
	SkipCounters bool
	// Progress is called before each step.
	Progress func(step, total int, name, path string)
}

type ingestStep struct {
	name string
	path string
	read func(path string) ([]domain.Row, error)
	sink func(ctx context.Context, rows []domain.Row) (domain.ImportResult, error)
}

// Ingest runs the catalog, then the price list, then the sales ledger, then
// rebuilds the counters. A failing step is reported and the rest still run;
// counters are rebuilt only when every step succeeded.
func Ingest(ctx context.Context, a *App, src Sources, opts IngestOptions, log *slog.Logger) IngestReport {
	var catalogSink, salesSink func(context.Context, []domain.Row) (domain.ImportResult, error)
	if !opts.DryRun {
		catalogSink = a.Catalog.Reconcile
		salesSink = a.Sales.Import
	}

	steps := []ingestStep{
		{name: "catalog", path: src.Catalog, read: spreadsheet.ReadFile, sink: catalogSink},
		{name: "pricelist", path: src.PriceList, read: spreadsheet.ReadPriceListPDF, sink: catalogSink},
		{name: "sales", path: src.Sales, read: spreadsheet.ReadFile, sink: salesSink},
	}

	var report IngestReport
	for i, s := range steps {
		if s.path == "" {
			continue
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(steps), s.name, s.path)
		}

		step := runStep(ctx, s)
		if step.Err != nil {
			log.ErrorContext(ctx, "ingestion step failed",
				slog.String("step", s.name),
				slog.String("path", s.path),
				slog.String("error", step.Err.Error()))
		} else {
			log.InfoContext(ctx, "ingestion step completed",
				slog.String("step", s.name),
				slog.Int("rows", step.Rows),
				slog.Int("created", step.Result.Created),
				slog.Int("updated", step.Result.Updated),
				slog.Int("skipped", step.Result.Skipped))
		}
		report.Steps = append(report.Steps, step)
	}

	if opts.DryRun {
		return report
	}

	if !opts.SkipCounters && report.Failed() == 0 {
		snapshots, err := a.Counters.Reconcile(ctx)
		if err != nil {
			report.Steps = append(report.Steps, StepReport{Name: "counters", Err: err})
			log.ErrorContext(ctx, "failed to reconcile counters", slog.String("error", err.Error()))
		}
		report.Counters = snapshots
	}

	if err := a.Dashboards.Invalidate(ctx); err != nil {
		log.WarnContext(ctx, "failed to invalidate dashboards", slog.String("error", err.Error()))
	}
	return report
}

// Bootstrap prepares the ledger for serving. The configured sources are
// ingested when Ingest.OnStartup is set; the counters are rebuilt either way,
// since a terminal without a counter row cannot finalize sales.
func Bootstrap(ctx context.Context, a *App, log *slog.Logger) IngestReport {
	var src Sources
	if a.Config.Ingest.OnStartup {
		src = SourcesFromConfig(a.Config)
	}
	return Ingest(ctx, a, src, IngestOptions{}, log)
}

func runStep(ctx context.Context, s ingestStep) StepReport {
	step := StepReport{Name: s.name, Path: s.path}

	rows, err := s.read(s.path)
	if err != nil {
		step.Err = fmt.Errorf("failed to read %s: %w", s.path, err)
		return step
	}
	step.Rows = len(rows)
	if s.sink == nil {
		return step
	}

	step.Result, err = s.sink(ctx, rows)
	if err != nil {
		step.Err = fmt.Errorf("failed to ingest %s: %w", s.name, err)
	}
	return step
}
