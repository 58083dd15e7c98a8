// internal/workers/import_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/adapters/storage"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// ImportResult is written back to the task for the status endpoint.
type ImportResult struct {
	JobID          string              `json:"job_id"`
	Kind           domain.ImportKind   `json:"kind"`
	Rows           int                 `json:"rows"`
	Result         domain.ImportResult `json:"result"`
	Counters       int                 `json:"counters_reconciled,omitempty"`
	ProcessingTime string              `json:"processing_time"`
}

// DashboardWarmer preloads dashboards after an ingestion run.
type DashboardWarmer interface {
	WarmupDashboards(ctx context.Context, terminals []string,
		load func(ctx context.Context, terminal string) error) error
}

// ImportProcessor ingests uploaded catalog, price-list and sales files.
type ImportProcessor struct {
	storage  ports.FileStorage
	catalog  ports.CatalogService
	sales    ports.SalesImporter
	counters ports.CounterService
	logger   *slog.Logger

	warmer     DashboardWarmer
	dashboards ports.DashboardService
	terminals  []string

	locker  Locker
	lockTTL time.Duration
}

// ErrImportRunning is returned while another import of the same kind holds
// the lock. The task is retried with backoff.
var ErrImportRunning = errors.New("import of this kind already running")

// ImportLockKey is the lock held while a file of kind is ingested.
func ImportLockKey(kind domain.ImportKind) string {
	return "lock:import:" + string(kind)
}

func NewImportProcessor(
	fileStorage ports.FileStorage,
	catalog ports.CatalogService,
	sales ports.SalesImporter,
	counters ports.CounterService,
	logger *slog.Logger,
) *ImportProcessor {
	return &ImportProcessor{
		storage:  fileStorage,
		catalog:  catalog,
		sales:    sales,
		counters: counters,
		logger:   logger.With(slog.String("processor", "import")),
	}
}

// WithWarmup makes the processor reload the dashboards of terminals after
// every run that changed data.
func (p *ImportProcessor) WithWarmup(warmer DashboardWarmer, dashboards ports.DashboardService, terminals []string) *ImportProcessor {
	p.warmer = warmer
	p.dashboards = dashboards
	p.terminals = terminals
	return p
}

// WithLock serializes imports of the same kind across worker processes.
func (p *ImportProcessor) WithLock(locker Locker, ttl time.Duration) *ImportProcessor {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	p.locker = locker
	p.lockTTL = ttl
	return p
}

// ProcessCatalog handles TypeCatalogImport.
func (p *ImportProcessor) ProcessCatalog(ctx context.Context, t *asynq.Task) error {
	return p.process(ctx, t, domain.ImportCatalog)
}

// ProcessCatalogPDF handles TypeCatalogImportPDF.
func (p *ImportProcessor) ProcessCatalogPDF(ctx context.Context, t *asynq.Task) error {
	return p.process(ctx, t, domain.ImportCatalogPDF)
}

// ProcessSales handles TypeSalesImport. Counters are rebuilt after any
// change to the ledger.
func (p *ImportProcessor) ProcessSales(ctx context.Context, t *asynq.Task) error {
	return p.process(ctx, t, domain.ImportSales)
}

func (p *ImportProcessor) process(ctx context.Context, t *asynq.Task, kind domain.ImportKind) error {
	start := time.Now()

	job, err := decodeImportJob(t)
	if err != nil {
		return err
	}
	log := p.logger.With(
		slog.String("job_id", job.JobID),
		slog.String("kind", string(kind)),
		slog.String("object_key", job.ObjectKey))
	log.InfoContext(ctx, "processing import")

	if p.locker != nil {
		release, err := p.acquire(ctx, kind)
		if err != nil {
			return err
		}
		defer release()
	}

	data, err := p.storage.Download(ctx, job.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("upload missing: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download upload: %w", err)
	}

	rows, err := parseUpload(kind, data)
	if err != nil {
		// Malformed files are not retried.
		return fmt.Errorf("failed to parse upload: %v: %w", err, asynq.SkipRetry)
	}

	out := ImportResult{JobID: job.JobID, Kind: kind, Rows: len(rows)}
	switch kind {
	case domain.ImportSales:
		out.Result, err = p.sales.Import(ctx, rows)
	default:
		out.Result, err = p.catalog.Reconcile(ctx, rows)
	}
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", kind, err)
	}

	if kind == domain.ImportSales && out.Result.Changed() {
		snapshots, err := p.counters.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("failed to reconcile counters: %w", err)
		}
		out.Counters = len(snapshots)
	}

	if out.Result.Changed() {
		p.warmup(ctx)
	}

	out.ProcessingTime = time.Since(start).String()
	p.writeResult(ctx, t, out)

	log.InfoContext(ctx, "import completed",
		slog.Int("rows", out.Rows),
		slog.Int("created", out.Result.Created),
		slog.Int("updated", out.Result.Updated),
		slog.Int("skipped", out.Result.Skipped),
		slog.String("duration", out.ProcessingTime))
	return nil
}

func (p *ImportProcessor) acquire(ctx context.Context, kind domain.ImportKind) (func(), error) {
	key := ImportLockKey(kind)
	ok, err := p.locker.SetNX(ctx, key, time.Now().Unix(), p.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrImportRunning
	}
	return func() {
		if err := p.locker.Delete(context.WithoutCancel(ctx), key); err != nil {
			p.logger.WarnContext(ctx, "failed to release import lock", slog.String("error", err.Error()))
		}
	}, nil
}

func parseUpload(kind domain.ImportKind, data []byte) ([]domain.Row, error) {
	if kind == domain.ImportCatalogPDF {
		return spreadsheet.ReadPriceListPDFBytes(data)
	}
	return spreadsheet.ReadBytes(data)
}

func (p *ImportProcessor) warmup(ctx context.Context) {
	if p.warmer == nil || p.dashboards == nil {
		return
	}
	err := p.warmer.WarmupDashboards(ctx, p.terminals, func(ctx context.Context, terminal string) error {
		_, err := p.dashboards.Stats(ctx, terminal)
		return err
	})
	if err != nil {
		p.logger.WarnContext(ctx, "dashboard warmup incomplete", slog.String("error", err.Error()))
	}
}

func (p *ImportProcessor) writeResult(ctx context.Context, t *asynq.Task, out ImportResult) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if _, err := rw.Write(payload); err != nil {
		p.logger.WarnContext(ctx, "failed to write task result", slog.String("error", err.Error()))
	}
}
