// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ammerola/pos-ledger/internal/app"
	"github.com/ammerola/pos-ledger/internal/pkg/logger"
	"github.com/ammerola/pos-ledger/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")
	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx, slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.NewLogger(&logger.LogConfig{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Output:      os.Stdout,
		ServiceName: "pos-ledger-worker",
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	core, err := app.New(ctx, cfg, slogger, app.Options{})
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer core.Close()

	fileStorage, err := app.NewFileStorage(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize file storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	processors := workers.Processors{
		Imports: workers.NewImportProcessor(fileStorage, core.Catalog, core.Sales, core.Counters, slogger).
			WithWarmup(core.CacheManager, core.Dashboards, core.DashboardTerminals()).
			WithLock(core.Cache, cfg.Ingest.ProcessingTimeout),
		Counters: workers.NewCounterProcessor(core.Counters, core.Cache, 0, slogger),
		Cleanup:  workers.NewCleanupProcessor(fileStorage, cfg.Ingest.UploadRetention, slogger),
	}

	srv := workers.NewServer(cfg.Asynq, slogger)
	mux := workers.NewServeMux(processors, slogger)

	scheduler, err := workers.NewScheduler(workers.RedisOpt(cfg.Asynq), workers.Schedule{
		ReconcileCron: cfg.Ingest.ReconcileCron,
		CleanupCron:   cfg.Ingest.CleanupCron,
	}, slogger)
	if err != nil {
		slogger.Error("failed to create scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(mux); err != nil {
		slogger.Error("failed to start worker server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		slogger.Error("failed to start scheduler", slog.String("error", err.Error()))
		srv.Shutdown()
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues),
		slog.String("reconcile_cron", cfg.Ingest.ReconcileCron))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}
