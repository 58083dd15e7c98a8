// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	redis_a "github.com/ammerola/pos-ledger/internal/adapters/redis_adapter"
	"github.com/ammerola/pos-ledger/internal/app"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/internal/handlers"
	"github.com/ammerola/pos-ledger/internal/handlers/middleware"
	"github.com/ammerola/pos-ledger/internal/pkg/config"
	"github.com/ammerola/pos-ledger/internal/pkg/logger"
	"github.com/ammerola/pos-ledger/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting pos ledger api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx, slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.NewLogger(&logger.LogConfig{
		Level:          cfg.App.LogLevel,
		Format:         cfg.App.LogFormat,
		Output:         os.Stdout,
		AddSource:      cfg.App.Debug,
		ServiceName:    "pos-ledger-api",
		ServiceVersion: Version,
		Environment:    cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	if cfg.Database.MigrateOnStart {
		if err := app.RunMigrations(ctx, cfg, slogger); err != nil {
			slogger.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	report := app.Bootstrap(ctx, deps.app, slogger)
	if report.Failed() > 0 {
		slogger.Error("startup bootstrap failed", slog.Int("failed_steps", report.Failed()))
		os.Exit(1)
	}
	slogger.Info("startup bootstrap completed",
		slog.Int("steps", len(report.Steps)),
		slog.Int("counters", len(report.Counters)))

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			_ = server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

type dependencies struct {
	app       *app.App
	queue     *workers.Queue
	inspector *asynq.Inspector
	tokens    ports.TokenManager
	routes    handlers.Routes
}

func (d *dependencies) cleanup() {
	if d.queue != nil {
		if err := d.queue.Close(); err != nil {
			d.app.Logger.Error("failed to close job queue", slog.String("error", err.Error()))
		}
	}
	if d.inspector != nil {
		_ = d.inspector.Close()
	}
	d.app.Close()
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	core, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return nil, err
	}
	deps := &dependencies{app: core}

	fileStorage, err := app.NewFileStorage(ctx, cfg, logger)
	if err != nil {
		deps.cleanup()
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	authenticator, tokens, err := app.NewAuth(cfg, logger)
	if err != nil {
		deps.cleanup()
		return nil, fmt.Errorf("failed to initialize authentication: %w", err)
	}
	deps.tokens = tokens

	logger.Info("initializing Asynq client")
	redisOpt := workers.RedisOpt(cfg.Asynq)
	deps.queue = workers.NewQueue(redisOpt, cfg.Ingest.ProcessingTimeout, cfg.Asynq.RetryMax, logger)
	deps.inspector = asynq.NewInspector(redisOpt)

	carts := services.NewCartService(
		redis_a.NewCartStore(core.Redis, cfg.POS.CartTTL, logger),
		core.Catalog,
		core.Finalizer,
		cfg.POS.TaxRate,
		logger,
	)

	maxUpload := int64(cfg.Ingest.UploadMaxSizeMB) << 20
	deps.routes = handlers.Routes{
		Auth:      handlers.NewAuthHandler(authenticator, tokens, logger),
		Catalog:   handlers.NewCatalogHandler(core.Catalog, logger),
		Cart:      handlers.NewCartHandler(carts, logger),
		Sales:     handlers.NewSalesHandler(core.Sales, logger),
		Dashboard: handlers.NewDashboardHandler(core.Dashboards, core.Counters, deps.queue, logger),
		Import:    handlers.NewImportHandler(fileStorage, deps.queue, maxUpload, logger),
		Health:    handlers.NewHealthHandler(core.DB, core.Redis, deps.inspector, cfg, logger),
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	deps.routes.Register(mux)

	chain := []middleware.Middleware{
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	}
	if cfg.Security.RateLimitRequests > 0 {
		chain = append(chain, middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration))
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		chain = append(chain, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	if cfg.Security.SecureHeaders {
		chain = append(chain, middleware.SecureHeaders)
	}
	chain = append(chain, middleware.Auth(deps.tokens, handlers.PublicPaths...))

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(mux, chain...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
