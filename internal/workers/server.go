// internal/workers/server.go
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/pkg/config"
	"github.com/ammerola/pos-ledger/internal/pkg/logger"
)

// Processors groups the task handlers served by the worker.
type Processors struct {
	Imports  *ImportProcessor
	Counters *CounterProcessor
	Cleanup  *CleanupProcessor
}

// RedisOpt builds the asynq connection options from config.
func RedisOpt(cfg config.AsynqConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewServer configures the asynq server.
func NewServer(cfg config.AsynqConfig, log *slog.Logger) *asynq.Server {
	errorLogger := log.With(slog.String("component", "worker"))
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         cfg.Queues,
		StrictPriority: cfg.StrictPriority,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			errorLogger.ErrorContext(ctx, "task processing failed",
				slog.String("type", task.Type()),
				slog.String("error", err.Error()))
		}),
		RetryDelayFunc:  ExponentialBackoff,
		ShutdownTimeout: cfg.ShutdownTimeout,
		HealthCheckFunc: func(err error) {
			if err != nil {
				errorLogger.Error("worker health check failed", slog.String("error", err.Error()))
			}
		},
		Logger: NewAsynqLogger(log),
	})
}

// NewServeMux routes every task type to its processor.
func NewServeMux(p Processors, log *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(log))

	mux.HandleFunc(TypeCatalogImport, p.Imports.ProcessCatalog)
	mux.HandleFunc(TypeCatalogImportPDF, p.Imports.ProcessCatalogPDF)
	mux.HandleFunc(TypeSalesImport, p.Imports.ProcessSales)
	mux.HandleFunc(TypeCountersReconcile, p.Counters.ProcessReconcile)
	mux.HandleFunc(TypeCleanupUploads, p.Cleanup.CleanupUploads)
	return mux
}

// ExponentialBackoff doubles the retry delay from one second up to ten minutes.
func ExponentialBackoff(n int, _ error, _ *asynq.Task) time.Duration {
	const (
		baseDelay = time.Second
		maxDelay  = 10 * time.Minute
	)
	if n < 0 {
		n = 0
	}
	if n > 20 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func loggingMiddleware(log *slog.Logger) asynq.MiddlewareFunc {
	log = log.With(slog.String("component", "worker"))
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			if id, ok := asynq.GetTaskID(ctx); ok {
				ctx = logger.WithValue(ctx, logger.ContextKeyJobID, id)
			}
			ctx = logger.WithValue(ctx, logger.ContextKeyTaskType, t.Type())

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			if err != nil {
				return err
			}
			log.DebugContext(ctx, "task processed", slog.Duration("duration", time.Since(start)))
			return nil
		})
	}
}
