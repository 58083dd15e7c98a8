// internal/workers/counter_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CounterLockKey serializes counter rebuilds across worker processes.
const CounterLockKey = "lock:counters:reconcile"

// Locker is the subset of the cache used as a distributed lock.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// CounterProcessor rebuilds terminal counters from the ledger.
type CounterProcessor struct {
	counters ports.CounterService
	locker   Locker
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewCounterProcessor creates a counter processor. A nil locker disables
// locking.
func NewCounterProcessor(counters ports.CounterService, locker Locker, lockTTL time.Duration, logger *slog.Logger) *CounterProcessor {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &CounterProcessor{
		counters: counters,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger.With(slog.String("processor", "counters")),
	}
}

// ProcessReconcile handles TypeCountersReconcile. A run that finds the lock
// taken is skipped.
func (p *CounterProcessor) ProcessReconcile(ctx context.Context, t *asynq.Task) error {
	if p.locker != nil {
		ok, err := p.locker.SetNX(ctx, CounterLockKey, time.Now().Unix(), p.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire counter lock: %w", err)
		}
		if !ok {
			p.logger.InfoContext(ctx, "counter reconcile already running, skipping")
			return nil
		}
		defer func() {
			if err := p.locker.Delete(context.WithoutCancel(ctx), CounterLockKey); err != nil {
				p.logger.WarnContext(ctx, "failed to release counter lock", slog.String("error", err.Error()))
			}
		}()
	}

	start := time.Now()
	snapshots, err := p.counters.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile counters: %w", err)
	}

	for _, s := range snapshots {
		p.logger.DebugContext(ctx, "counter reconciled",
			slog.String("terminal", s.Terminal),
			slog.Int64("last_sale_number", s.LastSaleNumber),
			slog.String("next_client_id", s.NextClientID))
	}
	p.logger.InfoContext(ctx, "counters reconciled",
		slog.Int("terminals", len(snapshots)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
