// internal/adapters/db/counter_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

const selectCounterSQL = `
	SELECT terminal, last_client_seq, last_sale_number, total_sale_count, created_at
	FROM counters
	WHERE terminal = $1`

type counterRepository struct {
	logger *slog.Logger
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(logger *slog.Logger) ports.CounterRepository {
	return &counterRepository{
		logger: logger.With(slog.String("repository", "counter")),
	}
}

func scanCounter(row pgx.Row) (*domain.Counter, error) {
	var c domain.Counter
	if err := row.Scan(&c.Terminal, &c.LastClientSeq, &c.LastSaleNumber, &c.TotalSaleCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Ensure creates a zeroed counter for terminal if none exists.
func (r *counterRepository) Ensure(ctx context.Context, q ports.Querier, terminal string) error {
	tag, err := q.Exec(ctx,
		`INSERT INTO counters (terminal) VALUES ($1) ON CONFLICT (terminal) DO NOTHING`,
		terminal)
	if err != nil {
		return fmt.Errorf("failed to ensure counter %s: %w", terminal, err)
	}
	if tag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "counter created", slog.String("terminal", terminal))
	}
	return nil
}

func (r *counterRepository) Get(ctx context.Context, q ports.Querier, terminal string) (*domain.Counter, error) {
	c, err := scanOne(q.QueryRow(ctx, selectCounterSQL, terminal), scanCounter)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter %s: %w", terminal, err)
	}
	return c, nil
}

// GetForUpdate holds a row lock on the counter for the rest of the
// transaction, serializing finalizations on the same terminal.
func (r *counterRepository) GetForUpdate(ctx context.Context, q ports.Querier, terminal string) (*domain.Counter, error) {
	c, err := scanOne(q.QueryRow(ctx, selectCounterSQL+" FOR UPDATE", terminal), scanCounter)
	if err != nil {
		if isLockTimeout(err) {
			return nil, fmt.Errorf("counter %s is locked by another sale: %w", terminal, err)
		}
		return nil, fmt.Errorf("failed to lock counter %s: %w", terminal, err)
	}
	return c, nil
}

func (r *counterRepository) Save(ctx context.Context, q ports.Querier, c *domain.Counter) error {
	query := `
		UPDATE counters
		SET last_client_seq = $2, last_sale_number = $3, total_sale_count = $4
		WHERE terminal = $1`

	tag, err := q.Exec(ctx, query, c.Terminal, c.LastClientSeq, c.LastSaleNumber, c.TotalSaleCount)
	if err != nil {
		return fmt.Errorf("failed to save counter %s: %w", c.Terminal, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTerminalNotConfigured
	}
	return nil
}

func (r *counterRepository) List(ctx context.Context, q ports.Querier) ([]domain.Counter, error) {
	rows, err := q.Query(ctx, `
		SELECT terminal, last_client_seq, last_sale_number, total_sale_count, created_at
		FROM counters
		ORDER BY terminal`)
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	return scanMany(rows, scanCounter)
}
