// internal/adapters/db/stats_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// statsRepository answers dashboard queries through database/sql so the
// squirrel builders can run them directly.
type statsRepository struct {
	sb     squirrel.StatementBuilderType
	logger *slog.Logger
}

// NewStatsRepository creates a reporting repository on top of db.
func NewStatsRepository(db *sql.DB, logger *slog.Logger) ports.StatsRepository {
	return &statsRepository{
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).RunWith(db),
		logger: logger.With(slog.String("repository", "stats")),
	}
}

// LedgerCounts counts distinct sales, today's distinct sales and revenue for
// terminal, or across the ledger for domain.TerminalAll.
func (r *statsRepository) LedgerCounts(ctx context.Context, terminal string, today time.Time) (ports.LedgerCounts, error) {
	var counts ports.LedgerCounts

	qb := r.sb.Select("COUNT(DISTINCT sale_number)", "COALESCE(SUM(line_total), 0)::text").
		Column(squirrel.Expr("COUNT(DISTINCT sale_number) FILTER (WHERE sale_date = ?)", today.Format(time.DateOnly))).
		From("sales")
	if terminal != domain.TerminalAll {
		qb = qb.Where(squirrel.Eq{"terminal": terminal})
	}

	if err := qb.QueryRowContext(ctx).Scan(&counts.DistinctSales, &counts.Revenue, &counts.SalesToday); err != nil {
		return counts, fmt.Errorf("failed to count ledger for %s: %w", terminal, err)
	}
	return counts, nil
}

func (r *statsRepository) AvailableProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.sb.Select("COUNT(*)").
		From("products").
		Where(squirrel.Eq{"status": string(domain.StatusAvailable)}).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count available products: %w", err)
	}
	return n, nil
}

func (r *statsRepository) Diagnostics(ctx context.Context) (domain.Diagnostics, error) {
	d := domain.Diagnostics{Status: "OK", Database: "PostgreSQL"}
	err := r.sb.Select(
		"(SELECT COUNT(*) FROM products)",
		"(SELECT COUNT(*) FROM sales)",
		"(SELECT COUNT(*) FROM counters)",
	).QueryRowContext(ctx).Scan(&d.Products, &d.LedgerRows, &d.Counters)
	if err != nil {
		return d, fmt.Errorf("failed to read diagnostics: %w", err)
	}
	return d, nil
}
