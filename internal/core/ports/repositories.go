// internal/core/ports/repositories.go
package ports

import (
	"context"
	"time"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

// ProductRepository persists the catalog. Lookups by name ignore case.
// Find methods return (nil, nil) when nothing matches.
type ProductRepository interface {
	FindByName(ctx context.Context, q Querier, name string) (*domain.Product, error)
	Create(ctx context.Context, q Querier, p *domain.Product) error
	Update(ctx context.Context, q Querier, p *domain.Product) error
	Delete(ctx context.Context, q Querier, id int64) error
	Search(ctx context.Context, q Querier, term string, limit int) ([]domain.Product, error)
	List(ctx context.Context, q Querier, params ProductListParams) ([]domain.Product, int64, error)
}

// ProductListParams pages through the catalog.
type ProductListParams struct {
	Search   string
	Category string
	Status   domain.ProductStatus
	Limit    int
	Offset   int
}

// SaleRepository persists ledger rows.
type SaleRepository interface {
	MaxSaleNumber(ctx context.Context, q Querier) (int64, error)
	// FindLine returns the line-th row (ordered by id) recorded under key.
	FindLine(ctx context.Context, q Querier, key domain.SaleKey, line int) (*domain.Sale, error)
	Insert(ctx context.Context, q Querier, s *domain.Sale) error
	InsertBatch(ctx context.Context, q Querier, sales []domain.Sale) error
	Update(ctx context.Context, q Querier, s *domain.Sale) error
	Terminals(ctx context.Context, q Querier) ([]string, error)
	// Aggregate summarizes the rows of terminal, or of every terminal for domain.TerminalAll.
	Aggregate(ctx context.Context, q Querier, terminal string) (domain.LedgerAggregate, error)
	List(ctx context.Context, q Querier, filter domain.SaleFilter) ([]domain.Sale, error)
}

// CounterRepository persists per-terminal sequence state.
type CounterRepository interface {
	Ensure(ctx context.Context, q Querier, terminal string) error
	Get(ctx context.Context, q Querier, terminal string) (*domain.Counter, error)
	// GetForUpdate locks the counter row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, q Querier, terminal string) (*domain.Counter, error)
	Save(ctx context.Context, q Querier, c *domain.Counter) error
	List(ctx context.Context, q Querier) ([]domain.Counter, error)
}

// LedgerCounts are the raw numbers behind a dashboard.
type LedgerCounts struct {
	DistinctSales int64
	Revenue       string
	SalesToday    int64
}

// StatsRepository answers read-only reporting queries.
type StatsRepository interface {
	LedgerCounts(ctx context.Context, terminal string, today time.Time) (LedgerCounts, error)
	AvailableProducts(ctx context.Context) (int64, error)
	Diagnostics(ctx context.Context) (domain.Diagnostics, error)
}
