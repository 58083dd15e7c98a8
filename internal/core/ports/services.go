// internal/core/ports/services.go
package ports

import (
	"context"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

// CatalogService reconciles spreadsheet rows into the catalog and serves
// administrator edits.
type CatalogService interface {
	Reconcile(ctx context.Context, rows []domain.Row) (domain.ImportResult, error)
	Get(ctx context.Context, name string) (*domain.Product, error)
	Search(ctx context.Context, term string) ([]domain.Product, error)
	List(ctx context.Context, params ProductListParams) ([]domain.Product, int64, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, originalName string, p *domain.Product) error
	Delete(ctx context.Context, name string) error
}

// SalesImporter upserts historical ledger rows.
type SalesImporter interface {
	Import(ctx context.Context, rows []domain.Row) (domain.ImportResult, error)
	List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
}

// CounterService recomputes and reports terminal counters.
type CounterService interface {
	Reconcile(ctx context.Context) ([]domain.CounterSnapshot, error)
	List(ctx context.Context) ([]domain.CounterSnapshot, error)
	Get(ctx context.Context, terminal string) (*domain.CounterSnapshot, error)
}

// SaleFinalizer turns a cart into a committed, numbered sale.
type SaleFinalizer interface {
	Finalize(ctx context.Context, terminal string, cart *domain.Cart) (*domain.FinalizeResult, error)
}

// CartService edits the cart stored for a session.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID, productName string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, index int) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) (*domain.Cart, error)
	Checkout(ctx context.Context, sessionID, terminal string) (*domain.FinalizeResult, error)
	Totals(cart *domain.Cart) domain.Totals
}

// DashboardService reports ledger statistics.
type DashboardService interface {
	Stats(ctx context.Context, terminal string) (*domain.DashboardStats, error)
	Diagnostics(ctx context.Context) (*domain.Diagnostics, error)
	Invalidate(ctx context.Context) error
}

// Authenticator resolves a terminal identity from credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Principal, error)
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(p domain.Principal) (string, error)
	Verify(token string) (*domain.Principal, error)
}
