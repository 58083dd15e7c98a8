// internal/core/services/catalog.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/normalize"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

const (
	searchMinLength = 2
	searchLimit     = 10
	searchCacheTTL  = 5 * time.Minute

	defaultPageSize = 50
	maxPageSize     = 500
)

// errNothingChanged rolls back an ingestion transaction that wrote nothing.
var errNothingChanged = errors.New("nothing changed")

// CatalogService reconciles catalog spreadsheets and serves admin edits.
type CatalogService struct {
	tx       ports.Transactor
	db       ports.Querier
	products ports.ProductRepository
	cache    ports.CacheRepository
	logger   *slog.Logger
}

var _ ports.CatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	tx ports.Transactor,
	db ports.Querier,
	products ports.ProductRepository,
	cache ports.CacheRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		tx:       tx,
		db:       db,
		products: products,
		cache:    cache,
		logger:   logger.With(slog.String("service", "catalog")),
	}
}

// Reconcile upserts catalog rows by case-insensitive name. The batch commits
// once, and only if at least one product was created or updated.
func (s *CatalogService) Reconcile(ctx context.Context, rows []domain.Row) (domain.ImportResult, error) {
	var result domain.ImportResult

	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		result = domain.ImportResult{}
		seen := make(map[string]struct{}, len(rows))

		for i, row := range rows {
			name := normalize.CleanString(row[domain.ColProductName], "")
			if name == "" {
				s.skip(ctx, i, "missing name")
				result.Skipped++
				continue
			}
			if _, dup := seen[name]; dup {
				s.skip(ctx, i, "duplicate name in batch")
				result.Skipped++
				continue
			}
			if !domain.FitsColumn(name, domain.MaxProductNameLen) {
				s.skip(ctx, i, "name too long")
				result.Skipped++
				continue
			}

			var rawPrice any
			if row.Has(domain.ColSalePrice) {
				rawPrice = row[domain.ColSalePrice]
			} else {
				rawPrice = row[domain.ColSalePriceAlternate]
			}
			price, ok := normalize.SafeFloat(rawPrice)
			if !ok {
				s.skip(ctx, i, "missing price")
				result.Skipped++
				continue
			}
			salePrice := decimal.NewFromFloat(price).Round(2)
			if !salePrice.IsPositive() || salePrice.GreaterThanOrEqual(domain.MaxPrice) {
				s.skip(ctx, i, "price out of range")
				result.Skipped++
				continue
			}

			category := normalize.CleanString(row[domain.ColCategory], "")
			subcategory := normalize.CleanString(row[domain.ColSubcategory], "")
			if !domain.FitsColumn(category, domain.MaxCategoryLen) || !domain.FitsColumn(subcategory, domain.MaxCategoryLen) {
				s.skip(ctx, i, "category too long")
				result.Skipped++
				continue
			}

			existing, err := s.products.FindByName(ctx, tx, name)
			if err != nil {
				return err
			}

			if existing != nil {
				if category != "" {
					existing.Category = category
				} else if existing.Category == "" {
					existing.Category = domain.CategoryUncategorized
				}
				existing.Subcategory = subcategory
				existing.SalePrice = salePrice
				existing.Supplier = domain.SupplierCatalog
				if err := s.products.Update(ctx, tx, existing); err != nil {
					return err
				}
				seen[name] = struct{}{}
				result.Updated++
				continue
			}

			p := &domain.Product{
				Name:        name,
				Category:    category,
				Subcategory: subcategory,
				SalePrice:   salePrice,
				Supplier:    domain.SupplierCatalog,
				Status:      domain.StatusAvailable,
			}
			p.ApplyDefaults()
			if err := s.products.Create(ctx, tx, p); err != nil {
				return err
			}
			seen[name] = struct{}{}
			result.Created++
		}

		if !result.Changed() {
			return errNothingChanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNothingChanged) {
		return domain.ImportResult{}, domain.StorageError("reconcile catalog", err)
	}

	s.logger.InfoContext(ctx, "catalog reconciled",
		slog.Int("rows", len(rows)),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))

	if result.Changed() {
		s.invalidate(ctx)
	}
	return result, nil
}

func (s *CatalogService) skip(ctx context.Context, index int, reason string) {
	s.logger.DebugContext(ctx, "catalog row skipped",
		slog.Int("row", index),
		slog.String("reason", reason))
}

// Get returns the product named name, ignoring case.
func (s *CatalogService) Get(ctx context.Context, name string) (*domain.Product, error) {
	p, err := s.products.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, domain.StorageError("get product", err)
	}
	if p == nil {
		return nil, domain.NewNotFoundError("product", name)
	}
	return p, nil
}

// Search returns up to ten available products containing term. Terms shorter
// than two characters match nothing.
func (s *CatalogService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < searchMinLength {
		return []domain.Product{}, nil
	}

	fetch := func() (any, error) {
		return s.products.Search(ctx, s.db, term, searchLimit)
	}

	if s.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, domain.StorageError("search products", err)
		}
		return v.([]domain.Product), nil
	}

	var products []domain.Product
	key := fmt.Sprintf("%s:%s", cacheKeySearch, domain.NameKey(term))
	if err := s.cache.GetOrSet(ctx, key, &products, fetch, searchCacheTTL); err != nil {
		return nil, domain.StorageError("search products", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *CatalogService) List(ctx context.Context, params ports.ProductListParams) ([]domain.Product, int64, error) {
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	products, total, err := s.products.List(ctx, s.db, params)
	if err != nil {
		return nil, 0, domain.StorageError("list products", err)
	}
	return products, total, nil
}

// Create adds a product. A name already present in any case is a conflict.
func (s *CatalogService) Create(ctx context.Context, p *domain.Product) error {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}

	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		existing, err := s.products.FindByName(ctx, tx, p.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewConflictError("product", fmt.Sprintf("product %q already exists", p.Name))
		}
		return s.products.Create(ctx, tx, p)
	})
	if err != nil {
		return domain.StorageError("create product", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("id", p.ID),
		slog.String("name", p.Name))
	s.invalidate(ctx)
	return nil
}

// Update replaces the product found under originalName with p. Status is
// kept when p leaves it blank.
func (s *CatalogService) Update(ctx context.Context, originalName string, p *domain.Product) error {
	if strings.TrimSpace(originalName) == "" {
		return domain.NewValidationError("original_name", "original product name is required")
	}
	keepStatus := p.Status == ""
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}

	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		existing, err := s.products.FindByName(ctx, tx, originalName)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.NewNotFoundError("product", originalName)
		}

		if domain.NameKey(p.Name) != domain.NameKey(existing.Name) {
			clash, err := s.products.FindByName(ctx, tx, p.Name)
			if err != nil {
				return err
			}
			if clash != nil {
				return domain.NewConflictError("product", fmt.Sprintf("product %q already exists", p.Name))
			}
		}

		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		if keepStatus {
			p.Status = existing.Status
		}
		return s.products.Update(ctx, tx, p)
	})
	if err != nil {
		return domain.StorageError("update product", err)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("original_name", originalName),
		slog.String("name", p.Name))
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, name string) error {
	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		existing, err := s.products.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.NewNotFoundError("product", name)
		}
		return s.products.Delete(ctx, tx, existing.ID)
	})
	if err != nil {
		return domain.StorageError("delete product", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("name", name))
	s.invalidate(ctx)
	return nil
}

// invalidate drops cached searches and dashboards after a catalog write.
func (s *CatalogService) invalidate(ctx context.Context) {
	invalidateCache(ctx, s.cache, s.logger, cacheKeySearch, cacheKeyDashboard)
}
