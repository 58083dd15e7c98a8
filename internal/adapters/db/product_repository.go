// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

var productColumns = []string{
	"id", "name", "category", "subcategory", "sale_price", "supplier", "status", "created_at",
}

// productRepository implements ports.ProductRepository
type productRepository struct {
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		logger: logger.With(slog.String("repository", "product")),
	}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var status string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Subcategory,
		&p.SalePrice, &p.Supplier, &status, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.ProductStatus(status)
	return &p, nil
}

// FindByName matches on lower(name), which the unique index covers.
func (r *productRepository) FindByName(ctx context.Context, q ports.Querier, name string) (*domain.Product, error) {
	query := `
		SELECT id, name, category, subcategory, sale_price, supplier, status, created_at
		FROM products
		WHERE lower(name) = lower($1)
		LIMIT 1`

	p, err := scanOne(q.QueryRow(ctx, query, strings.TrimSpace(name)), scanProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to find product %q: %w", name, err)
	}
	return p, nil
}

// Create inserts p and fills its generated fields.
func (r *productRepository) Create(ctx context.Context, q ports.Querier, p *domain.Product) error {
	query := `
		INSERT INTO products (name, category, subcategory, sale_price, supplier, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := q.QueryRow(ctx, query,
		p.Name, p.Category, p.Subcategory, p.SalePrice, p.Supplier, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("product", fmt.Sprintf("product %q already exists", p.Name))
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	r.logger.DebugContext(ctx, "product created",
		slog.Int64("id", p.ID),
		slog.String("name", p.Name))
	return nil
}

// Update overwrites every mutable column of p.
func (r *productRepository) Update(ctx context.Context, q ports.Querier, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, category = $3, subcategory = $4, sale_price = $5, supplier = $6, status = $7
		WHERE id = $1`

	tag, err := q.Exec(ctx, query,
		p.ID, p.Name, p.Category, p.Subcategory, p.SalePrice, p.Supplier, string(p.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("product", fmt.Sprintf("product %q already exists", p.Name))
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("product", p.Name)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, q ports.Querier, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("product", fmt.Sprint(id))
	}
	return nil
}

// Search returns available products whose name contains term.
func (r *productRepository) Search(ctx context.Context, q ports.Querier, term string, limit int) ([]domain.Product, error) {
	sql, args, err := squirrel.Select(productColumns...).
		From("products").
		Where(squirrel.ILike{"name": "%" + escapeLike(term) + "%"}).
		Where(squirrel.Eq{"status": string(domain.StatusAvailable)}).
		OrderBy("name ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return scanMany(rows, scanProduct)
}

// List pages through the catalog with optional filters.
func (r *productRepository) List(ctx context.Context, q ports.Querier, params ports.ProductListParams) ([]domain.Product, int64, error) {
	filter := squirrel.And{}
	if params.Search != "" {
		filter = append(filter, squirrel.ILike{"name": "%" + escapeLike(params.Search) + "%"})
	}
	if params.Category != "" {
		filter = append(filter, squirrel.Eq{"category": params.Category})
	}
	if params.Status != "" {
		filter = append(filter, squirrel.Eq{"status": string(params.Status)})
	}

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("products").
		Where(filter).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	qb := squirrel.Select(productColumns...).
		From("products").
		Where(filter).
		OrderBy("name ASC").
		PlaceholderFormat(squirrel.Dollar)
	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		qb = qb.Offset(uint64(params.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := scanMany(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan products: %w", err)
	}
	return products, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}
