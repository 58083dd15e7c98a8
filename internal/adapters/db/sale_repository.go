// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/normalize"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

var saleColumns = []string{
	"id", "sale_number", "sale_date", "sale_time", "client_id", "product_name",
	"quantity", "unit_price", "line_total", "seller", "terminal",
}

const insertSaleSQL = `
	INSERT INTO sales (
		sale_number, sale_date, sale_time, client_id, product_name,
		quantity, unit_price, line_total, seller, terminal
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	logger *slog.Logger
}

// NewSaleRepository creates a new ledger repository
func NewSaleRepository(logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		logger: logger.With(slog.String("repository", "sale")),
	}
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var s domain.Sale
	var tod pgtype.Time
	if err := row.Scan(
		&s.ID, &s.SaleNumber, &s.Date, &tod, &s.ClientID, &s.ProductName,
		&s.Quantity, &s.UnitPrice, &s.LineTotal, &s.Seller, &s.Terminal,
	); err != nil {
		return nil, err
	}
	s.Time = fromPGTime(tod)
	return &s, nil
}

func toPGTime(t *time.Time) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	us := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond) +
		int64(t.Second())*int64(time.Second/time.Microsecond)
	return pgtype.Time{Microseconds: us, Valid: true}
}

func fromPGTime(t pgtype.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	tod := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t.Microseconds) * time.Microsecond)
	return &tod
}

func saleArgs(s *domain.Sale) []any {
	return []any{
		s.SaleNumber, s.Date, toPGTime(s.Time), s.ClientID, s.ProductName,
		s.Quantity, s.UnitPrice, s.LineTotal, s.Seller, s.Terminal,
	}
}

// MaxSaleNumber returns the highest sale number in the whole ledger, or 0.
func (r *saleRepository) MaxSaleNumber(ctx context.Context, q ports.Querier) (int64, error) {
	var highest int64
	if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(sale_number), 0) FROM sales`).Scan(&highest); err != nil {
		return 0, fmt.Errorf("failed to read max sale number: %w", err)
	}
	return highest, nil
}

func (r *saleRepository) FindLine(ctx context.Context, q ports.Querier, key domain.SaleKey, line int) (*domain.Sale, error) {
	query := `
		SELECT id, sale_number, sale_date, sale_time, client_id, product_name,
		       quantity, unit_price, line_total, seller, terminal
		FROM sales
		WHERE sale_number = $1 AND terminal = $2
		ORDER BY id
		OFFSET $3 LIMIT 1`

	s, err := scanOne(q.QueryRow(ctx, query, key.SaleNumber, key.Terminal, line), scanSale)
	if err != nil {
		return nil, fmt.Errorf("failed to find sale %d/%s: %w", key.SaleNumber, key.Terminal, err)
	}
	return s, nil
}

func (r *saleRepository) Insert(ctx context.Context, q ports.Querier, s *domain.Sale) error {
	if err := q.QueryRow(ctx, insertSaleSQL, saleArgs(s)...).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// InsertBatch writes every row in one round trip. Callers run it inside a
// transaction so a failed row discards the whole batch.
func (r *saleRepository) InsertBatch(ctx context.Context, q ports.Querier, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range sales {
		batch.Queue(insertSaleSQL, saleArgs(&sales[i])...)
	}

	br := q.SendBatch(ctx, batch)
	for i := range sales {
		if err := br.QueryRow().Scan(&sales[i].ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert sale line %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close sale batch: %w", err)
	}

	r.logger.DebugContext(ctx, "sale lines inserted",
		slog.Int64("sale_number", sales[0].SaleNumber),
		slog.String("terminal", sales[0].Terminal),
		slog.Int("lines", len(sales)))
	return nil
}

func (r *saleRepository) Update(ctx context.Context, q ports.Querier, s *domain.Sale) error {
	query := `
		UPDATE sales
		SET sale_date = $2, sale_time = $3, client_id = $4, product_name = $5,
		    quantity = $6, unit_price = $7, line_total = $8, seller = $9
		WHERE id = $1`

	tag, err := q.Exec(ctx, query,
		s.ID, s.Date, toPGTime(s.Time), s.ClientID, s.ProductName,
		s.Quantity, s.UnitPrice, s.LineTotal, s.Seller,
	)
	if err != nil {
		return fmt.Errorf("failed to update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("sale", fmt.Sprint(s.ID))
	}
	return nil
}

// Terminals lists every terminal that appears in the ledger.
func (r *saleRepository) Terminals(ctx context.Context, q ports.Querier) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT DISTINCT terminal FROM sales ORDER BY terminal`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger terminals: %w", err)
	}
	terminals, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger terminals: %w", err)
	}
	return terminals, nil
}

// Aggregate recomputes counter values from the ledger. The client sequence is
// derived from the trailing digits of each distinct client id.
func (r *saleRepository) Aggregate(ctx context.Context, q ports.Querier, terminal string) (domain.LedgerAggregate, error) {
	var agg domain.LedgerAggregate

	base := squirrel.Select().From("sales").PlaceholderFormat(squirrel.Dollar)
	if terminal != domain.TerminalAll {
		base = base.Where(squirrel.Eq{"terminal": terminal})
	}

	sql, args, err := base.Columns("COUNT(DISTINCT sale_number)", "COALESCE(MAX(sale_number), 0)").ToSql()
	if err != nil {
		return agg, fmt.Errorf("failed to build aggregate query: %w", err)
	}
	if err := q.QueryRow(ctx, sql, args...).Scan(&agg.DistinctSales, &agg.MaxSaleNumber); err != nil {
		return agg, fmt.Errorf("failed to aggregate ledger for %s: %w", terminal, err)
	}

	sql, args, err = base.Columns("client_id").Distinct().ToSql()
	if err != nil {
		return agg, fmt.Errorf("failed to build client query: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return agg, fmt.Errorf("failed to read client ids for %s: %w", terminal, err)
	}
	clientIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return agg, fmt.Errorf("failed to scan client ids for %s: %w", terminal, err)
	}

	for _, id := range clientIDs {
		if seq := normalize.ExtractTrailingSequence(id); seq > agg.MaxClientSeq {
			agg.MaxClientSeq = seq
		}
	}
	return agg, nil
}

// List returns ledger rows newest first.
func (r *saleRepository) List(ctx context.Context, q ports.Querier, filter domain.SaleFilter) ([]domain.Sale, error) {
	qb := squirrel.Select(saleColumns...).
		From("sales").
		OrderBy("sale_date DESC", "sale_number DESC", "id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.Terminal != "" && filter.Terminal != domain.TerminalAll {
		qb = qb.Where(squirrel.Eq{"terminal": filter.Terminal})
	}
	if filter.SaleNumber != nil {
		qb = qb.Where(squirrel.Eq{"sale_number": *filter.SaleNumber})
	}
	if filter.DateFrom != nil {
		qb = qb.Where(squirrel.GtOrEq{"sale_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		qb = qb.Where(squirrel.LtOrEq{"sale_date": *filter.DateTo})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger query: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return scanMany(rows, scanSale)
}
