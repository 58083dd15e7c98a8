// internal/core/services/sales_import.go
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/normalize"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// SalesImportService merges historical sales spreadsheets into the ledger.
type SalesImportService struct {
	tx     ports.Transactor
	db     ports.Querier
	sales  ports.SaleRepository
	cache  ports.CacheRepository
	logger *slog.Logger
}

var _ ports.SalesImporter = (*SalesImportService)(nil)

// NewSalesImportService creates a new sales import service. cache may be nil.
func NewSalesImportService(
	tx ports.Transactor,
	db ports.Querier,
	sales ports.SaleRepository,
	cache ports.CacheRepository,
	logger *slog.Logger,
) *SalesImportService {
	return &SalesImportService{
		tx:     tx,
		db:     db,
		sales:  sales,
		cache:  cache,
		logger: logger.With(slog.String("service", "sales_import")),
	}
}

// Import upserts ledger rows keyed by (sale number, terminal). Rows sharing a
// key are matched to existing lines in order, so a multi-line sale imported
// twice is rewritten in place. Rows without a sale number get fresh numbers
// above the current ledger maximum.
func (s *SalesImportService) Import(ctx context.Context, rows []domain.Row) (domain.ImportResult, error) {
	var result domain.ImportResult
	today := truncateDay(time.Now())

	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		result = domain.ImportResult{}

		highest, err := s.sales.MaxSaleNumber(ctx, tx)
		if err != nil {
			return err
		}
		nextID := highest + 1
		lines := make(map[domain.SaleKey]int)

		for i, row := range rows {
			sale, explicit, reason := s.parseRow(row, today)
			if reason != "" {
				s.skip(ctx, i, reason)
				result.Skipped++
				continue
			}

			if explicit {
				key := domain.SaleKey{SaleNumber: sale.SaleNumber, Terminal: sale.Terminal}
				line := lines[key]
				lines[key]++

				existing, err := s.sales.FindLine(ctx, tx, key, line)
				if err != nil {
					return err
				}
				if existing != nil {
					existing.Date = sale.Date
					existing.Time = sale.Time
					if sale.ClientID != "" {
						existing.ClientID = sale.ClientID
					}
					existing.ProductName = sale.ProductName
					existing.Quantity = sale.Quantity
					existing.UnitPrice = sale.UnitPrice
					existing.LineTotal = sale.LineTotal
					existing.Seller = sale.Seller
					if err := s.sales.Update(ctx, tx, existing); err != nil {
						return err
					}
					result.Updated++
					continue
				}
			} else {
				sale.SaleNumber = nextID
			}

			if sale.ClientID == "" {
				sale.ClientID = domain.FormatClientID(sale.Terminal, sale.SaleNumber)
				if !domain.FitsColumn(sale.ClientID, domain.MaxClientIDLen) {
					s.skip(ctx, i, "client id too long")
					result.Skipped++
					continue
				}
			}
			if sale.SaleNumber >= nextID {
				nextID = sale.SaleNumber + 1
			}
			if err := s.sales.Insert(ctx, tx, sale); err != nil {
				return err
			}
			result.Created++
		}

		if !result.Changed() {
			return errNothingChanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNothingChanged) {
		return domain.ImportResult{}, domain.StorageError("import sales", err)
	}

	s.logger.InfoContext(ctx, "sales imported",
		slog.Int("rows", len(rows)),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))

	if result.Changed() {
		invalidateCache(ctx, s.cache, s.logger, cacheKeyDashboard)
	}
	return result, nil
}

// parseRow normalizes one spreadsheet row. explicit reports whether the row
// carried its own sale number; a non-empty reason means the row is skipped.
func (s *SalesImportService) parseRow(row domain.Row, today time.Time) (sale *domain.Sale, explicit bool, reason string) {
	product := normalize.CleanString(row[domain.ColProduct], "")
	qty, hasQty := normalize.SafeInt(row[domain.ColQuantity])
	if product == "" || !hasQty || qty == 0 {
		return nil, false, "missing product or quantity"
	}
	if qty < 0 {
		return nil, false, "negative quantity"
	}

	price, _ := normalize.SafeFloat(row[domain.ColUnitPrice])
	unitPrice := decimal.NewFromFloat(price).Round(2)

	lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	if total, ok := normalize.SafeFloat(row[domain.ColTotal]); ok && total != 0 {
		lineTotal = decimal.NewFromFloat(total).Round(2)
	}
	if unitPrice.Abs().GreaterThanOrEqual(domain.MaxPrice) || lineTotal.Abs().GreaterThanOrEqual(domain.MaxLineTotal) {
		return nil, false, "amount out of range"
	}

	date, ok := normalize.ParseDate(row[domain.ColDate])
	if !ok {
		date = today
	}

	sale = &domain.Sale{
		Date:        date,
		ClientID:    normalize.CleanString(row[domain.ColClientID], ""),
		ProductName: product,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		LineTotal:   lineTotal,
		Seller:      normalize.CleanString(row[domain.ColSeller], domain.DefaultSeller),
		Terminal:    normalize.CleanString(row[domain.ColTerminal], domain.TerminalAll),
	}
	switch {
	case !domain.FitsColumn(sale.ProductName, domain.MaxProductNameLen):
		return nil, false, "product name too long"
	case !domain.FitsColumn(sale.ClientID, domain.MaxClientIDLen):
		return nil, false, "client id too long"
	case !domain.FitsColumn(sale.Seller, domain.MaxSellerLen):
		return nil, false, "seller too long"
	case !domain.FitsColumn(sale.Terminal, domain.MaxTerminalLen):
		return nil, false, "terminal too long"
	}

	if tod, ok := normalize.ParseTime(row[domain.ColTime]); ok {
		sale.Time = &tod
	}
	if n, ok := normalize.SafeInt(row[domain.ColSaleNumber]); ok && n > 0 {
		sale.SaleNumber = int64(n)
		explicit = true
	}
	return sale, explicit, ""
}

func (s *SalesImportService) skip(ctx context.Context, index int, reason string) {
	s.logger.DebugContext(ctx, "sales row skipped",
		slog.Int("row", index),
		slog.String("reason", reason))
}

// List returns ledger rows matching filter, newest first. A negative limit
// returns every matching row.
func (s *SalesImportService) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	switch {
	case filter.Limit < 0:
		filter.Limit = 0
	case filter.Limit == 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}

	sales, err := s.sales.List(ctx, s.db, filter)
	if err != nil {
		return nil, domain.StorageError("list sales", err)
	}
	return sales, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
