//go:build integration
// +build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/pos-ledger/internal/adapters/db"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/test/helpers"
)

type RepositorySuite struct {
	suite.Suite
	testDB   *helpers.TestDB
	products ports.ProductRepository
	sales    ports.SaleRepository
	counters ports.CounterRepository
	stats    ports.StatsRepository
	ctx      context.Context
}

func (s *RepositorySuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	log := helpers.TestLogger()
	s.products = db.NewProductRepository(log)
	s.sales = db.NewSaleRepository(log)
	s.counters = db.NewCounterRepository(log)
	s.stats = db.NewStatsRepository(s.testDB.Database.SQLDB(), log)
	s.ctx = context.Background()
}

func (s *RepositorySuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
}

func (s *RepositorySuite) pool() ports.Querier {
	return s.testDB.PgxPool
}

func (s *RepositorySuite) TestProduct_CreateAndFindIgnoringCase() {
	p := helpers.CreateTestProduct()
	s.Require().NoError(s.products.Create(s.ctx, s.pool(), p))
	s.NotZero(p.ID)
	s.False(p.CreatedAt.IsZero())

	found, err := s.products.FindByName(s.ctx, s.pool(), "  YERBA mate 1KG ")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(p.ID, found.ID)
	s.True(decimal.NewFromFloat(12.50).Equal(found.SalePrice))
	s.Equal(domain.StatusAvailable, found.Status)

	missing, err := s.products.FindByName(s.ctx, s.pool(), "Té Verde")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositorySuite) TestProduct_DuplicateNameConflicts() {
	s.Require().NoError(s.products.Create(s.ctx, s.pool(), helpers.CreateTestProduct()))

	dup := helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "yerba mate 1kg" })
	err := s.products.Create(s.ctx, s.pool(), dup)
	s.ErrorIs(err, domain.ErrConflict)
}

func (s *RepositorySuite) TestProduct_UpdateAndDelete() {
	p := helpers.CreateTestProduct()
	s.Require().NoError(s.products.Create(s.ctx, s.pool(), p))

	p.SalePrice = decimal.NewFromInt(15)
	p.Status = domain.StatusUnavailable
	s.Require().NoError(s.products.Update(s.ctx, s.pool(), p))

	found, err := s.products.FindByName(s.ctx, s.pool(), p.Name)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(15).Equal(found.SalePrice))
	s.Equal(domain.StatusUnavailable, found.Status)

	s.Require().NoError(s.products.Delete(s.ctx, s.pool(), p.ID))
	s.ErrorIs(s.products.Delete(s.ctx, s.pool(), p.ID), domain.ErrNotFound)
}

func (s *RepositorySuite) TestProduct_SearchOnlyAvailable() {
	for _, p := range []*domain.Product{
		helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Yerba Mate 1kg" }),
		helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Yerba Mate 500g" }),
		helpers.CreateTestProduct(func(p *domain.Product) {
			p.Name = "Yerba Compuesta"
			p.Status = domain.StatusUnavailable
		}),
		helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Café 100% mezcla" }),
	} {
		s.Require().NoError(s.products.Create(s.ctx, s.pool(), p))
	}

	found, err := s.products.Search(s.ctx, s.pool(), "yerba", 10)
	s.Require().NoError(err)
	s.Len(found, 2)

	found, err = s.products.Search(s.ctx, s.pool(), "100%", 10)
	s.Require().NoError(err)
	s.Len(found, 1)

	list, total, err := s.products.List(s.ctx, s.pool(), ports.ProductListParams{Limit: 2})
	s.Require().NoError(err)
	s.Len(list, 2)
	s.Equal(int64(4), total)
}

func (s *RepositorySuite) TestSale_BatchLinesAndLookup() {
	lines := []domain.Sale{
		*helpers.CreateTestSale(func(x *domain.Sale) { x.SaleNumber = 7; x.ProductName = "Té" }),
		*helpers.CreateTestSale(func(x *domain.Sale) { x.SaleNumber = 7; x.ProductName = "Café" }),
		*helpers.CreateTestSale(func(x *domain.Sale) {
			x.SaleNumber = 3
			x.Terminal = domain.TerminalPOS2
			x.ClientID = domain.FormatClientID(domain.TerminalPOS2, 12)
			x.Time = nil
		}),
	}
	s.Require().NoError(s.sales.InsertBatch(s.ctx, s.pool(), lines))
	for _, l := range lines {
		s.NotZero(l.ID)
	}

	second, err := s.sales.FindLine(s.ctx, s.pool(), domain.SaleKey{SaleNumber: 7, Terminal: domain.TerminalPOS1}, 1)
	s.Require().NoError(err)
	s.Require().NotNil(second)
	s.Equal("Café", second.ProductName)
	s.Require().NotNil(second.Time)
	s.Equal(10, second.Time.Hour())

	third, err := s.sales.FindLine(s.ctx, s.pool(), domain.SaleKey{SaleNumber: 7, Terminal: domain.TerminalPOS1}, 2)
	s.NoError(err)
	s.Nil(third)

	untimed, err := s.sales.FindLine(s.ctx, s.pool(), domain.SaleKey{SaleNumber: 3, Terminal: domain.TerminalPOS2}, 0)
	s.Require().NoError(err)
	s.Nil(untimed.Time)

	highest, err := s.sales.MaxSaleNumber(s.ctx, s.pool())
	s.Require().NoError(err)
	s.Equal(int64(7), highest)

	terminals, err := s.sales.Terminals(s.ctx, s.pool())
	s.Require().NoError(err)
	s.Equal([]string{domain.TerminalPOS1, domain.TerminalPOS2}, terminals)

	agg, err := s.sales.Aggregate(s.ctx, s.pool(), domain.TerminalAll)
	s.Require().NoError(err)
	s.Equal(domain.LedgerAggregate{DistinctSales: 2, MaxSaleNumber: 7, MaxClientSeq: 12}, agg)

	pos1, err := s.sales.List(s.ctx, s.pool(), domain.SaleFilter{Terminal: domain.TerminalPOS1})
	s.Require().NoError(err)
	s.Len(pos1, 2)
}

func (s *RepositorySuite) TestSale_Update() {
	sale := helpers.CreateTestSale()
	s.Require().NoError(s.sales.Insert(s.ctx, s.pool(), sale))

	sale.Quantity = 5
	sale.LineTotal = decimal.NewFromFloat(62.5)
	s.Require().NoError(s.sales.Update(s.ctx, s.pool(), sale))

	got, err := s.sales.FindLine(s.ctx, s.pool(), domain.SaleKey{SaleNumber: sale.SaleNumber, Terminal: sale.Terminal}, 0)
	s.Require().NoError(err)
	s.Equal(5, got.Quantity)
	s.True(decimal.NewFromFloat(62.5).Equal(got.LineTotal))
}

func (s *RepositorySuite) TestCounter_EnsureSaveAndList() {
	s.Require().NoError(s.counters.Ensure(s.ctx, s.pool(), domain.TerminalPOS1))
	s.Require().NoError(s.counters.Ensure(s.ctx, s.pool(), domain.TerminalPOS1))

	c, err := s.counters.Get(s.ctx, s.pool(), domain.TerminalPOS1)
	s.Require().NoError(err)
	s.Require().NotNil(c)
	s.Zero(c.LastSaleNumber)

	c.Advance()
	s.Require().NoError(s.counters.Save(s.ctx, s.pool(), c))

	all, err := s.counters.List(s.ctx, s.pool())
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(int64(1), all[0].LastSaleNumber)
	s.Equal("CLIENTE-POS1-0002", all[0].Snapshot().NextClientID)

	err = s.counters.Save(s.ctx, s.pool(), &domain.Counter{Terminal: "POS9"})
	s.ErrorIs(err, domain.ErrTerminalNotConfigured)

	missing, err := s.counters.Get(s.ctx, s.pool(), "POS9")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositorySuite) TestStats_AgainstLedger() {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	s.Require().NoError(s.products.Create(s.ctx, s.pool(), helpers.CreateTestProduct()))
	s.Require().NoError(s.sales.InsertBatch(s.ctx, s.pool(), []domain.Sale{
		*helpers.CreateTestSale(func(x *domain.Sale) { x.Date = today }),
		*helpers.CreateTestSale(func(x *domain.Sale) { x.SaleNumber = 2 }),
	}))

	counts, err := s.stats.LedgerCounts(s.ctx, domain.TerminalAll, today)
	s.Require().NoError(err)
	s.Equal(int64(2), counts.DistinctSales)
	s.Equal(int64(1), counts.SalesToday)

	available, err := s.stats.AvailableProducts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), available)
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}
