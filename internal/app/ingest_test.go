package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/app"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/internal/pkg/config"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

func writeWorkbook(t *testing.T, name string, headers []string, rows ...[]any) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, spreadsheet.WriteWorkbook(f, "Hoja1", headers, rows))
	return p
}

func TestIngest_DryRun(t *testing.T) {
	catalog := writeWorkbook(t, "catalogo.xlsx", []string{"Nombre", "Precio Venta"},
		[]any{"Yerba Mate 1kg", 12.5}, []any{"Café 500g", 9})
	sales := writeWorkbook(t, "ventas.xlsx", []string{"Producto", "Cantidad", "Terminal"},
		[]any{"Yerba Mate 1kg", 1, "POS1"})

	var progress []string
	report := app.Ingest(context.Background(), nil, app.Sources{Catalog: catalog, Sales: sales},
		app.IngestOptions{
			DryRun: true,
			Progress: func(_, _ int, name, _ string) {
				progress = append(progress, name)
			},
		}, helpers.TestLogger())

	require.Len(t, report.Steps, 2)
	assert.Equal(t, []string{"catalog", "sales"}, progress)
	assert.Equal(t, 2, report.Steps[0].Rows)
	assert.Equal(t, 1, report.Steps[1].Rows)
	assert.Zero(t, report.Failed())
	assert.Empty(t, report.Counters)
}

func TestIngest_DryRunReportsUnreadableFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.xlsx")

	report := app.Ingest(context.Background(), nil,
		app.Sources{Catalog: missing, PriceList: missing + ".pdf"},
		app.IngestOptions{DryRun: true}, helpers.TestLogger())

	require.Len(t, report.Steps, 2)
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, "pricelist", report.Steps[1].Name)
	assert.Contains(t, report.Steps[0].Err.Error(), "failed to read")
}

func TestIngest_NothingConfigured(t *testing.T) {
	report := app.Ingest(context.Background(), nil, app.Sources{},
		app.IngestOptions{DryRun: true}, helpers.TestLogger())

	assert.Empty(t, report.Steps)
	assert.Zero(t, report.Failed())
}

func newBootstrapApp(t *testing.T, ingest config.IngestConfig) (*app.App, *mocks.MockCounterRepository, *mocks.MockSaleRepository) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounterRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	log := helpers.TestLogger()

	a := &app.App{
		Config:     &config.Config{Ingest: ingest},
		Logger:     log,
		Counters:   services.NewCounterService(helpers.PassthroughTransactor(ctrl), nil, counters, sales, []string{domain.TerminalPOS1}, log),
		Dashboards: services.NewDashboardService(nil, nil, counters, nil, "", log),
	}
	return a, counters, sales
}

func TestBootstrap_RebuildsCountersWithoutStartupIngestion(t *testing.T) {
	a, counters, sales := newBootstrapApp(t, config.IngestConfig{OnStartup: false, CatalogPath: "/never/read.xlsx"})

	sales.EXPECT().Terminals(gomock.Any(), gomock.Any()).Return(nil, nil)
	counters.EXPECT().Ensure(gomock.Any(), gomock.Any(), domain.TerminalPOS1).Return(nil)
	counters.EXPECT().Ensure(gomock.Any(), gomock.Any(), domain.TerminalAll).Return(nil)
	sales.EXPECT().Aggregate(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.LedgerAggregate{}, nil).Times(2)
	counters.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	report := app.Bootstrap(context.Background(), a, helpers.TestLogger())

	assert.Empty(t, report.Steps)
	assert.Zero(t, report.Failed())
	require.Len(t, report.Counters, 2)
	assert.Equal(t, "CLIENTE-POS1-0001", report.Counters[0].NextClientID)
}

func TestBootstrap_FailedStartupIngestionLeavesCounters(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "catalogo.xlsx")
	a, _, _ := newBootstrapApp(t, config.IngestConfig{OnStartup: true, CatalogPath: missing})

	report := app.Bootstrap(context.Background(), a, helpers.TestLogger())

	require.Len(t, report.Steps, 1)
	assert.Equal(t, 1, report.Failed())
	assert.Empty(t, report.Counters)
}
