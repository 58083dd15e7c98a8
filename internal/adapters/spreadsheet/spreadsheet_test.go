package spreadsheet_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/test/helpers"
)

func TestReadBytes_MapsRowsOntoHeader(t *testing.T) {
	var buf bytes.Buffer
	err := spreadsheet.WriteWorkbook(&buf, "Catalogo",
		[]string{"Nombre", " Categoria ", "Precio Venta"},
		[][]any{
			{"Yerba Mate 1kg", "Almacén", 12.5},
			{"", "", nil},
			{"Azúcar", nil, "3,20"},
		})
	require.NoError(t, err)

	rows, err := spreadsheet.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Yerba Mate 1kg", rows[0][domain.ColProductName])
	assert.Equal(t, "Almacén", rows[0][domain.ColCategory])
	assert.Equal(t, 12.5, rows[0][domain.ColSalePrice])

	assert.True(t, rows[1].Has(domain.ColCategory))
	assert.Nil(t, rows[1][domain.ColCategory])
	assert.Equal(t, "3,20", rows[1][domain.ColSalePrice])
}

func TestReadBytes_Invalid(t *testing.T) {
	_, err := spreadsheet.ReadBytes([]byte("not a workbook"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteWorkbook(&buf, "Ventas",
		[]string{"Producto", "Cantidad"}, [][]any{{"Té", 2}}))
	path := helpers.CreateTempFile(t, buf.Bytes(), ".xlsx")

	rows, err := spreadsheet.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0][domain.ColQuantity])
}

func TestWriteLedger_RoundTripsThroughReader(t *testing.T) {
	withTime := helpers.CreateTestSale()
	noTime := helpers.CreateTestSale(func(s *domain.Sale) {
		s.SaleNumber = 2
		s.Time = nil
		s.UnitPrice = decimal.RequireFromString("3.75")
		s.Quantity = 1
		s.LineTotal = decimal.RequireFromString("3.75")
	})

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteLedger(&buf, []domain.Sale{*withTime, *noTime}))

	rows, err := spreadsheet.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 1.0, first[domain.ColSaleNumber])
	assert.Equal(t, "2024-03-15", first[domain.ColDate])
	assert.Equal(t, "10:30:00", first[domain.ColTime])
	assert.Equal(t, "CLIENTE-POS1-0001", first[domain.ColClientID])
	assert.Equal(t, 25.0, first[domain.ColTotal])
	assert.Equal(t, "POS POS1", first[domain.ColSeller])
	assert.Equal(t, "POS1", first[domain.ColTerminal])

	second := rows[1]
	assert.Nil(t, second[domain.ColTime])
	assert.Equal(t, 3.75, second[domain.ColUnitPrice])

	for _, h := range spreadsheet.LedgerHeaders {
		assert.True(t, first.Has(h), h)
	}
}

func TestParsePriceList(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []domain.Row
	}{
		{
			name: "rows_after_header_until_total",
			lines: []string{
				"Distribuidora Norte",
				"Lista de precios 03/2024",
				"Producto                     Precio",
				"ALMACÉN",
				"1001 Yerba Mate 1kg ........ $ 12,50",
				"Azúcar 1kg 1.250,00",
				"Página 1 de 2",
				"BEBIDAS",
				"Agua mineral 2L 800",
				"TOTAL 2062,50",
				"Ignorado 5,00",
			},
			want: []domain.Row{
				{"Nombre": "Yerba Mate 1kg", "Precio Venta": 12.5, "Categoria": "ALMACÉN"},
				{"Nombre": "Azúcar 1kg", "Precio Venta": 1250.0, "Categoria": "ALMACÉN"},
				{"Nombre": "Agua mineral 2L", "Precio Venta": 800.0, "Categoria": "BEBIDAS"},
			},
		},
		{
			name: "multi_line_names_are_joined",
			lines: []string{
				"Galletitas surtidas",
				"caja x 12 unidades",
				"45.90",
				"Fideos 500g 1,250.00",
			},
			want: []domain.Row{
				{"Nombre": "Galletitas surtidas caja x 12 unidades", "Precio Venta": 45.9},
				{"Nombre": "Fideos 500g", "Precio Venta": 1250.0},
			},
		},
		{
			name:  "no_prices",
			lines: []string{"Sin contenido", ""},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spreadsheet.ParsePriceList(tt.lines))
		})
	}
}

func TestReadPriceListPDF_MissingFile(t *testing.T) {
	_, err := spreadsheet.ReadPriceListPDF("/nonexistent/lista.pdf")
	assert.Error(t, err)
}

func TestReadPriceListPDFBytes_Invalid(t *testing.T) {
	_, err := spreadsheet.ReadPriceListPDFBytes([]byte("not a pdf"))
	assert.Error(t, err)
}
