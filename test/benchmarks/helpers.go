// test/benchmarks/helpers.go
package benchmarks

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/core/domain"
)

var productNames = []string{
	"Yerba Mate 1kg",
	"Café Molido 500g",
	"Azúcar Blanca 1kg",
	"Aceite de Girasol 900ml",
	"Harina 000 1kg",
	"Galletitas de Agua",
	"Dulce de Leche 400g",
	"Fideos Tallarines 500g",
	"Arroz Largo Fino 1kg",
	"Leche Entera 1L",
}

// priceListLines simulates the text extracted from a supplier price list.
func priceListLines(n int) []string {
	lines := []string{"LISTA DE PRECIOS", "PRODUCTO PRECIO"}
	for i := 0; i < n; i++ {
		if i%25 == 0 {
			lines = append(lines, fmt.Sprintf("ALMACEN %d", i/25+1))
		}
		lines = append(lines, fmt.Sprintf("%s x%d ........ $ %d,%02d",
			productNames[i%len(productNames)], i+1, 100+i, i%100))
	}
	return lines
}

// ledgerWorkbook renders n ledger rows spread over three terminals.
func ledgerWorkbook(b *testing.B, n int) []byte {
	b.Helper()

	headers := []string{
		domain.ColSaleNumber, domain.ColDate, domain.ColTime, domain.ColClientID,
		domain.ColProduct, domain.ColQuantity, domain.ColUnitPrice, domain.ColTotal,
		domain.ColSeller, domain.ColTerminal,
	}
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		terminal := domain.DefaultTerminals[i%len(domain.DefaultTerminals)]
		rows = append(rows, []any{
			i/2 + 1, "15/03/2024", "10:30", domain.FormatClientID(terminal, int64(i/2+1)),
			productNames[i%len(productNames)], 2, "12,50", "25,00",
			domain.SellerForTerminal(terminal), terminal,
		})
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteWorkbook(&buf, "Ventas", headers, rows); err != nil {
		b.Fatalf("failed to build workbook: %v", err)
	}
	return buf.Bytes()
}
