// internal/adapters/spreadsheet/writer.go
package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

// ContentType is the MIME type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerHeaders are the export columns. They match the sales import columns,
// so an exported ledger can be imported again.
var LedgerHeaders = []string{
	domain.ColSaleNumber,
	domain.ColDate,
	domain.ColTime,
	domain.ColClientID,
	domain.ColProduct,
	domain.ColQuantity,
	domain.ColUnitPrice,
	domain.ColTotal,
	domain.ColSeller,
	domain.ColTerminal,
}

// WriteLedger renders sales as a single-sheet workbook.
func WriteLedger(w io.Writer, sales []domain.Sale) error {
	rows := make([][]any, 0, len(sales))
	for _, s := range sales {
		var tod any
		if s.Time != nil {
			tod = s.Time.Format(time.TimeOnly)
		}
		rows = append(rows, []any{
			s.SaleNumber,
			s.Date.Format(time.DateOnly),
			tod,
			s.ClientID,
			s.ProductName,
			s.Quantity,
			s.UnitPrice,
			s.LineTotal,
			s.Seller,
			s.Terminal,
		})
	}
	return WriteWorkbook(w, "Ventas", LedgerHeaders, rows)
}

// WriteWorkbook writes one sheet with a bold header row.
func WriteWorkbook(w io.Writer, sheetName string, headers []string, rows [][]any) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.GetStyle().Font.Bold = true
	}

	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			setCell(row.AddCell(), v)
		}
	}

	for i := range headers {
		sheet.SetColWidth(i+1, i+1, 16)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(c *xlsx.Cell, v any) {
	switch t := v.(type) {
	case nil:
	case string:
		c.SetString(t)
	case int:
		c.SetInt(t)
	case int64:
		c.SetInt64(t)
	case float64:
		c.SetFloat(t)
	case decimal.Decimal:
		c.SetFloat(t.InexactFloat64())
	case bool:
		c.SetBool(t)
	default:
		c.SetString(fmt.Sprint(t))
	}
}
