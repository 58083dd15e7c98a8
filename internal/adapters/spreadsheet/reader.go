// internal/adapters/spreadsheet/reader.go

// Package spreadsheet converts workbook and price-list files into header-keyed
// rows for the reconcilers, and renders the ledger back to xlsx.
package spreadsheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/normalize"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// ReadFile parses the first sheet of the workbook at path.
func ReadFile(path string) ([]domain.Row, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return ReadRows(file)
}

// ReadBytes parses the first sheet of an in-memory workbook.
func ReadBytes(data []byte) ([]domain.Row, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return ReadRows(file)
}

// ReadRows maps every row of the first sheet onto the header row. Blank cells
// under a known header are kept as nil so callers can tell a present-but-empty
// column from a missing one. Rows with no values at all are dropped.
func ReadRows(file *xlsx.File) ([]domain.Row, error) {
	if len(file.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := file.Sheets[0]

	var (
		headers []string
		rows    []domain.Row
	)
	err := sheet.ForEachRow(func(r *xlsx.Row) error {
		if headers == nil {
			headers = readHeader(r)
			return nil
		}

		row := make(domain.Row, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			v := cellValue(r.GetCell(i), file.Date1904)
			row[h] = v
			if v != nil {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func readHeader(r *xlsx.Row) []string {
	headers := []string{}
	_ = r.ForEachCell(func(c *xlsx.Cell) error {
		headers = append(headers, normalize.CleanString(c.String(), ""))
		return nil
	})
	return headers
}

// cellValue returns a time.Time for date cells, float64 for numbers, string
// for text and nil for blanks.
func cellValue(c *xlsx.Cell, date1904 bool) any {
	if c == nil {
		return nil
	}

	switch c.Type() {
	case xlsx.CellTypeNumeric, xlsx.CellTypeDate:
		if c.IsTime() {
			if t, err := c.GetTime(date1904); err == nil {
				return t
			}
		}
		if f, err := c.Float(); err == nil {
			return f
		}
	case xlsx.CellTypeBool:
		return c.Bool()
	}

	s := strings.TrimSpace(c.String())
	if s == "" {
		return nil
	}
	return s
}
