// internal/adapters/spreadsheet/pricelist.go
package spreadsheet

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

var (
	priceListHeaderRe = regexp.MustCompile(`(?i)(producto|descripci[oó]n|art[ií]culo).*precio`)
	priceListFooterRe = regexp.MustCompile(`(?i)^(sub)?total\b`)
	trailingPriceRe   = regexp.MustCompile(`\$?\s*(?:\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,]\d{1,2})?\s*$`)
	pageMarkerRe      = regexp.MustCompile(`(?i)^p[aá]g(ina)?\.?\s*\d+(\s*(de|/)\s*\d+)?$`)
	leadingCodeRe     = regexp.MustCompile(`^\d{3,}\s+`)
	fillerRe          = regexp.MustCompile(`[.\-_]{3,}`)
	spacesRe          = regexp.MustCompile(`\s+`)
)

// ReadPriceListPDF extracts catalog rows from a supplier price list. Every
// text line ending in a price becomes one row; an all-caps line without a
// price sets the category of the rows that follow.
func ReadPriceListPDF(path string) ([]domain.Row, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	return readPriceList(r)
}

// ReadPriceListPDFBytes is ReadPriceListPDF for an in-memory document.
func ReadPriceListPDFBytes(data []byte) ([]domain.Row, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return readPriceList(r)
}

func readPriceList(r *pdf.Reader) ([]domain.Row, error) {
	var lines []string
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}

	return ParsePriceList(lines), nil
}

// ParsePriceList turns price-list text lines into catalog rows.
func ParsePriceList(lines []string) []domain.Row {
	start := 0
	for i, line := range lines {
		if priceListHeaderRe.MatchString(line) {
			start = i + 1
			break
		}
	}

	var (
		rows     []domain.Row
		pending  []string
		category string
	)
	for _, raw := range lines[start:] {
		line := strings.TrimSpace(raw)
		if line == "" || pageMarkerRe.MatchString(line) {
			continue
		}
		if priceListFooterRe.MatchString(line) {
			break
		}

		loc := trailingPriceRe.FindStringIndex(line)
		if loc == nil {
			if len(pending) == 0 && isHeading(line) {
				category = strings.TrimSpace(fillerRe.ReplaceAllString(line, ""))
				continue
			}
			pending = append(pending, line)
			continue
		}

		price, ok := parsePrice(line[loc[0]:])
		name := cleanName(strings.Join(append(pending, line[:loc[0]]), " "))
		pending = pending[:0]
		if !ok || name == "" {
			continue
		}

		row := domain.Row{
			domain.ColProductName: name,
			domain.ColSalePrice:   price,
		}
		if category != "" {
			row[domain.ColCategory] = category
		}
		rows = append(rows, row)
	}
	return rows
}

func isHeading(line string) bool {
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func cleanName(s string) string {
	s = leadingCodeRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = fillerRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

// parsePrice accepts 1.250,50 and 1,250.50 alike: the last separator
// followed by one or two digits is the decimal point.
func parsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, false
	}

	decimalSep := -1
	if i := strings.LastIndexAny(s, ".,"); i >= 0 && len(s)-i-1 <= 2 {
		decimalSep = i
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case i == decimalSep:
			b.WriteByte('.')
		case r == '.' || r == ',':
		default:
			b.WriteRune(r)
		}
	}

	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
