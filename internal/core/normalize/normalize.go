// internal/core/normalize/normalize.go

// Package normalize converts raw spreadsheet cell values into canonical typed
// values. Every function is total: malformed input yields the zero value plus
// ok=false (or the supplied default), never an error or a panic.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	trailingDigits = regexp.MustCompile(`(\d+)$`)
)

// DateLayouts are tried in order; the first layout that parses wins.
var DateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
}

// TimeLayouts are tried in order; the first layout that parses wins.
var TimeLayouts = []string{
	"15:4:5",
	"15:4",
}

// CleanString collapses runs of whitespace and trims the result. Nil, blank and
// NaN input return def. Numeric input is stringified.
func CleanString(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		cleaned := strings.TrimSpace(whitespaceRun.ReplaceAllString(t, " "))
		if cleaned == "" {
			return def
		}
		return cleaned
	case float64:
		if math.IsNaN(t) {
			return def
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return CleanString(float64(t), def)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case fmt.Stringer:
		return CleanString(t.String(), def)
	default:
		return def
	}
}

// SafeFloat parses numeric values and strings like "$ 1 250,50". It reports
// false for unparseable, NaN or infinite input.
func SafeFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case string:
		cleaned := strings.ReplaceAll(t, "$", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		cleaned = strings.Join(strings.Fields(cleaned), "")
		if cleaned == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SafeInt parses through float and truncates, so "10.0" yields 10.
func SafeInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return truncate(f)
	}

	f, ok := SafeFloat(v)
	if !ok {
		return 0, false
	}
	return truncate(f)
}

func truncate(f float64) (int, bool) {
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

// ParseDate returns the calendar date of v at midnight UTC.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return ParseDate(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range DateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// ParseTime returns the time of day of v anchored on year 0, UTC.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return ParseTime(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range TimeLayouts {
			if tod, err := time.Parse(layout, s); err == nil {
				return tod, true
			}
		}
	}
	return time.Time{}, false
}

// ExtractTrailingSequence returns the integer formed by the trailing digits of
// v, or 0 when there are none.
func ExtractTrailingSequence(v string) int64 {
	m := trailingDigits.FindStringSubmatch(v)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
