// Package transform normalizes raw cells and labels before they enter the fact table.
package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLocaleFloat parses a pt-BR formatted number ('.' thousands, ',' decimal).
// Blank or unparsable input yields NaN.
func ParseLocaleFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return math.NaN()
	}
	return d.InexactFloat64()
}

// ParseCell parses a CSV cell written in canonical dot-decimal form, falling
// back to locale parsing for cells such as "1.234,5". ok is false for blank
// cells, which callers treat as missing rather than zero.
func ParseCell(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return ParseLocaleFloat(s), true
}

// ParseYear parses an integer year cell. Float-formatted years ("2024.0") are accepted.
func ParseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
