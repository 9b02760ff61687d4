// Package insight derives consumer views from a fact table: KPI cards with
// deltas and sparklines, narrative insight cards, state benchmarks, rankings
// and what-if scenarios.
//
// Missing values are carried as NaN and rendered as "n/d".
package insight

import (
	"fmt"
	"math"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/model"
)

// Missing is the display text for an unavailable value.
const Missing = "n/d"

func missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// SafeRatio returns num/den, or NaN when either side is missing or den is 0.
func SafeRatio(num, den float64) float64 {
	if missing(num) || missing(den) || den == 0 {
		return math.NaN()
	}
	return num / den
}

// FormatX renders a ratio as "1.23x".
func FormatX(v float64) string {
	if missing(v) {
		return Missing
	}
	return fmt.Sprintf("%.2fx", v)
}

// FormatPct renders a percentage as "12.3%".
func FormatPct(v float64) string {
	if missing(v) {
		return Missing
	}
	return fmt.Sprintf("%.1f%%", v)
}

// FormatNum renders v with the given number of decimals.
func FormatNum(v float64, decimals int) string {
	if missing(v) {
		return Missing
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// Optional converts NaN into nil for JSON output.
func Optional(v float64) *float64 {
	if missing(v) {
		return nil
	}
	return &v
}

// value looks up a cell, NaN when absent.
func value(t *facts.Table, metric model.Metric, segment string, year int) float64 {
	v, ok := t.Value(metric, segment, year)
	if !ok {
		return math.NaN()
	}
	return v
}
