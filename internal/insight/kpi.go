package insight

import (
	"fmt"
	"strings"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/model"
)

// Delta colors.
const (
	ColorUp     = "#0f766e"
	ColorDown   = "#dc2626"
	ColorStable = "#64748b"
	colorLine   = "#3b82f6"
)

// Delta arrows.
const (
	ArrowUp     = "↗"
	ArrowDown   = "↘"
	ArrowStable = "→"
)

// stableBand is the absolute percent change treated as flat.
const stableBand = 0.5

// sparklineFromYear is the earliest year plotted in a KPI sparkline.
const sparklineFromYear = 2021

// Delta is the change between two values.
type Delta struct {
	PctChange *float64 `json:"pct_change"`
	Arrow     string   `json:"arrow"`
	Color     string   `json:"color"`
	Formatted string   `json:"formatted"`
}

// ComputeDelta compares current with previous. Missing values or a zero
// previous value yield a flat "n/d" delta.
func ComputeDelta(current, previous float64) Delta {
	if missing(current) || missing(previous) || previous == 0 {
		return Delta{Arrow: ArrowStable, Color: ColorStable, Formatted: Missing}
	}

	pct := (current - previous) / previous * 100
	d := Delta{PctChange: &pct, Arrow: ArrowStable, Color: ColorStable}
	switch {
	case pct > stableBand:
		d.Arrow, d.Color = ArrowUp, ColorUp
	case pct < -stableBand:
		d.Arrow, d.Color = ArrowDown, ColorDown
	}

	sign := ""
	if pct > 0 {
		sign = "+"
	}
	d.Formatted = fmt.Sprintf("%s%.1f%%", sign, pct)
	return d
}

// SparklineSVG draws values as an inline SVG polyline scaled to width x
// height. Fewer than two values produce an empty string.
func SparklineSVG(values []float64, width, height int, color string) string {
	if len(values) < 2 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := float64(width) / float64(len(values)-1)
	points := make([]string, len(values))
	for i, v := range values {
		x := float64(i) * step
		y := float64(height) - (v-lo)/span*float64(height)
		points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}

	return fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" style="display:inline-block; vertical-align:middle; margin-left:8px;">`+
		`<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5" /></svg>`,
		width, height, width, height, strings.Join(points, " "), color)
}

// KPISpec describes one KPI card.
type KPISpec struct {
	Metric      model.Metric
	Segment     string
	Label       string
	Unit        string
	Decimals    int
	NoSparkline bool
}

// KPI is a rendered card.
type KPI struct {
	Label     string   `json:"label"`
	Current   *float64 `json:"current_value"`
	Previous  *float64 `json:"previous_value"`
	Formatted string   `json:"formatted_value"`
	Delta     Delta    `json:"delta"`
	Sparkline string   `json:"sparkline_svg"`
	Status    string   `json:"status"`
}

// MainKPISpecs are the overview cards, in display order.
var MainKPISpecs = []KPISpec{
	{Metric: model.MetricZeroVolume, Segment: model.CountrySegment, Label: "Volume Cerveja Zero", Unit: " bi L", Decimals: 3},
	{Metric: model.MetricZeroShare, Segment: model.CountrySegment, Label: "Market Share Zero", Unit: "%", Decimals: 1},
	{Metric: model.MetricBreweries, Segment: model.CountrySegment, Label: "Cervejarias no Brasil"},
	{Metric: model.MetricPerCapita, Segment: model.CountrySegment, Label: "Consumo Per Capita", Unit: " L/hab", Decimals: 1},
	{Metric: model.MetricTradeExportVolume, Segment: model.CountrySegment, Label: "Exportações", Unit: " M L"},
	{Metric: model.MetricGlobalRankZero, Segment: model.CountrySegment, Label: "Ranking Global Zero", Unit: "º", NoSparkline: true},
}

// KPIWithDelta renders spec for year against year-1.
func KPIWithDelta(t *facts.Table, spec KPISpec, year int) KPI {
	cur := value(t, spec.Metric, spec.Segment, year)
	prev := value(t, spec.Metric, spec.Segment, year-1)

	k := KPI{
		Label:     spec.Label,
		Current:   Optional(cur),
		Previous:  Optional(prev),
		Formatted: Missing,
		Delta:     ComputeDelta(cur, prev),
		Status:    "unknown",
	}
	if r, ok := t.Get(spec.Metric, spec.Segment, year); ok {
		k.Status = string(r.Status)
	}
	if !missing(cur) {
		k.Formatted = fmt.Sprintf("%.*f%s", spec.Decimals, cur, spec.Unit)
	}

	if spec.NoSparkline || missing(cur) {
		return k
	}
	var series []float64
	for y := max(sparklineFromYear, year-4); y <= year; y++ {
		if v := value(t, spec.Metric, spec.Segment, y); !missing(v) {
			series = append(series, v)
		}
	}
	color := colorLine
	if k.Delta.Arrow == ArrowUp {
		color = ColorUp
	}
	k.Sparkline = SparklineSVG(series, 60, 20, color)
	return k
}

// MainKPIs renders the six overview cards for year.
func MainKPIs(t *facts.Table, year int) []KPI {
	out := make([]KPI, len(MainKPISpecs))
	for i, spec := range MainKPISpecs {
		out[i] = KPIWithDelta(t, spec, year)
	}
	return out
}
