// Package forecast fills missing future years of the fact table with simple
// trend extrapolations.
//
// For each (metric, segment, segment_type) group and each missing year in the
// target range, the projection uses the first tier that applies:
//
//   - CAGR: at least three prior points whose last three values are positive;
//     the compound rate between the first and last of those three is applied to
//     the latest value.
//   - linear: at least two prior points; the per-year delta of the last two is
//     added to the latest value.
//   - fallback: one prior point; the metric's median official growth rate is
//     applied to it.
//
// Projected rows are appended to the group as they are produced, so a later
// year may build on an earlier projection. Existing rows are never touched.
package forecast

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/model"
)

// Method names the tier that produced an estimate.
type Method string

const (
	MethodCAGR     Method = "CAGR"
	MethodLinear   Method = "linear"
	MethodFallback Method = "fallback"
)

// Source returns the provenance label written on estimated rows.
func (m Method) Source() string {
	return fmt.Sprintf("Estimated (%s)", m)
}

// Default target range.
const (
	DefaultMinYear = 2025
	DefaultMaxYear = 2026
)

// Forecaster projects missing years. The zero value is ready to use.
type Forecaster struct {
	// Growth overrides the per-metric fallback rates. When nil, rates are
	// derived from the input with FallbackGrowth.
	Growth map[model.Metric]float64
}

type groupKey struct {
	metric      model.Metric
	segment     string
	segmentType model.SegmentType
}

type point struct {
	year  int
	value float64
}

// Fill returns rows plus one estimated row per missing (group, year) in
// [minYear, maxYear] that has at least one finite prior anchor. The result is
// sorted by (metric, segment, year). The input slice is not modified.
func (f Forecaster) Fill(rows []model.FactRow, minYear, maxYear int) []model.FactRow {
	out := make([]model.FactRow, len(rows), len(rows)+8)
	copy(out, rows)
	if len(rows) == 0 || minYear > maxYear {
		return out
	}

	growth := f.Growth
	if growth == nil {
		growth = FallbackGrowth(rows)
	}

	var order []groupKey
	groups := make(map[groupKey][]model.FactRow)
	for _, r := range rows {
		k := groupKey{r.Metric, r.Segment, r.SegmentType}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	counts := map[string]int{}
	for _, k := range order {
		generated := fillGroup(k, groups[k], minYear, maxYear, growth[k.metric])
		for _, r := range generated {
			counts[r.Source]++
		}
		out = append(out, generated...)
	}

	facts.SortCanonical(out)

	zap.L().Debug("forecast: filled years",
		zap.Int("min_year", minYear),
		zap.Int("max_year", maxYear),
		zap.Int("groups", len(order)),
		zap.Int("cagr", counts[MethodCAGR.Source()]),
		zap.Int("linear", counts[MethodLinear.Source()]),
		zap.Int("fallback", counts[MethodFallback.Source()]),
	)
	return out
}

func fillGroup(k groupKey, rows []model.FactRow, minYear, maxYear int, fallback float64) []model.FactRow {
	present := make(map[int]struct{}, len(rows))
	history := make([]point, 0, len(rows)+maxYear-minYear+1)
	for _, r := range rows {
		present[r.Year] = struct{}{}
		if r.Finite() {
			history = append(history, point{r.Year, r.Value})
		}
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].year < history[j].year })

	var generated []model.FactRow
	for year := minYear; year <= maxYear; year++ {
		if _, ok := present[year]; ok {
			continue
		}
		prior := before(history, year)
		if len(prior) == 0 {
			continue
		}

		value, method := project(prior, fallback)
		value = Clamp(k.metric, value)

		generated = append(generated, model.FactRow{
			Year:        year,
			Metric:      k.metric,
			Segment:     k.segment,
			SegmentType: k.segmentType,
			Value:       value,
			Status:      model.StatusEstimated,
			Source:      method.Source(),
		})
		present[year] = struct{}{}
		history = insert(history, point{year, value})
	}
	return generated
}

// before returns the prefix of sorted history with year < target.
func before(history []point, target int) []point {
	i := sort.Search(len(history), func(i int) bool { return history[i].year >= target })
	return history[:i]
}

func insert(history []point, p point) []point {
	i := sort.Search(len(history), func(i int) bool { return history[i].year > p.year })
	history = append(history, point{})
	copy(history[i+1:], history[i:])
	history[i] = p
	return history
}

func project(h []point, fallback float64) (float64, Method) {
	last := h[len(h)-1]

	if len(h) >= 3 {
		w := h[len(h)-3:]
		if w[0].value > 0 && w[1].value > 0 && w[2].value > 0 {
			rate := fallback
			if span := w[2].year - w[0].year; span > 0 {
				rate = math.Pow(w[2].value/w[0].value, 1/float64(span)) - 1
			}
			return last.value * (1 + rate), MethodCAGR
		}
	}

	if len(h) >= 2 {
		prev := h[len(h)-2]
		delta := 0.0
		if span := last.year - prev.year; span > 0 {
			delta = (last.value - prev.value) / float64(span)
		}
		return last.value + delta, MethodLinear
	}

	return last.value * (1 + fallback), MethodFallback
}

// Clamp bounds share metrics to [0, 100] and floors every other metric at 0.
func Clamp(metric model.Metric, v float64) float64 {
	if metric.IsShare() {
		return math.Max(0, math.Min(100, v))
	}
	return math.Max(0, v)
}

// FallbackGrowth computes, per metric, the median of the latest year-over-year
// growth of each segment's official series. A segment contributes when it has
// at least two finite official rows and a non-zero previous value. Metrics
// without any contribution map to 0.
func FallbackGrowth(rows []model.FactRow) map[model.Metric]float64 {
	type segKey struct {
		metric  model.Metric
		segment string
	}
	series := make(map[segKey][]point)
	metrics := make(map[model.Metric]struct{})
	for _, r := range rows {
		if r.Status != model.StatusOfficial {
			continue
		}
		metrics[r.Metric] = struct{}{}
		if !r.Finite() {
			continue
		}
		k := segKey{r.Metric, r.Segment}
		series[k] = append(series[k], point{r.Year, r.Value})
	}

	rates := make(map[model.Metric][]float64)
	for k, pts := range series {
		if len(pts) < 2 {
			continue
		}
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].year < pts[j].year })
		prev, curr := pts[len(pts)-2], pts[len(pts)-1]
		if prev.value == 0 {
			continue
		}
		rates[k.metric] = append(rates[k.metric], (curr.value-prev.value)/prev.value)
	}

	out := make(map[model.Metric]float64, len(metrics))
	for m := range metrics {
		out[m] = median(rates[m])
	}
	return out
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
