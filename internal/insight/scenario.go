package insight

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/forecast"
	"github.com/sells-group/cervejazero/internal/model"
)

// ScenarioSource marks rows written by a what-if simulation.
const ScenarioSource = "Scenario simulation"

// Scenario is a what-if adjustment, in percent.
type Scenario struct {
	GrowthZeroPct         float64 `json:"growth_zero_pct"`
	RegularVariationPct   float64 `json:"regular_variation_pct"`
	SpendingElasticityPct float64 `json:"spending_elasticity_pct"`
}

// Validate rejects adjustments that would drive every value below zero.
func (s Scenario) Validate() error {
	for name, v := range map[string]float64{
		"growth_zero_pct":         s.GrowthZeroPct,
		"regular_variation_pct":   s.RegularVariationPct,
		"spending_elasticity_pct": s.SpendingElasticityPct,
	} {
		if missing(v) || v < -100 || v > 1000 {
			return eris.Errorf("insight: %s must be within [-100, 1000], got %v", name, v)
		}
	}
	return nil
}

// ApplyScenario returns a copy of rows with the scenario applied.
//
// For 2025 and 2026 the national zero and regular volumes become the previous
// year's value grown by the scenario rates, and total volume and zero share
// are recomputed. Each state's 2026 spending becomes its 2025 spending grown by
// the elasticity. Written rows are marked estimated with ScenarioSource. The
// second return value lists the written rows in write order.
func ApplyScenario(rows []model.FactRow, s Scenario) ([]model.FactRow, []model.FactRow) {
	t := facts.NewTable(rows)
	growthZero := s.GrowthZeroPct / 100
	regularChange := s.RegularVariationPct / 100
	spendingChange := s.SpendingElasticityPct / 100

	var changed []model.FactRow
	set := func(metric model.Metric, segment string, st model.SegmentType, year int, v float64) {
		r := model.FactRow{
			Year:        year,
			Metric:      metric,
			Segment:     segment,
			SegmentType: st,
			Value:       v,
			Status:      model.StatusEstimated,
			Source:      ScenarioSource,
		}
		t.Upsert(r)
		changed = append(changed, r)
	}
	country := func(metric model.Metric, year int, v float64) {
		set(metric, model.CountrySegment, model.SegmentCountry, year, v)
	}

	for _, year := range []int{2025, 2026} {
		if prev, ok := t.Value(model.MetricZeroVolume, model.CountrySegment, year-1); ok {
			country(model.MetricZeroVolume, year, max(0, prev*(1+growthZero)))
		}
		if prev, ok := t.Value(model.MetricRegularVolume, model.CountrySegment, year-1); ok {
			country(model.MetricRegularVolume, year, max(0, prev*(1+regularChange)))
		}

		zero, okZero := t.Value(model.MetricZeroVolume, model.CountrySegment, year)
		regular, okRegular := t.Value(model.MetricRegularVolume, model.CountrySegment, year)
		if !okZero || !okRegular {
			continue
		}
		total := max(0, zero+regular)
		share := 0.0
		if total > 0 {
			share = zero / total * 100
		}
		country(model.MetricTotalVolume, year, total)
		country(model.MetricZeroShare, year, forecast.Clamp(model.MetricZeroShare, share))
	}

	for _, r := range t.Select(facts.Filter{Metric: model.MetricSpending, Year: 2025, FiniteOnly: true}) {
		set(model.MetricSpending, r.Segment, model.SegmentState, 2026, max(0, r.Value*(1+spendingChange)))
	}

	return t.Rows(), changed
}
