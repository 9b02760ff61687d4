package insight

import (
	"fmt"
	"sort"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/model"
)

// DefaultState is used when no state is selected.
const DefaultState = "São Paulo"

// OtherSegment is the catch-all label excluded from rankings.
const OtherSegment = "Outros"

// Fixed comparison years of the narrative cards.
const (
	baseYear    = 2024
	horizonYear = 2026
	spendYear   = 2025
)

// Card is a narrative insight.
type Card struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	Subtitle string `json:"subtitle"`
}

// Insights returns the five narrative cards for year and state. An empty
// state means DefaultState.
func Insights(t *facts.Table, year int, state string) []Card {
	prevYear := max(baseYear, year-1)

	zeroRatio := SafeRatio(
		value(t, model.MetricZeroVolume, model.CountrySegment, year),
		value(t, model.MetricZeroVolume, model.CountrySegment, prevYear),
	)

	share := value(t, model.MetricZeroShare, model.CountrySegment, year)
	shareDelta := share - value(t, model.MetricZeroShare, model.CountrySegment, prevYear)

	brewRatio := SafeRatio(
		value(t, model.MetricBreweries, model.CountrySegment, horizonYear),
		value(t, model.MetricBreweries, model.CountrySegment, baseYear),
	)

	spVsMG := SafeRatio(
		value(t, model.MetricSpending, "São Paulo", spendYear),
		value(t, model.MetricSpending, "Minas Gerais", spendYear),
	)

	if state == "" {
		state = DefaultState
	}
	stateRatio := SafeRatio(
		value(t, model.MetricBreweries, state, horizonYear),
		value(t, model.MetricBreweries, state, baseYear),
	)

	return []Card{
		{
			Title:    fmt.Sprintf("Cerveja zero em %d", year),
			Value:    FormatX(zeroRatio),
			Subtitle: fmt.Sprintf("Comparado com %d. Ex.: 1.20x significa 20%% maior.", prevYear),
		},
		{
			Title:    "Participacao da zero",
			Value:    FormatPct(share),
			Subtitle: fmt.Sprintf("Ganhou %s pontos percentuais vs %d.", FormatNum(shareDelta, 2), prevYear),
		},
		{
			Title:    "Cervejarias no Brasil",
			Value:    FormatX(brewRatio),
			Subtitle: "Comparacao de 2026 com 2024.",
		},
		{
			Title:    "SP vs MG (gasto 2025)",
			Value:    FormatX(spVsMG),
			Subtitle: "Quanto Sao Paulo representa em relacao a Minas Gerais.",
		},
		{
			Title:    fmt.Sprintf("%s: 2026 vs 2024", state),
			Value:    FormatX(stateRatio),
			Subtitle: "Crescimento de cervejarias no periodo.",
		},
	}
}

// StateOptions lists, sorted, every state segment with brewery or spending data.
func StateOptions(t *facts.Table) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, metric := range []model.Metric{model.MetricBreweries, model.MetricSpending} {
		for _, r := range t.Select(facts.Filter{Metric: metric, SegmentType: model.SegmentState}) {
			if r.Segment == "" {
				continue
			}
			if _, ok := seen[r.Segment]; ok {
				continue
			}
			seen[r.Segment] = struct{}{}
			out = append(out, r.Segment)
		}
	}
	sort.Strings(out)
	return out
}

// BenchmarkRow compares one measure between two states.
type BenchmarkRow struct {
	Label  string   `json:"metric_label"`
	StateA string   `json:"state_a"`
	StateB string   `json:"state_b"`
	A      *float64 `json:"a_value"`
	B      *float64 `json:"b_value"`
	Ratio  *float64 `json:"ratio_a_over_b"`
	Diff   *float64 `json:"diff_a_minus_b"`
}

func benchmarkRow(label, stateA, stateB string, a, b float64) BenchmarkRow {
	return BenchmarkRow{
		Label:  label,
		StateA: stateA,
		StateB: stateB,
		A:      Optional(a),
		B:      Optional(b),
		Ratio:  Optional(SafeRatio(a, b)),
		Diff:   Optional(a - b),
	}
}

// Benchmark compares breweries and spending of two states in year, plus the
// 2026/2024 brewery growth ratio of each.
func Benchmark(t *facts.Table, stateA, stateB string, year int) []BenchmarkRow {
	measures := []struct {
		label  string
		metric model.Metric
	}{
		{"Cervejarias", model.MetricBreweries},
		{"Gasto (R$ bi)", model.MetricSpending},
	}

	out := make([]BenchmarkRow, 0, len(measures)+1)
	for _, m := range measures {
		out = append(out, benchmarkRow(m.label, stateA, stateB,
			value(t, m.metric, stateA, year),
			value(t, m.metric, stateB, year),
		))
	}

	growth := func(state string) float64 {
		return SafeRatio(
			value(t, model.MetricBreweries, state, horizonYear),
			value(t, model.MetricBreweries, state, baseYear),
		)
	}
	out = append(out, benchmarkRow("Crescimento 2026/2024 (cervejarias)", stateA, stateB, growth(stateA), growth(stateB)))
	return out
}

// Rankings returns the n largest finite values of metric in year, optionally
// restricted to a segment type. The "Outros" catch-all is excluded. n <= 0
// returns every row.
func Rankings(t *facts.Table, metric model.Metric, year int, segmentType model.SegmentType, n int) []model.FactRow {
	rows := t.Select(facts.Filter{Metric: metric, Year: year, SegmentType: segmentType, FiniteOnly: true})

	out := rows[:0]
	for _, r := range rows {
		if r.Segment != OtherSegment {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
