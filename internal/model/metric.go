package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Metric identifies a measured quantity. The set is closed: a new metric is
// added here and in allMetrics, nowhere else.
type Metric string

const (
	MetricZeroVolume    Metric = "volume_zero_billion_liters"
	MetricRegularVolume Metric = "volume_regular_billion_liters"
	MetricTotalVolume   Metric = "volume_total_billion_liters"
	MetricZeroShare     Metric = "volume_zero_share_pct"

	MetricBreweries              Metric = "breweries_count"
	MetricRegionSudesteBreweries Metric = "region_sudeste_breweries_count"
	MetricRegionNorteBreweries   Metric = "region_norte_breweries_count"
	MetricRegionSudesteShare     Metric = "region_sudeste_share_pct"

	MetricSpending Metric = "spending_billion_reais"

	MetricTradeExportVolume        Metric = "trade_export_volume_million_liters"
	MetricTradeExportRevenue       Metric = "trade_export_revenue_million_usd"
	MetricTradeImportGermanyVolume Metric = "trade_import_germany_volume_million_liters"
	MetricTradeImportGermanyShare  Metric = "trade_import_germany_share_pct"
	MetricTradeExportSAShare       Metric = "trade_export_south_america_share_pct"
	MetricTradeExportParaguayShare Metric = "trade_export_paraguay_share_pct"
	MetricTradeExportDestination   Metric = "trade_export_destination_volume_million_liters"

	MetricPerCapita              Metric = "consumption_per_capita_liters"
	MetricDensityState           Metric = "brewery_density_per_100k"
	MetricConcentrationBreweries Metric = "market_concentration_breweries_pct"
	MetricConcentrationVolume    Metric = "market_concentration_volume_pct"
	MetricBeerStyle              Metric = "beer_style_percentage"
	MetricInflationIPCA          Metric = "inflation_ipca_beer_pct"
	MetricGlobalRankZero         Metric = "global_rank_zero_consumption"
)

// shareMarker is the identifier fragment that marks percentage-of-whole metrics.
const shareMarker = "share"

var allMetrics = []Metric{
	MetricZeroVolume,
	MetricRegularVolume,
	MetricTotalVolume,
	MetricZeroShare,
	MetricBreweries,
	MetricRegionSudesteBreweries,
	MetricRegionNorteBreweries,
	MetricRegionSudesteShare,
	MetricSpending,
	MetricTradeExportVolume,
	MetricTradeExportRevenue,
	MetricTradeImportGermanyVolume,
	MetricTradeImportGermanyShare,
	MetricTradeExportSAShare,
	MetricTradeExportParaguayShare,
	MetricTradeExportDestination,
	MetricPerCapita,
	MetricDensityState,
	MetricConcentrationBreweries,
	MetricConcentrationVolume,
	MetricBeerStyle,
	MetricInflationIPCA,
	MetricGlobalRankZero,
}

var metricSet = func() map[Metric]struct{} {
	m := make(map[Metric]struct{}, len(allMetrics))
	for _, metric := range allMetrics {
		m[metric] = struct{}{}
	}
	return m
}()

// Metrics returns every known metric in declaration order.
func Metrics() []Metric {
	out := make([]Metric, len(allMetrics))
	copy(out, allMetrics)
	return out
}

// ParseMetric converts an identifier into a Metric, rejecting unknown values.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.TrimSpace(s))
	if !m.Valid() {
		return "", eris.Errorf("model: unknown metric %q", s)
	}
	return m, nil
}

// Valid reports whether m is a member of the enumeration.
func (m Metric) Valid() bool {
	_, ok := metricSet[m]
	return ok
}

// IsShare reports whether m is bounded to [0, 100].
func (m Metric) IsShare() bool {
	return strings.Contains(string(m), shareMarker)
}

func (m Metric) String() string { return string(m) }
