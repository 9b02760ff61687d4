// Package unify maps the raw input tables onto the long-format fact table.
package unify

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/source"
	"github.com/sells-group/cervejazero/internal/transform"
)

// Fixed source labels.
const (
	SourceVolume     = "Projeto beer_analyses (serie de volume)"
	SourceMAPA       = "MAPA"
	SourceSpending   = "Recorte regional do projeto (2025)"
	SourceAnuario    = "MAPA Anuario 2025"
	SourceIBGE       = "IBGE"
	SourceGlobalRank = "Ranking global consumo cerveja zero"
	SourceComexStat  = "Comex Stat"
)

// DefaultOfficialUntil is the last year of published official data.
const DefaultOfficialUntil = 2024

// Years the single-snapshot tables describe.
const (
	spendingYear = 2025
	snapshotYear = 2024
)

// Options tunes the unifier.
type Options struct {
	// OfficialUntil is the last year considered official for tables whose
	// status is derived from the year.
	OfficialUntil int
}

// DefaultOptions returns the standard cutoff.
func DefaultOptions() Options {
	return Options{OfficialUntil: DefaultOfficialUntil}
}

var tradeMetrics = map[string]model.Metric{
	"Exportacoes de cerveja (volume)":                           model.MetricTradeExportVolume,
	"Faturamento de exportacoes":                                model.MetricTradeExportRevenue,
	"Importacao da Alemanha (volume)":                           model.MetricTradeImportGermanyVolume,
	"Participacao da Alemanha na importacao":                    model.MetricTradeImportGermanyShare,
	"Participacao da America do Sul no destino das exportacoes": model.MetricTradeExportSAShare,
	"Participacao do Paraguai no volume exportado":              model.MetricTradeExportParaguayShare,
}

var tradeSegments = map[model.Metric]string{
	model.MetricTradeExportVolume:        model.CountrySegment,
	model.MetricTradeExportRevenue:       model.CountrySegment,
	model.MetricTradeImportGermanyVolume: "Alemanha",
	model.MetricTradeImportGermanyShare:  "Alemanha",
	model.MetricTradeExportSAShare:       "America do Sul",
	model.MetricTradeExportParaguayShare: "Paraguai",
}

// TradeMetric resolves a trade table label to its metric.
func TradeMetric(label string) (model.Metric, bool) {
	m, ok := tradeMetrics[label]
	return m, ok
}

type unifier struct {
	opts Options
	log  *zap.Logger
	rows []model.FactRow
}

// Unify converts tables into fact rows. Tables absent from the map are
// skipped. The output order follows the table order below, then row order.
func Unify(tables source.Tables, opts Options) []model.FactRow {
	if opts.OfficialUntil == 0 {
		opts.OfficialUntil = DefaultOfficialUntil
	}
	u := &unifier{opts: opts, log: zap.L().With(zap.String("component", "unify"))}

	steps := []struct {
		name source.Name
		fn   func(*source.Table)
	}{
		{source.TableVolume, u.volume},
		{source.TableBreweries, u.breweries},
		{source.TableStateBreweries, u.stateBreweries},
		{source.TableRegionHighlights, u.regionHighlights},
		{source.TableSpending, u.spending},
		{source.TableTrade, u.trade},
		{source.TablePerCapita, u.perCapita},
		{source.TableDensity, u.density},
		{source.TableConcentration, u.concentration},
		{source.TableStyles, u.styles},
		{source.TableInflation, u.inflation},
		{source.TableExportsDetailed, u.exportsDetailed},
	}
	for _, s := range steps {
		if t, ok := tables[s.name]; ok && t != nil {
			s.fn(t)
		}
	}

	u.add(snapshotYear, model.MetricGlobalRankZero, model.CountrySegment, model.SegmentCountry,
		2.0, model.StatusOfficial, SourceGlobalRank)

	u.log.Debug("unified local tables", zap.Int("rows", len(u.rows)))
	return u.rows
}

func (u *unifier) status(year int) model.Status {
	if year <= u.opts.OfficialUntil {
		return model.StatusOfficial
	}
	return model.StatusEstimated
}

func (u *unifier) add(year int, metric model.Metric, segment string, st model.SegmentType, v float64, status model.Status, src string) {
	u.rows = append(u.rows, model.FactRow{
		Year:        year,
		Metric:      metric,
		Segment:     segment,
		SegmentType: st,
		Value:       v,
		Status:      status,
		Source:      src,
	})
}

// year parses the year cell of row i; a bad cell drops the row.
func (u *unifier) year(t *source.Table, i int, col string) (int, bool) {
	y, ok := transform.ParseYear(t.Cell(i, col))
	if !ok {
		u.log.Warn("dropping row with invalid year",
			zap.String("table", string(t.Name)),
			zap.Int("row", i+1),
			zap.String("value", t.Cell(i, col)),
		)
	}
	return y, ok
}

// value parses a required cell; failures stay NaN.
func value(t *source.Table, i int, col string) float64 {
	v, _ := transform.ParseCell(t.Cell(i, col))
	return v
}

// optional parses a cell that may be absent; ok is false when blank.
func optional(t *source.Table, i int, col string) (float64, bool) {
	return transform.ParseCell(t.Cell(i, col))
}

func (u *unifier) volume(t *source.Table) {
	for i := range t.Rows {
		year, ok := u.year(t, i, "Year")
		if !ok {
			continue
		}
		zero := value(t, i, "Zero_Beer_Billion_Liters")
		regular := value(t, i, "Regular_Beer_Billion_Liters")
		total := zero + regular
		share := math.NaN()
		if total != 0 {
			share = zero / total * 100
		}
		st := u.status(year)
		u.add(year, model.MetricZeroVolume, model.CountrySegment, model.SegmentCountry, zero, st, SourceVolume)
		u.add(year, model.MetricRegularVolume, model.CountrySegment, model.SegmentCountry, regular, st, SourceVolume)
		u.add(year, model.MetricTotalVolume, model.CountrySegment, model.SegmentCountry, total, st, SourceVolume)
		u.add(year, model.MetricZeroShare, model.CountrySegment, model.SegmentCountry, share, st, SourceVolume)
	}
}

func (u *unifier) breweries(t *source.Table) {
	for i := range t.Rows {
		year, ok := u.year(t, i, "year")
		if !ok {
			continue
		}
		u.add(year, model.MetricBreweries, model.CountrySegment, model.SegmentCountry,
			value(t, i, "breweries_count"), model.StatusOfficial, t.CellOr(i, "source", SourceMAPA))
	}
}

func (u *unifier) stateBreweries(t *source.Table) {
	for i := range t.Rows {
		year, ok := u.year(t, i, "year")
		if !ok {
			continue
		}
		u.add(year, model.MetricBreweries, transform.NormalizeStateName(t.Cell(i, "state")), model.SegmentState,
			value(t, i, "breweries_count"), model.StatusOfficial, t.CellOr(i, "source", SourceMAPA))
	}
}

func (u *unifier) regionHighlights(t *source.Table) {
	cols := []struct {
		col     string
		metric  model.Metric
		segment string
	}{
		{"sudeste_breweries", model.MetricRegionSudesteBreweries, "Sudeste"},
		{"norte_breweries", model.MetricRegionNorteBreweries, "Norte"},
		{"sudeste_share_pct", model.MetricRegionSudesteShare, "Sudeste"},
	}
	for i := range t.Rows {
		year, ok := u.year(t, i, "year")
		if !ok {
			continue
		}
		src := t.CellOr(i, "source", SourceMAPA)
		for _, c := range cols {
			if v, ok := optional(t, i, c.col); ok {
				u.add(year, c.metric, c.segment, model.SegmentRegion, v, model.StatusOfficial, src)
			}
		}
	}
}

func (u *unifier) spending(t *source.Table) {
	for i := range t.Rows {
		u.add(spendingYear, model.MetricSpending, t.Cell(i, "state"), model.SegmentState,
			value(t, i, "spending_billion_reais"), model.StatusOfficial, SourceSpending)
	}
}

func (u *unifier) trade(t *source.Table) {
	for i := range t.Rows {
		metric, ok := tradeMetrics[t.Cell(i, "metric")]
		if !ok {
			continue
		}
		u.add(snapshotYear, metric, tradeSegments[metric], model.SegmentFlow,
			value(t, i, "value"), model.StatusOfficial, t.CellOr(i, "source", SourceMAPA))
	}
}

func (u *unifier) perCapita(t *source.Table) {
	for i := range t.Rows {
		year, ok := u.year(t, i, "year")
		if !ok {
			continue
		}
		u.add(year, model.MetricPerCapita, model.CountrySegment, model.SegmentCountry,
			value(t, i, "liters_per_capita"), u.status(year), t.Cell(i, "source"))
	}
}

func (u *unifier) density(t *source.Table) {
	for i := range t.Rows {
		u.add(snapshotYear, model.MetricDensityState, t.Cell(i, "state"), model.SegmentState,
			value(t, i, "breweries_per_100k"), model.StatusOfficial, SourceAnuario)
	}
}

func (u *unifier) concentration(t *source.Table) {
	for i := range t.Rows {
		seg := t.Cell(i, "segment")
		u.add(snapshotYear, model.MetricConcentrationBreweries, seg, model.SegmentMarketSegment,
			value(t, i, "breweries_pct"), model.StatusOfficial, SourceAnuario)
		u.add(snapshotYear, model.MetricConcentrationVolume, seg, model.SegmentMarketSegment,
			value(t, i, "volume_pct"), model.StatusOfficial, SourceAnuario)
	}
}

func (u *unifier) styles(t *source.Table) {
	for i := range t.Rows {
		u.add(snapshotYear, model.MetricBeerStyle, t.Cell(i, "style"), model.SegmentStyle,
			value(t, i, "percentage"), model.StatusOfficial, SourceAnuario)
	}
}

func (u *unifier) inflation(t *source.Table) {
	for i := range t.Rows {
		year, ok := u.year(t, i, "year")
		if !ok {
			continue
		}
		u.add(year, model.MetricInflationIPCA, model.CountrySegment, model.SegmentCountry,
			value(t, i, "ipca_beer_pct"), model.StatusOfficial, SourceIBGE)
	}
}

func (u *unifier) exportsDetailed(t *source.Table) {
	for i := range t.Rows {
		u.add(snapshotYear, model.MetricTradeExportDestination, t.Cell(i, "destination"), model.SegmentFlow,
			value(t, i, "volume_million_liters"), model.StatusOfficial, t.CellOr(i, "source", SourceComexStat))
	}
}
