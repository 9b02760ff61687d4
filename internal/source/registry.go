package source

import (
	"github.com/rotisserie/eris"
)

// Name identifies a raw input table.
type Name string

// Raw input tables, in load order.
const (
	TableVolume           Name = "volume"
	TableSpending         Name = "spending"
	TableBreweries        Name = "breweries"
	TableStateBreweries   Name = "state_breweries"
	TableRegionHighlights Name = "region_highlights"
	TableTrade            Name = "trade"
	TablePerCapita        Name = "per_capita"
	TableDensity          Name = "density"
	TableConcentration    Name = "concentration"
	TableStyles           Name = "styles"
	TableInflation        Name = "inflation"
	TableExportsDetailed  Name = "exports_detailed"
)

// Spec describes one raw table: where it lives and which columns it must carry.
type Spec struct {
	Name     Name
	File     string
	Required []string
}

// Registry maps table names to their specs.
type Registry struct {
	specs map[Name]Spec
	order []Name // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[Name]Spec)}
}

// DefaultRegistry returns the twelve tables the unifier consumes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Spec{TableVolume, "zero_vs_regular_beer_volume.csv",
		[]string{"Year", "Zero_Beer_Billion_Liters", "Regular_Beer_Billion_Liters"}})
	r.Register(Spec{TableSpending, "alcoholic_beverage_spending_2025.csv",
		[]string{"state", "spending_billion_reais"}})
	r.Register(Spec{TableBreweries, "mapa_breweries_history.csv",
		[]string{"year", "breweries_count"}})
	r.Register(Spec{TableStateBreweries, "mapa_state_breweries_selected.csv",
		[]string{"year", "state", "breweries_count"}})
	r.Register(Spec{TableRegionHighlights, "mapa_region_highlights.csv",
		[]string{"year"}})
	r.Register(Spec{TableTrade, "mapa_trade_2024.csv",
		[]string{"metric", "value"}})
	r.Register(Spec{TablePerCapita, "consumption_per_capita.csv",
		[]string{"year", "liters_per_capita", "source"}})
	r.Register(Spec{TableDensity, "brewery_density_by_state.csv",
		[]string{"state", "breweries_per_100k"}})
	r.Register(Spec{TableConcentration, "market_concentration.csv",
		[]string{"segment", "breweries_pct", "volume_pct"}})
	r.Register(Spec{TableStyles, "beer_styles.csv",
		[]string{"style", "percentage"}})
	r.Register(Spec{TableInflation, "inflation_ipca.csv",
		[]string{"year", "ipca_beer_pct"}})
	r.Register(Spec{TableExportsDetailed, "exports_detailed_2024.csv",
		[]string{"destination", "volume_million_liters"}})
	return r
}

// Register adds a table spec. Registering a name twice replaces the spec but
// keeps its original position.
func (r *Registry) Register(s Spec) {
	if _, ok := r.specs[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.specs[s.Name] = s
}

// Get returns a spec by name.
func (r *Registry) Get(name Name) (Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, eris.Errorf("source: unknown table %q", name)
	}
	return s, nil
}

// Specs returns all specs in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.specs[n])
	}
	return out
}
