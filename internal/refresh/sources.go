// Package refresh scrapes public MAPA pages for current brewery counts.
package refresh

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cervejazero/internal/model"
)

// DefaultSources returns the MAPA news pages that announce yearly brewery
// registrations, in fetch order.
func DefaultSources() []model.RuntimeSource {
	return []model.RuntimeSource{
		{ID: "mapa_2022", URL: "https://www.gov.br/agricultura/pt-br/assuntos/noticias/numero-de-cervejarias-registradas-no-brasil-cresce-11-6-em-2022"},
		{ID: "mapa_2023", URL: "https://www.gov.br/agricultura/pt-br/assuntos/noticias/mercado-cervejeiro-cresce-6-8-em-2023-e-chega-a-1-847-estabelecimentos-no-brasil"},
		{ID: "mapa_2024", URL: "https://www.gov.br/agricultura/pt-br/assuntos/noticias/brasil-chega-a-1-949-cervejarias-registradas"},
	}
}

// sourcesFile is the YAML layout of a runtime source registry.
type sourcesFile struct {
	Sources []model.RuntimeSource `yaml:"sources"`
}

// LoadSourcesFile reads a runtime source registry from a YAML file:
//
//	sources:
//	  - id: mapa_2024
//	    url: https://www.gov.br/...
func LoadSourcesFile(path string) ([]model.RuntimeSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refresh: read sources file %s", path)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a YAML source registry.
func ParseSources(data []byte) ([]model.RuntimeSource, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "refresh: parse sources")
	}

	seen := make(map[string]struct{}, len(f.Sources))
	for i, s := range f.Sources {
		if s.ID == "" || s.URL == "" {
			return nil, eris.Errorf("refresh: source %d needs both id and url", i+1)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, eris.Errorf("refresh: duplicate source id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return f.Sources, nil
}
