package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StateUF maps Brazilian state abbreviations to their canonical names.
var StateUF = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

// foldedStates maps the accent-free lowercase form of each state name to its canonical spelling.
var foldedStates = func() map[string]string {
	m := make(map[string]string, len(StateUF))
	for _, name := range StateUF {
		m[strings.ToLower(FoldDiacritics(name))] = name
	}
	return m
}()

// FoldDiacritics strips combining marks ("São Paulo" -> "Sao Paulo").
func FoldDiacritics(s string) string {
	t := xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := xtransform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeStateName trims a state label and restores the accented spelling
// when it matches a known state after diacritic folding. Labels that are not
// states ("Outros") pass through trimmed.
func NormalizeStateName(s string) string {
	s = strings.TrimSpace(s)
	if canonical, ok := foldedStates[strings.ToLower(FoldDiacritics(s))]; ok {
		return canonical
	}
	return s
}

// StateName resolves a UF abbreviation to its name. Unknown codes return "", false.
func StateName(uf string) (string, bool) {
	name, ok := StateUF[strings.ToUpper(strings.TrimSpace(uf))]
	return name, ok
}
