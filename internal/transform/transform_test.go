package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocaleFloat(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.234", 1234},
		{"1234", 1234},
		{"1.847", 1847},
		{"1.234,5", 1234.5},
		{"0,757", 0.757},
		{" 12 ", 12},
		{"1,949", 1.949},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseLocaleFloat(tt.input), 1e-9, "input: %q", tt.input)
	}
}

func TestParseLocaleFloat_NaN(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "1.2.3,4,5", "n/d"} {
		assert.True(t, math.IsNaN(ParseLocaleFloat(input)), "input: %q", input)
	}
}

func TestParseCell(t *testing.T) {
	v, ok := ParseCell("0.757")
	assert.True(t, ok)
	assert.InDelta(t, 0.757, v, 1e-12)

	v, ok = ParseCell("1.234,5")
	assert.True(t, ok)
	assert.InDelta(t, 1234.5, v, 1e-9)

	v, ok = ParseCell("")
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))

	v, ok = ParseCell("NaN")
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))

	v, ok = ParseCell("garbage")
	assert.True(t, ok, "present but unparsable cells are soft errors, not missing")
	assert.True(t, math.IsNaN(v))
}

func TestParseYear(t *testing.T) {
	y, ok := ParseYear("2024")
	assert.True(t, ok)
	assert.Equal(t, 2024, y)

	y, ok = ParseYear("2023.0")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)

	_, ok = ParseYear("2023.5")
	assert.False(t, ok)
	_, ok = ParseYear("")
	assert.False(t, ok)
	_, ok = ParseYear("year")
	assert.False(t, ok)
}

func TestNormalizeStateName(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"Sao Paulo", "São Paulo"},
		{" São Paulo ", "São Paulo"},
		{"sao paulo", "São Paulo"},
		{"Parana", "Paraná"},
		{"Minas Gerais", "Minas Gerais"},
		{"Outros", "Outros"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeStateName(tt.input), "input: %q", tt.input)
	}
}

func TestFoldDiacritics(t *testing.T) {
	assert.Equal(t, "Sao Paulo", FoldDiacritics("São Paulo"))
	assert.Equal(t, "Espirito Santo", FoldDiacritics("Espírito Santo"))
	assert.Equal(t, "Brasil", FoldDiacritics("Brasil"))
}

func TestStateName(t *testing.T) {
	name, ok := StateName("sp")
	assert.True(t, ok)
	assert.Equal(t, "São Paulo", name)

	_, ok = StateName("XX")
	assert.False(t, ok)
	assert.Len(t, StateUF, 27)
}
