package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "official", string(StatusOfficial))
	assert.Equal(t, "estimated", string(StatusEstimated))
}

func TestFactRowKey(t *testing.T) {
	t.Parallel()

	a := FactRow{Year: 2024, Metric: MetricBreweries, Segment: "Brasil", Value: 1900, Source: "MAPA"}
	b := FactRow{Year: 2024, Metric: MetricBreweries, Segment: "Brasil", Value: 1950, Source: "https://gov.br"}
	c := FactRow{Year: 2024, Metric: MetricBreweries, Segment: "São Paulo", Value: 500}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestFactRowJSON_FieldNames(t *testing.T) {
	t.Parallel()

	row := FactRow{
		Year:        2025,
		Metric:      MetricZeroShare,
		Segment:     CountrySegment,
		SegmentType: SegmentCountry,
		Value:       4.9,
		Status:      StatusEstimated,
		Source:      "Estimated (CAGR)",
	}
	data, err := json.Marshal(row)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"year", "metric", "segment", "segment_type", "value", "data_status", "source"} {
		assert.Contains(t, raw, field)
	}
	assert.Equal(t, "estimated", raw["data_status"])
	assert.InDelta(t, 4.9, raw["value"], 1e-9)
}

func TestFactRowJSON_NaNAsNull(t *testing.T) {
	t.Parallel()

	row := FactRow{Year: 2020, Metric: MetricZeroShare, Segment: CountrySegment, Value: math.NaN()}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)

	var back FactRow
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Value))
	assert.False(t, back.Finite())
	assert.Equal(t, row.Key(), back.Key())
}

func TestFactRowFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, FactRow{Value: 0}.Finite())
	assert.False(t, FactRow{Value: math.Inf(1)}.Finite())
	assert.False(t, FactRow{Value: math.NaN()}.Finite())
}
