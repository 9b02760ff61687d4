// Package model defines the unified fact schema shared by every pipeline stage.
package model

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
)

// Status marks where a value came from.
type Status string

const (
	StatusOfficial  Status = "official"
	StatusEstimated Status = "estimated"
)

// SegmentType is the coarse classification of a FactRow segment.
type SegmentType string

const (
	SegmentCountry       SegmentType = "country"
	SegmentState         SegmentType = "state"
	SegmentRegion        SegmentType = "region"
	SegmentFlow          SegmentType = "flow"
	SegmentMarketSegment SegmentType = "market_segment"
	SegmentStyle         SegmentType = "style"
)

// CountrySegment is the segment label for national aggregates.
const CountrySegment = "Brasil"

// FactRow is one observation in the long-format fact table.
type FactRow struct {
	Year        int         `json:"year"`
	Metric      Metric      `json:"metric"`
	Segment     string      `json:"segment"`
	SegmentType SegmentType `json:"segment_type"`
	Value       float64     `json:"value"`
	Status      Status      `json:"data_status"`
	Source      string      `json:"source"`
}

// Key is the natural de-duplication key of a FactRow.
type Key struct {
	Year    int
	Metric  Metric
	Segment string
}

// Key returns the natural key of r.
func (r FactRow) Key() Key {
	return Key{Year: r.Year, Metric: r.Metric, Segment: r.Segment}
}

// Finite reports whether the value is usable for display and arithmetic.
func (r FactRow) Finite() bool {
	return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// factRowJSON mirrors FactRow with a nullable value so NaN survives a JSON round trip.
type factRowJSON struct {
	Year        int         `json:"year"`
	Metric      Metric      `json:"metric"`
	Segment     string      `json:"segment"`
	SegmentType SegmentType `json:"segment_type"`
	Value       *float64    `json:"value"`
	Status      Status      `json:"data_status"`
	Source      string      `json:"source"`
}

// MarshalJSON encodes a non-finite value as null.
func (r FactRow) MarshalJSON() ([]byte, error) {
	out := factRowJSON{
		Year:        r.Year,
		Metric:      r.Metric,
		Segment:     r.Segment,
		SegmentType: r.SegmentType,
		Status:      r.Status,
		Source:      r.Source,
	}
	if r.Finite() {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null value as NaN.
func (r *FactRow) UnmarshalJSON(data []byte) error {
	var in factRowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrap(err, "model: decode fact row")
	}
	*r = FactRow{
		Year:        in.Year,
		Metric:      in.Metric,
		Segment:     in.Segment,
		SegmentType: in.SegmentType,
		Value:       math.NaN(),
		Status:      in.Status,
		Source:      in.Source,
	}
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}
