// Package facts provides indexed access to the unified fact table and the
// local/runtime merge.
package facts

import (
	"sort"

	"github.com/sells-group/cervejazero/internal/model"
)

// Table is an ordered fact table with an index on the natural key.
// When the input holds duplicate keys, lookups resolve to the first row.
type Table struct {
	rows []model.FactRow
	idx  map[model.Key]int
}

// NewTable copies rows into a new indexed Table.
func NewTable(rows []model.FactRow) *Table {
	t := &Table{
		rows: make([]model.FactRow, len(rows)),
		idx:  make(map[model.Key]int, len(rows)),
	}
	copy(t.rows, rows)
	for i, r := range t.rows {
		if _, ok := t.idx[r.Key()]; !ok {
			t.idx[r.Key()] = i
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []model.FactRow {
	out := make([]model.FactRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Get returns the row stored under (metric, segment, year).
func (t *Table) Get(metric model.Metric, segment string, year int) (model.FactRow, bool) {
	i, ok := t.idx[model.Key{Year: year, Metric: metric, Segment: segment}]
	if !ok {
		return model.FactRow{}, false
	}
	return t.rows[i], true
}

// Value returns the finite value stored under (metric, segment, year).
// NaN rows read as missing.
func (t *Table) Value(metric model.Metric, segment string, year int) (float64, bool) {
	r, ok := t.Get(metric, segment, year)
	if !ok || !r.Finite() {
		return 0, false
	}
	return r.Value, true
}

// Upsert overwrites value, status and source of the row under r's key, or
// appends r when the key is new. It is the only in-place mutation of a row.
func (t *Table) Upsert(r model.FactRow) {
	if i, ok := t.idx[r.Key()]; ok {
		t.rows[i].Value = r.Value
		t.rows[i].Status = r.Status
		t.rows[i].Source = r.Source
		return
	}
	t.idx[r.Key()] = len(t.rows)
	t.rows = append(t.rows, r)
}

// Filter selects rows matching every non-zero field of the query.
type Filter struct {
	Metric      model.Metric
	Segment     string
	SegmentType model.SegmentType
	Status      model.Status
	Year        int
	FiniteOnly  bool
}

// Select returns the rows matching f, in table order.
func (t *Table) Select(f Filter) []model.FactRow {
	var out []model.FactRow
	for _, r := range t.rows {
		if f.Metric != "" && r.Metric != f.Metric {
			continue
		}
		if f.Segment != "" && r.Segment != f.Segment {
			continue
		}
		if f.SegmentType != "" && r.SegmentType != f.SegmentType {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Year != 0 && r.Year != f.Year {
			continue
		}
		if f.FiniteOnly && !r.Finite() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Years returns the distinct years present, ascending.
func (t *Table) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range t.rows {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

// Finite drops rows whose value is NaN or infinite.
func Finite(rows []model.FactRow) []model.FactRow {
	out := make([]model.FactRow, 0, len(rows))
	for _, r := range rows {
		if r.Finite() {
			out = append(out, r)
		}
	}
	return out
}

// SortCanonical orders rows by (metric, segment, year), keeping the input
// order for ties.
func SortCanonical(rows []model.FactRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		return a.Year < b.Year
	})
}
