// Package export writes a bundle to spreadsheet formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cervejazero/internal/model"
)

// Sheet names of the workbook.
const (
	SheetFacts   = "facts"
	SheetMeta    = "meta"
	SheetSources = "sources"
)

// FactHeader is the column order of exported facts.
var FactHeader = []string{"year", "metric", "segment", "segment_type", "value", "data_status", "source"}

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatXLSX, FormatCSV:
		return f, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

// Write encodes b in the given format.
func Write(w io.Writer, f Format, b *model.Bundle) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, b)
	case FormatCSV:
		return WriteCSV(w, b.Facts)
	}
	return eris.Errorf("export: unsupported format %q", f)
}

// FormatValue renders a fact value; missing values are empty.
func FormatValue(r model.FactRow) string {
	if !r.Finite() {
		return ""
	}
	return decimal.NewFromFloat(r.Value).String()
}

func factRecord(r model.FactRow) []string {
	return []string{
		strconv.Itoa(r.Year),
		string(r.Metric),
		r.Segment,
		string(r.SegmentType),
		FormatValue(r),
		string(r.Status),
		r.Source,
	}
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []model.FactRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FactHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(factRecord(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a workbook with the facts, meta and sources sheets.
func WriteXLSX(w io.Writer, b *model.Bundle) error {
	f := xlsx.NewFile()

	facts, err := f.AddSheet(SheetFacts)
	if err != nil {
		return eris.Wrap(err, "export: add facts sheet")
	}
	addStrings(facts.AddRow(), FactHeader...)
	for _, r := range b.Facts {
		row := facts.AddRow()
		row.AddCell().SetInt(r.Year)
		addStrings(row, string(r.Metric), r.Segment, string(r.SegmentType))
		cell := row.AddCell()
		if r.Finite() {
			cell.SetFloat(r.Value)
		}
		addStrings(row, string(r.Status), r.Source)
	}

	meta, err := f.AddSheet(SheetMeta)
	if err != nil {
		return eris.Wrap(err, "export: add meta sheet")
	}
	addStrings(meta.AddRow(), "key", "value")
	addStrings(meta.AddRow(), "status", string(b.Meta.Status))
	addStrings(meta.AddRow(), "last_refresh_utc", b.Meta.LastRefreshUTC)
	addStrings(meta.AddRow(), "source_count", strconv.Itoa(b.Meta.SourceCount))
	addStrings(meta.AddRow(), "notes", b.Meta.Notes)

	sources, err := f.AddSheet(SheetSources)
	if err != nil {
		return eris.Wrap(err, "export: add sources sheet")
	}
	addStrings(sources.AddRow(), "id", "url")
	for _, s := range b.Sources {
		addStrings(sources.AddRow(), s.ID, s.URL)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
