package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMap(t *testing.T) fstest.MapFS {
	t.Helper()
	m := fstest.MapFS{}
	for _, spec := range DefaultRegistry().Specs() {
		data, err := readSeed(spec.File)
		require.NoError(t, err)
		m[spec.File] = &fstest.MapFile{Data: data}
	}
	return m
}

func readSeed(name string) ([]byte, error) {
	return seedFS.ReadFile("seed/" + name)
}

func TestLoad_Seed(t *testing.T) {
	tables, err := NewLoader(Seed(), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 12)

	vol := tables[TableVolume]
	require.NotNil(t, vol)
	assert.Equal(t, 6, vol.Len())
	assert.Equal(t, "2024", vol.Cell(5, "Year"))
	assert.Equal(t, "0.757", vol.Cell(5, "Zero_Beer_Billion_Liters"))

	region := tables[TableRegionHighlights]
	assert.Equal(t, "", region.Cell(1, "norte_breweries"), "blank cells stay blank")
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	m := seedMap(t)
	delete(m, "mapa_trade_2024.csv")

	_, err := NewLoader(m, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: open mapa_trade_2024.csv")
}

func TestLoad_MissingColumnIsFatal(t *testing.T) {
	m := seedMap(t)
	m["inflation_ipca.csv"] = &fstest.MapFile{Data: []byte("year,ipca\n2024,4.2\n")}

	_, err := NewLoader(m, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "ipca_beer_pct"`)
}

func TestLoad_EmptyFileIsFatal(t *testing.T) {
	m := seedMap(t)
	m["beer_styles.csv"] = &fstest.MapFile{Data: []byte("")}

	_, err := NewLoader(m, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: read beer_styles.csv")
}

func TestLoad_CustomRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spec{Name: TableStyles, File: "styles.csv", Required: []string{"style"}})

	m := fstest.MapFS{"styles.csv": &fstest.MapFile{Data: []byte("style,percentage\nIPA,14\n")}}
	tables, err := NewLoader(m, reg).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, tables, TableStyles)
	assert.Equal(t, "IPA", tables[TableStyles].Cell(0, "style"))
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beer_styles.csv"), []byte("style,percentage\n"), 0o644))

	f, err := Dir(dir).Open("beer_styles.csv")
	require.NoError(t, err)
	f.Close()

	_, err = Dir("").Open("beer_styles.csv")
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	specs := reg.Specs()
	require.Len(t, specs, 12)
	assert.Equal(t, TableVolume, specs[0].Name)
	assert.Equal(t, TableExportsDetailed, specs[11].Name)

	s, err := reg.Get(TableDensity)
	require.NoError(t, err)
	assert.Equal(t, "brewery_density_by_state.csv", s.File)

	_, err = reg.Get("nope")
	require.Error(t, err)

	reg.Register(Spec{Name: TableVolume, File: "volume_v2.csv"})
	assert.Len(t, reg.Specs(), 12)
	assert.Equal(t, "volume_v2.csv", reg.Specs()[0].File)
}

func TestTableCell(t *testing.T) {
	tbl := NewTable(TableTrade, []string{"metric", "value"}, [][]string{{"a", " 1 "}, {"b"}})
	assert.Equal(t, "1", tbl.Cell(0, "value"))
	assert.Equal(t, "", tbl.Cell(1, "value"), "short row")
	assert.Equal(t, "", tbl.Cell(0, "source"), "absent column")
	assert.Equal(t, "", tbl.Cell(9, "metric"))
	assert.Equal(t, "MAPA", tbl.CellOr(0, "source", "MAPA"))
	assert.False(t, tbl.Has("source"))
}
