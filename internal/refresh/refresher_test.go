package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/cervejazero/internal/fetcher"
	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/store"
)

const page2024 = `<html><head><title>MAPA</title>
<script>var total = "9999 cervejarias";</script>
<style>.x{}</style></head>
<body><h1>Brasil chega a 1.949 cervejarias registradas</h1>
<p>O Sudeste concentra 850
   estabelecimentos, e São Paulo lidera com 420 cervejarias.</p></body></html>`

func testFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
	})
}

func TestFetch_OutcomePerFailureMode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page2024))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<p>nenhum numero aqui</p>"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sources := []model.RuntimeSource{
		{ID: "mapa_2024", URL: srv.URL + "/ok"},
		{ID: "mapa_2023", URL: srv.URL + "/empty"},
		{ID: "mapa_2022", URL: srv.URL + "/broken"},
		{ID: "mapa_2021", URL: srv.URL + "/gone"},
		{ID: "mapa_2020", URL: srv.URL + "/slow"},
		{ID: "mapa_sem_ano", URL: srv.URL + "/ok"},
	}
	r := New(testFetcher(), sources, Options{Timeout: 200 * time.Millisecond})

	outcomes := r.Fetch(context.Background())
	require.Len(t, outcomes, 6)

	ok := outcomes[0]
	require.NoError(t, ok.Err)
	require.NotNil(t, ok.Row)
	assert.Equal(t, 2024, ok.Row.Year)
	assert.InDelta(t, 1949, ok.Row.Value, 0, "max candidate, script text ignored")
	assert.Equal(t, model.MetricBreweries, ok.Row.Metric)
	assert.Equal(t, model.CountrySegment, ok.Row.Segment)
	assert.Equal(t, model.StatusOfficial, ok.Row.Status)
	assert.Equal(t, srv.URL+"/ok", ok.Row.Source)

	assert.NoError(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Row, "no candidates means no row")

	assert.Error(t, outcomes[2].Err)
	assert.Nil(t, outcomes[2].Row)
	assert.Error(t, outcomes[3].Err)
	assert.Error(t, outcomes[4].Err, "timeout")

	assert.NoError(t, outcomes[5].Err)
	assert.Nil(t, outcomes[5].Row, "ids without a year are skipped")

	rows := Rows(outcomes)
	require.Len(t, rows, 1)
	assert.Equal(t, 2024, rows[0].Year)
}

func TestFetch_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := New(testFetcher(), []model.RuntimeSource{{ID: "mapa_2024", URL: srv.URL}}, Options{})
	assert.Empty(t, Rows(r.Fetch(context.Background())))
}

func TestFetch_Latin1Page(t *testing.T) {
	latin, err := charmap.ISO8859_1.NewEncoder().String("<p>Já são 1.847 estabelecimentos no país</p>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte(latin))
	}))
	defer srv.Close()

	r := New(testFetcher(), []model.RuntimeSource{{ID: "mapa_2023", URL: srv.URL}}, Options{})
	rows := Rows(r.Fetch(context.Background()))
	require.Len(t, rows, 1)
	assert.InDelta(t, 1847, rows[0].Value, 0)
}

func TestFetch_CancelledContext(t *testing.T) {
	r := New(testFetcher(), DefaultSources(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := r.Fetch(ctx)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Error(t, o.Err)
	}
}

func TestFetch_PageCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(page2024))
	}))
	defer srv.Close()

	pages, err := store.NewSQLite(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	defer pages.Close()
	require.NoError(t, pages.Migrate(context.Background()))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sources := []model.RuntimeSource{{ID: "mapa_2024", URL: srv.URL}}
	r := New(testFetcher(), sources, Options{Pages: pages, PageTTL: time.Hour, Clock: clock})

	first := r.Fetch(context.Background())
	require.NotNil(t, first[0].Row)
	assert.False(t, first[0].Cached)
	assert.Equal(t, int32(1), hits.Load())

	second := r.Fetch(context.Background())
	require.NotNil(t, second[0].Row)
	assert.True(t, second[0].Cached)
	assert.Equal(t, int32(1), hits.Load(), "fresh page served from cache")

	now = now.Add(2 * time.Hour)
	third := r.Fetch(context.Background())
	require.NotNil(t, third[0].Row)
	assert.True(t, third[0].Cached, "304 revalidates the stale page")
	assert.Equal(t, int32(2), hits.Load())
	assert.InDelta(t, 1949, third[0].Row.Value, 0)

	n, err := r.PruneCache(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWithTimeout(t *testing.T) {
	r := New(testFetcher(), DefaultSources(), Options{})
	assert.Equal(t, DefaultTimeout, r.opts.Timeout)
	assert.Equal(t, 2*time.Second, r.WithTimeout(2*time.Second).opts.Timeout)
	assert.Equal(t, DefaultTimeout, r.opts.Timeout)
	assert.Len(t, r.Sources(), 3)
}

func TestLoadSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - id: mapa_2024
    url: https://www.gov.br/agricultura/a
  - id: mapa_2025
    url: https://www.gov.br/agricultura/b
`), 0o644))

	sources, err := LoadSourcesFile(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "mapa_2025", sources[1].ID)

	_, err = LoadSourcesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseSources_Invalid(t *testing.T) {
	_, err := ParseSources([]byte("sources:\n  - id: a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs both id and url")

	_, err = ParseSources([]byte("sources:\n  - {id: a, url: x}\n  - {id: a, url: y}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source id")

	_, err = ParseSources([]byte("sources: [unclosed"))
	require.Error(t, err)
}

func TestDefaultSources(t *testing.T) {
	src := DefaultSources()
	require.Len(t, src, 3)
	assert.Equal(t, []string{"mapa_2022", "mapa_2023", "mapa_2024"}, []string{src[0].ID, src[1].ID, src[2].ID})
}
