// Package api serves the fact bundle and its derived views over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/bundle"
	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/insight"
	"github.com/sells-group/cervejazero/internal/metrics"
	"github.com/sells-group/cervejazero/internal/model"
)

// DefaultRankingSize is the number of rows returned by /rankings without n.
const DefaultRankingSize = 10

// Server answers API requests from bundles produced by a Builder, usually a
// bundle.Cache.
type Server struct {
	bundles bundle.Builder
	opts    bundle.Options
	log     *zap.Logger
}

// New creates a Server building bundles with opts.
func New(b bundle.Builder, opts bundle.Options) *Server {
	return &Server{
		bundles: b,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "api")),
	}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bundle", s.getBundle)
		r.Get("/facts", s.getFacts)
		r.Get("/kpis", s.getKPIs)
		r.Get("/insights", s.getInsights)
		r.Get("/states", s.getStates)
		r.Get("/benchmark", s.getBenchmark)
		r.Get("/rankings", s.getRankings)
		r.Post("/scenario", s.postScenario)
	})
	return r
}

// load builds (or fetches the cached) bundle, answering 503 on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*model.Bundle, *facts.Table, bool) {
	b, err := s.bundles.Build(r.Context(), s.opts)
	if err != nil {
		s.log.Error("bundle unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, nil, false
	}
	return b, facts.NewTable(b.Facts), true
}

type bundleSummary struct {
	Meta      model.RuntimeMeta     `json:"meta"`
	Sources   []model.RuntimeSource `json:"sources"`
	FactCount int                   `json:"fact_count"`
	ByStatus  map[model.Status]int  `json:"by_status"`
	Years     []int                 `json:"years"`
}

func (s *Server) getBundle(w http.ResponseWriter, r *http.Request) {
	b, t, ok := s.load(w, r)
	if !ok {
		return
	}
	byStatus := map[model.Status]int{}
	for _, row := range b.Facts {
		byStatus[row.Status]++
	}
	writeJSON(w, http.StatusOK, bundleSummary{
		Meta:      b.Meta,
		Sources:   b.Sources,
		FactCount: len(b.Facts),
		ByStatus:  byStatus,
		Years:     t.Years(),
	})
}

func (s *Server) getFacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := facts.Filter{
		Segment:     q.Get("segment"),
		SegmentType: model.SegmentType(q.Get("segment_type")),
		Status:      model.Status(q.Get("status")),
	}
	if m := q.Get("metric"); m != "" {
		metric, err := model.ParseMetric(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Metric = metric
	}
	year, err := intParam(r, "year", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Year = year

	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	rows := t.Select(f)
	if rows == nil {
		rows = []model.FactRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "facts": rows})
}

func (s *Server) getKPIs(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	year, err := intParam(r, "year", latestYear(t))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "kpis": insight.MainKPIs(t, year)})
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	year, err := intParam(r, "year", latestYear(t))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     year,
		"insights": insight.Insights(t, year, r.URL.Query().Get("state")),
	})
}

func (s *Server) getStates(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	states := insight.StateOptions(t)
	if states == nil {
		states = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (s *Server) getBenchmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := strings.TrimSpace(q.Get("a")), strings.TrimSpace(q.Get("b"))
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "a and b are required")
		return
	}
	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	year, err := intParam(r, "year", latestYear(t))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "rows": insight.Benchmark(t, a, b, year)})
}

func (s *Server) getRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := model.ParseMetric(q.Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := intParam(r, "n", DefaultRankingSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, t, ok := s.load(w, r)
	if !ok {
		return
	}
	year, err := intParam(r, "year", latestYear(t))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows := insight.Rankings(t, metric, year, model.SegmentType(q.Get("segment_type")), n)
	if rows == nil {
		rows = []model.FactRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": metric, "year": year, "rows": rows})
}

type scenarioRequest struct {
	insight.Scenario
	Year int `json:"year"`
}

func (s *Server) postScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, t, ok := s.load(w, r)
	if !ok {
		return
	}
	if req.Year == 0 {
		req.Year = latestYear(t)
	}

	rows, changed := insight.ApplyScenario(b.Facts, req.Scenario)
	scenario := facts.NewTable(rows)
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     req.Year,
		"scenario": req.Scenario,
		"kpis":     insight.MainKPIs(scenario, req.Year),
		"changed":  changed,
	})
}

func latestYear(t *facts.Table) int {
	years := t.Years()
	if len(years) == 0 {
		return 0
	}
	return years[len(years)-1]
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("api: %s must be an integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
