// Package bundle assembles the fact table handed to presentation code: local
// tables are loaded and unified, runtime pages optionally refresh the brewery
// counts, and future years are projected.
package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/forecast"
	"github.com/sells-group/cervejazero/internal/metrics"
	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/refresh"
	"github.com/sells-group/cervejazero/internal/source"
	"github.com/sells-group/cervejazero/internal/unify"
)

// Meta notes.
const (
	NotesOnline  = "Runtime updates from official pages applied."
	NotesOffline = "Offline mode (dados locais)."
)

// Options controls a single build.
type Options struct {
	// Timeout overrides the per-source runtime timeout when positive.
	Timeout time.Duration
	MinYear int
	MaxYear int
	// Offline skips the runtime fetch entirely.
	Offline bool
}

// DefaultOptions returns the standard forecast range with runtime fetch on.
func DefaultOptions() Options {
	return Options{
		Timeout: refresh.DefaultTimeout,
		MinYear: forecast.DefaultMinYear,
		MaxYear: forecast.DefaultMaxYear,
	}
}

// key identifies the options for memoization.
func (o Options) key() string {
	return fmt.Sprintf("bundle:%d-%d:%s:offline=%t", o.MinYear, o.MaxYear, o.Timeout, o.Offline)
}

// Builder produces bundles.
type Builder interface {
	Build(ctx context.Context, opts Options) (*model.Bundle, error)
}

// Assembler wires the pipeline stages together.
type Assembler struct {
	loader     *source.Loader
	unify      unify.Options
	refresher  *refresh.Refresher
	forecaster forecast.Forecaster
	clock      func() time.Time
	log        *zap.Logger
}

// Config holds the stages of an Assembler. Refresher may be nil, which
// disables runtime enrichment.
type Config struct {
	Loader     *source.Loader
	Unify      unify.Options
	Refresher  *refresh.Refresher
	Forecaster forecast.Forecaster
	Clock      func() time.Time
}

// New creates an Assembler. A nil Loader reads the embedded seed tables.
func New(cfg Config) *Assembler {
	if cfg.Loader == nil {
		cfg.Loader = source.NewLoader(source.Seed(), nil)
	}
	if cfg.Unify.OfficialUntil == 0 {
		cfg.Unify = unify.DefaultOptions()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Assembler{
		loader:     cfg.Loader,
		unify:      cfg.Unify,
		refresher:  cfg.Refresher,
		forecaster: cfg.Forecaster,
		clock:      cfg.Clock,
		log:        zap.L().With(zap.String("component", "bundle")),
	}
}

// Sources returns the configured runtime sources, empty when refresh is off.
func (a *Assembler) Sources() []model.RuntimeSource {
	if a.refresher == nil {
		return []model.RuntimeSource{}
	}
	return a.refresher.Sources()
}

// Build runs load, unify, fetch, merge and forecast. Only a failed load is
// returned as an error; runtime failures degrade to offline.
func (a *Assembler) Build(ctx context.Context, opts Options) (*model.Bundle, error) {
	start := time.Now()
	b, err := a.build(ctx, opts)
	metrics.ObserveSince(metrics.BundleBuildDuration, start)
	if err != nil {
		metrics.BundleBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.BundleBuildsTotal.WithLabelValues("ok").Inc()

	counts := map[model.Status]int{}
	for _, r := range b.Facts {
		counts[r.Status]++
	}
	for _, st := range []model.Status{model.StatusOfficial, model.StatusEstimated} {
		metrics.BundleFactRows.WithLabelValues(string(st)).Set(float64(counts[st]))
	}

	a.log.Info("bundle built",
		zap.Int("facts", len(b.Facts)),
		zap.Int("official", counts[model.StatusOfficial]),
		zap.Int("estimated", counts[model.StatusEstimated]),
		zap.String("status", string(b.Meta.Status)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}

func (a *Assembler) build(ctx context.Context, opts Options) (*model.Bundle, error) {
	if opts.MinYear == 0 && opts.MaxYear == 0 {
		opts.MinYear, opts.MaxYear = forecast.DefaultMinYear, forecast.DefaultMaxYear
	}

	tables, err := a.loader.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "bundle: load local tables")
	}
	local := unify.Unify(tables, a.unify)

	var runtime []model.FactRow
	if !opts.Offline && a.refresher != nil {
		r := a.refresher
		if opts.Timeout > 0 {
			r = r.WithTimeout(opts.Timeout)
		}
		runtime = refresh.Rows(r.Fetch(ctx))
	}

	merged := facts.MergeWithPriority(local, runtime)
	filled := a.forecaster.Fill(merged, opts.MinYear, opts.MaxYear)

	meta := model.RuntimeMeta{
		Status:         model.RefreshOffline,
		LastRefreshUTC: a.clock().UTC().Format(time.RFC3339),
		SourceCount:    len(a.Sources()),
		Notes:          NotesOffline,
	}
	if len(runtime) > 0 {
		meta.Status = model.RefreshOnline
		meta.Notes = NotesOnline
	}

	return &model.Bundle{
		Facts:   filled,
		Meta:    meta,
		Sources: a.Sources(),
	}, nil
}
