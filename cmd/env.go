package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/bundle"
	"github.com/sells-group/cervejazero/internal/config"
	"github.com/sells-group/cervejazero/internal/fetcher"
	"github.com/sells-group/cervejazero/internal/forecast"
	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/refresh"
	"github.com/sells-group/cervejazero/internal/source"
	"github.com/sells-group/cervejazero/internal/store"
)

// pipelineEnv holds the assembled pipeline and the resources it owns.
type pipelineEnv struct {
	Assembler *bundle.Assembler
	Refresher *refresh.Refresher // nil when refresh is disabled
	Pages     store.PageStore    // may be nil
	closers   []func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for i := len(pe.closers) - 1; i >= 0; i-- {
		_ = pe.closers[i]()
	}
}

// runtimeSources returns the configured registry, or the built-in one.
func runtimeSources(c *config.Config) ([]model.RuntimeSource, error) {
	if c.Refresh.SourcesFile == "" {
		return refresh.DefaultSources(), nil
	}
	return refresh.LoadSourcesFile(c.Refresh.SourcesFile)
}

// initPipeline wires loader, refresher, page cache and assembler from c.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	env := &pipelineEnv{}

	if c.Refresh.Enabled {
		sources, err := runtimeSources(c)
		if err != nil {
			return nil, err
		}

		var opts refresh.Options
		opts.Timeout = c.Refresh.Timeout()
		opts.PageTTL = c.Refresh.PageCacheTTL()

		if c.Refresh.PageCacheDSN != "" {
			pages, err := store.NewSQLite(c.Refresh.PageCacheDSN)
			if err != nil {
				return nil, err
			}
			env.closers = append(env.closers, pages.Close)
			if err := pages.Migrate(ctx); err != nil {
				env.Close()
				return nil, eris.Wrap(err, "migrate page cache")
			}
			env.Pages = pages
			opts.Pages = pages
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    c.Refresh.UserAgent,
			Timeout:      c.Refresh.Timeout(),
			MaxRetries:   c.Refresh.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
		env.Refresher = refresh.New(f, sources, opts)
	}

	env.Assembler = bundle.New(bundle.Config{
		Loader:    source.NewLoader(source.Dir(c.Data.Dir), nil),
		Refresher: env.Refresher,
	})

	zap.L().Debug("pipeline initialized",
		zap.String("data_dir", c.Data.Dir),
		zap.Bool("refresh", env.Refresher != nil),
		zap.Bool("page_cache", env.Pages != nil),
	)
	return env, nil
}

// buildOptions derives bundle options from config and command flags.
func buildOptions(c *config.Config, offline bool) bundle.Options {
	opts := bundle.Options{
		Timeout: c.Refresh.Timeout(),
		MinYear: c.Forecast.MinYear,
		MaxYear: c.Forecast.MaxYear,
		Offline: offline || !c.Refresh.Enabled,
	}
	if opts.MinYear == 0 && opts.MaxYear == 0 {
		opts.MinYear, opts.MaxYear = forecast.DefaultMinYear, forecast.DefaultMaxYear
	}
	return opts
}

// newCache wraps the assembler in the configured memo backend.
func newCache(ctx context.Context, c *config.Config, b bundle.Builder) (*bundle.Cache, func() error, error) {
	noop := func() error { return nil }

	switch c.Cache.Backend {
	case "redis":
		rdb, err := bundle.DialRedis(ctx, c.Cache.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return bundle.NewCache(b, bundle.NewRedisBackend(rdb, ""), c.Cache.TTL()), rdb.Close, nil
	case "", "memory":
		return bundle.NewCache(b, bundle.NewMemoryBackend(c.Cache.MaxEntries, nil), c.Cache.TTL()), noop, nil
	default:
		return nil, noop, eris.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
}
