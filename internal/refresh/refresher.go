package refresh

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/fetcher"
	"github.com/sells-group/cervejazero/internal/metrics"
	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/store"
)

// DefaultTimeout bounds each source fetch.
const DefaultTimeout = 8 * time.Second

// maxPageBytes caps how much of a page body is read.
const maxPageBytes = 4 << 20

// Outcome is the result of fetching one runtime source. Row is nil when the
// source failed or yielded no candidate; Err is set only on failure.
type Outcome struct {
	SourceID string
	URL      string
	Row      *model.FactRow
	Err      error
	Cached   bool
}

// Options configures a Refresher.
type Options struct {
	Timeout  time.Duration
	Pages    store.PageStore // optional
	PageTTL  time.Duration
	Clock    func() time.Time
	MaxBytes int64
}

// Refresher fetches runtime sources and turns them into brewery count rows.
type Refresher struct {
	fetcher fetcher.Fetcher
	sources []model.RuntimeSource
	opts    Options
	log     *zap.Logger
}

// New creates a Refresher over sources, in the given order.
func New(f fetcher.Fetcher, sources []model.RuntimeSource, opts Options) *Refresher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = maxPageBytes
	}
	return &Refresher{
		fetcher: f,
		sources: sources,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "refresh")),
	}
}

// Sources returns the configured registry.
func (r *Refresher) Sources() []model.RuntimeSource {
	out := make([]model.RuntimeSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// WithTimeout returns a copy of r using a different per-source timeout.
func (r *Refresher) WithTimeout(d time.Duration) *Refresher {
	cp := *r
	if d > 0 {
		cp.opts.Timeout = d
	}
	return &cp
}

// Fetch visits every source sequentially. It never fails as a whole: each
// source reports its own Outcome.
func (r *Refresher) Fetch(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, 0, len(r.sources))
	for _, src := range r.sources {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{SourceID: src.ID, URL: src.URL, Err: eris.Wrap(ctx.Err(), "refresh: cancelled")})
			continue
		}
		start := time.Now()
		o := r.fetchOne(ctx, src)
		metrics.ObserveSince(metrics.RuntimeFetchDuration.WithLabelValues(src.ID), start)
		metrics.RuntimeFetchTotal.WithLabelValues(src.ID, o.label()).Inc()

		switch {
		case o.Err != nil:
			r.log.Warn("runtime source failed",
				zap.String("source", src.ID),
				zap.String("url", src.URL),
				zap.Error(o.Err),
			)
		case o.Row == nil:
			r.log.Info("runtime source had no brewery count", zap.String("source", src.ID))
		default:
			r.log.Info("runtime source parsed",
				zap.String("source", src.ID),
				zap.Int("year", o.Row.Year),
				zap.Float64("breweries", o.Row.Value),
				zap.Bool("cached", o.Cached),
			)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (o Outcome) label() string {
	switch {
	case o.Err != nil:
		return "error"
	case o.Row == nil:
		return "no_match"
	case o.Cached:
		return "cached"
	default:
		return "row"
	}
}

func (r *Refresher) fetchOne(ctx context.Context, src model.RuntimeSource) Outcome {
	out := Outcome{SourceID: src.ID, URL: src.URL}

	year, ok := YearFromID(src.ID)
	if !ok {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	body, contentType, cached, err := r.page(ctx, src.URL)
	if err != nil {
		out.Err = err
		return out
	}
	out.Cached = cached

	decoded, err := fetcher.DecodeBody(bytes.NewReader(body), contentType)
	if err != nil {
		out.Err = err
		return out
	}
	text, err := PageText(decoded)
	if err != nil {
		out.Err = err
		return out
	}

	best, ok := BestCandidate(Candidates(text))
	if !ok {
		return out
	}
	out.Row = &model.FactRow{
		Year:        year,
		Metric:      model.MetricBreweries,
		Segment:     model.CountrySegment,
		SegmentType: model.SegmentCountry,
		Value:       best,
		Status:      model.StatusOfficial,
		Source:      src.URL,
	}
	return out
}

// page returns the body of url, consulting the page cache when configured.
func (r *Refresher) page(ctx context.Context, url string) ([]byte, string, bool, error) {
	var cached *store.Page
	if r.opts.Pages != nil {
		p, err := r.opts.Pages.GetPage(ctx, url)
		if err != nil {
			r.log.Warn("page cache read failed", zap.String("url", url), zap.Error(err))
		}
		cached = p
		if cached.Fresh(r.opts.Clock()) {
			return cached.Body, cached.ContentType, true, nil
		}
	}

	etag := ""
	if cached != nil {
		etag = cached.ETag
	}
	resp, err := r.fetcher.DownloadIfChanged(ctx, url, etag)
	if err != nil {
		return nil, "", false, eris.Wrapf(err, "refresh: fetch %s", url)
	}

	if !resp.Modified && cached != nil {
		cached.FetchedAt = r.opts.Clock().UTC()
		r.putPage(ctx, cached)
		return cached.Body, cached.ContentType, true, nil
	}
	if resp.Body == nil {
		return nil, "", false, eris.Errorf("refresh: empty response from %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.opts.MaxBytes))
	if err != nil {
		return nil, "", false, eris.Wrapf(err, "refresh: read %s", url)
	}

	if r.opts.Pages != nil {
		r.putPage(ctx, &store.Page{
			URL:         url,
			Body:        body,
			ETag:        resp.ETag,
			ContentType: resp.ContentType,
			FetchedAt:   r.opts.Clock().UTC(),
		})
	}
	return body, resp.ContentType, false, nil
}

func (r *Refresher) putPage(ctx context.Context, p *store.Page) {
	if err := r.opts.Pages.PutPage(ctx, p, r.opts.PageTTL); err != nil {
		r.log.Warn("page cache write failed", zap.String("url", p.URL), zap.Error(err))
	}
}

// PruneCache drops cached pages that expired more than grace ago.
func (r *Refresher) PruneCache(ctx context.Context, grace time.Duration) (int, error) {
	if r.opts.Pages == nil {
		return 0, nil
	}
	n, err := r.opts.Pages.DeleteExpiredPages(ctx, r.opts.Clock().Add(-grace))
	return n, eris.Wrap(err, "refresh: prune page cache")
}

// Rows collects the rows of successful outcomes, in source order.
func Rows(outcomes []Outcome) []model.FactRow {
	var rows []model.FactRow
	for _, o := range outcomes {
		if o.Row != nil {
			rows = append(rows, *o.Row)
		}
	}
	return rows
}
