package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cervejazero/internal/model"
)

type countingBuilder struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (c *countingBuilder) Build(_ context.Context, opts Options) (*model.Bundle, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return &model.Bundle{
		Facts: []model.FactRow{{Year: opts.MinYear, Metric: model.MetricBreweries, Segment: "Brasil", Value: 1}},
		Meta:  model.RuntimeMeta{Status: model.RefreshOffline},
	}, nil
}

func TestCache_HitAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemoryBackend(4, func() time.Time { return now })
	b := &countingBuilder{}
	c := NewCache(b, mem, time.Hour)
	ctx := context.Background()

	first, err := c.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	second, err := c.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), b.calls.Load())

	now = now.Add(61 * time.Minute)
	_, err = c.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load(), "expired entry rebuilds")

	_, err = c.Build(ctx, Options{MinYear: 2025, MaxYear: 2030})
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.calls.Load(), "options are part of the key")
}

func TestCache_ErrorsNotCached(t *testing.T) {
	b := &countingBuilder{err: errors.New("boom")}
	c := NewCache(b, nil, 0)

	_, err := c.Build(context.Background(), DefaultOptions())
	require.Error(t, err)
	_, err = c.Build(context.Background(), DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestCache_ConcurrentMissesShareOneBuild(t *testing.T) {
	b := &countingBuilder{gate: make(chan struct{})}
	c := NewCache(b, nil, time.Hour)

	var wg sync.WaitGroup
	results := make([]*model.Bundle, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Build(context.Background(), DefaultOptions())
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache_CallerTimeoutDoesNotCacheOfflineBundle(t *testing.T) {
	ref := newRefresher(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("<p>Brasil soma 2.001 cervejarias registradas</p>"))
	})
	c := NewCache(New(Config{Refresher: ref, Clock: fixedClock}), nil, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Build(ctx, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")

	b, err := c.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.RefreshOnline, b.Meta.Status)
	assert.Equal(t, NotesOnline, b.Meta.Notes)

	again, err := c.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, b, again)
}

// slowBuilder returns only once its context is done.
type slowBuilder struct {
	calls atomic.Int32
}

func (s *slowBuilder) Build(ctx context.Context, _ Options) (*model.Bundle, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return &model.Bundle{Meta: model.RuntimeMeta{Status: model.RefreshOffline}}, nil
}

func TestCache_BuildPastDeadlineNotStored(t *testing.T) {
	b := &slowBuilder{}
	c := NewCache(b, nil, time.Hour)
	c.buildTimeout = 20 * time.Millisecond

	got, err := c.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.RefreshOffline, got.Meta.Status)

	_, err = c.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestCache_Invalidate(t *testing.T) {
	b := &countingBuilder{}
	c := NewCache(b, nil, time.Hour)
	ctx := context.Background()

	_, err := c.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, DefaultOptions()))
	_, err = c.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestMemoryBackend_LRUEvictionAndStats(t *testing.T) {
	mem := NewMemoryBackend(2, nil)
	ctx := context.Background()
	bundle := &model.Bundle{}

	require.NoError(t, mem.Set(ctx, "a", bundle, time.Hour))
	require.NoError(t, mem.Set(ctx, "b", bundle, time.Hour))

	_, ok, _ := mem.Get(ctx, "a") // a becomes most recent
	assert.True(t, ok)

	require.NoError(t, mem.Set(ctx, "c", bundle, time.Hour))

	_, ok, _ = mem.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = mem.Get(ctx, "a")
	assert.True(t, ok)

	stats := mem.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

// fakeRedis is an in-memory stand-in for the redis commands RedisBackend uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisBackend_RoundTripKeepsNaN(t *testing.T) {
	rdb := newFakeRedis()
	rb := NewRedisBackend(rdb, "")
	ctx := context.Background()

	_, ok, err := rb.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	in := &model.Bundle{
		Facts: []model.FactRow{
			{Year: 2024, Metric: model.MetricZeroShare, Segment: "Brasil", Value: math.NaN(), Status: model.StatusOfficial},
			{Year: 2024, Metric: model.MetricBreweries, Segment: "Brasil", Value: 1949, Status: model.StatusOfficial},
		},
		Meta:    model.RuntimeMeta{Status: model.RefreshOnline, SourceCount: 3},
		Sources: []model.RuntimeSource{{ID: "mapa_2024", URL: "https://example.org"}},
	}
	require.NoError(t, rb.Set(ctx, "k", in, 2*time.Hour))
	assert.Equal(t, 2*time.Hour, rdb.ttls["cervejazero:k"])

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rdb.data["cervejazero:k"], &raw))
	assert.Contains(t, raw, "facts")

	out, ok, err := rb.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, math.IsNaN(out.Facts[0].Value))
	assert.InDelta(t, 1949, out.Facts[1].Value, 0)
	assert.Equal(t, in.Meta, out.Meta)
	assert.Equal(t, in.Sources, out.Sources)

	require.NoError(t, rb.Delete(ctx, "k"))
	_, ok, err = rb.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RedisFailureStillBuilds(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	b := &countingBuilder{}
	c := NewCache(b, NewRedisBackend(rdb, "test:"), time.Hour)

	got, err := c.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int32(1), b.calls.Load())
}
