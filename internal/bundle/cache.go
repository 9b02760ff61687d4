package bundle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/cervejazero/internal/metrics"
	"github.com/sells-group/cervejazero/internal/model"
)

// DefaultTTL is how long a built bundle is reused.
const DefaultTTL = 24 * time.Hour

// DefaultBuildTimeout bounds one shared build.
const DefaultBuildTimeout = 2 * time.Minute

// Backend stores built bundles. Returned bundles are shared and must be
// treated as read-only.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) (*model.Bundle, bool, error)
	Set(ctx context.Context, key string, b *model.Bundle, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache memoizes a Builder per Options. Concurrent misses on one key share a
// single build, and failed builds are never stored.
type Cache struct {
	builder      Builder
	backend      Backend
	ttl          time.Duration
	buildTimeout time.Duration
	group        singleflight.Group
	log          *zap.Logger
}

// NewCache wraps builder. A nil backend means an in-memory backend with 16
// entries; a non-positive ttl means DefaultTTL.
func NewCache(builder Builder, backend Backend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if backend == nil {
		backend = NewMemoryBackend(16, nil)
	}
	return &Cache{
		builder:      builder,
		backend:      backend,
		ttl:          ttl,
		buildTimeout: DefaultBuildTimeout,
		log:          zap.L().With(zap.String("component", "bundle_cache")),
	}
}

// Build returns the cached bundle for opts, building it on a miss.
//
// The shared build is detached from ctx: a caller that gives up gets ctx's
// error while the build runs to completion for everyone else. A build whose
// own deadline expired is returned but not stored.
func (c *Cache) Build(ctx context.Context, opts Options) (*model.Bundle, error) {
	key := opts.key()

	if b, ok := c.lookup(ctx, key); ok {
		return b, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
		defer cancel()

		// A concurrent caller may have filled the entry while we waited.
		if b, ok, _ := c.backend.Get(buildCtx, key); ok {
			return b, nil
		}
		b, err := c.builder.Build(buildCtx, opts)
		if err != nil {
			return nil, err
		}
		if buildCtx.Err() != nil {
			c.log.Warn("bundle build outlived its deadline, not cached",
				zap.String("key", key), zap.Duration("deadline", c.buildTimeout))
			return b, nil
		}
		if err := c.backend.Set(buildCtx, key, b, c.ttl); err != nil {
			c.log.Warn("bundle cache write failed", zap.String("key", key), zap.Error(err))
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "bundle: wait for build")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug("bundle build shared", zap.String("key", key))
		}
		return res.Val.(*model.Bundle), nil
	}
}

// Invalidate drops the entry for opts.
func (c *Cache) Invalidate(ctx context.Context, opts Options) error {
	return c.backend.Delete(ctx, opts.key())
}

func (c *Cache) lookup(ctx context.Context, key string) (*model.Bundle, bool) {
	b, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("bundle cache read failed", zap.String("key", key), zap.Error(err))
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.BundleCacheLookups.WithLabelValues(c.backend.Name(), result).Inc()
	return b, ok
}

// MemoryBackend is a concurrent-safe LRU of bundles with TTL expiration.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

type memoryEntry struct {
	bundle    *model.Bundle
	expiresAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewMemoryBackend creates a MemoryBackend. A nil clock means time.Now.
func NewMemoryBackend(maxEntries int, clock func() time.Time) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryBackend{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		now:        clock,
	}
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) (*model.Bundle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil, false, nil
	}

	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		m.removeFromOrder(key)
		m.misses.Add(1)
		return nil, false, nil
	}

	m.removeFromOrder(key)
	m.order = append(m.order, key)
	m.hits.Add(1)
	return entry.bundle, true, nil
}

// Set implements Backend, evicting the least recently used entry at capacity.
func (m *MemoryBackend) Set(_ context.Context, key string, b *model.Bundle, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &memoryEntry{bundle: b, expiresAt: m.now().Add(ttl)}
	if _, ok := m.entries[key]; ok {
		m.entries[key] = entry
		m.removeFromOrder(key)
		m.order = append(m.order, key)
		return nil
	}

	for len(m.entries) >= m.maxEntries && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}

	m.entries[key] = entry
	m.order = append(m.order, key)
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.removeFromOrder(key)
	return nil
}

// Stats returns cache performance statistics.
func (m *MemoryBackend) Stats() CacheStats {
	m.mu.Lock()
	entries := len(m.entries)
	m.mu.Unlock()

	hits := m.hits.Load()
	misses := m.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: m.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (m *MemoryBackend) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
