// Package store persists fetched runtime source pages between builds.
package store

import (
	"context"
	"time"
)

// Page is a cached HTTP response body for one runtime source URL.
type Page struct {
	ID          string
	URL         string
	Body        []byte
	ETag        string
	ContentType string
	FetchedAt   time.Time
	ExpiresAt   time.Time
}

// Fresh reports whether the page may be served without revalidation.
func (p *Page) Fresh(now time.Time) bool {
	return p != nil && now.Before(p.ExpiresAt)
}

// PageStore defines the page cache used by the runtime refresher.
type PageStore interface {
	// GetPage returns the cached page for url, fresh or stale, or nil when absent.
	GetPage(ctx context.Context, url string) (*Page, error)
	// PutPage inserts or replaces the page for p.URL, expiring after ttl.
	PutPage(ctx context.Context, p *Page, ttl time.Duration) error
	// DeleteExpiredPages removes pages that expired before cutoff.
	DeleteExpiredPages(ctx context.Context, cutoff time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
