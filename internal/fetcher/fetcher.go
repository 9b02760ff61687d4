package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote pages.
type Fetcher interface {
	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// When the server answers 304, the returned Response has Modified false and a nil Body.
	DownloadIfChanged(ctx context.Context, url string, etag string) (*Response, error)
}

// Response is the result of a conditional download.
type Response struct {
	Body        io.ReadCloser
	ETag        string
	ContentType string
	Modified    bool
}
