package model

// RefreshStatus reports whether runtime enrichment contributed to a bundle.
type RefreshStatus string

const (
	RefreshOnline  RefreshStatus = "online"
	RefreshOffline RefreshStatus = "offline"
)

// RuntimeMeta describes one bundle build.
type RuntimeMeta struct {
	Status         RefreshStatus `json:"status"`
	LastRefreshUTC string        `json:"last_refresh_utc"`
	SourceCount    int           `json:"source_count"`
	Notes          string        `json:"notes"`
}

// RuntimeSource is a named live page scraped for brewery counts.
type RuntimeSource struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// Bundle is the unit handed to presentation code.
type Bundle struct {
	Facts   []FactRow       `json:"facts"`
	Meta    RuntimeMeta     `json:"meta"`
	Sources []RuntimeSource `json:"sources"`
}
