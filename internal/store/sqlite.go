package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements PageStore using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Times are stored as unix seconds so comparisons stay numeric.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS page_cache (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	body         BLOB NOT NULL,
	etag         TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	fetched_at   INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

// Migrate creates the cache schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetPage(ctx context.Context, url string) (*Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, body, etag, content_type, fetched_at, expires_at FROM page_cache WHERE url = ?`,
		url,
	)

	var p Page
	var fetched, expires int64
	err := row.Scan(&p.ID, &p.URL, &p.Body, &p.ETag, &p.ContentType, &fetched, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get page %s", url)
	}
	p.FetchedAt = time.Unix(fetched, 0).UTC()
	p.ExpiresAt = time.Unix(expires, 0).UTC()
	return &p, nil
}

func (s *SQLiteStore) PutPage(ctx context.Context, p *Page, ttl time.Duration) error {
	if p == nil || p.URL == "" {
		return eris.New("sqlite: put page: empty url")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = s.now().UTC()
	}
	p.ExpiresAt = p.FetchedAt.Add(ttl)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (id, url, body, etag, content_type, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   body = excluded.body,
		   etag = excluded.etag,
		   content_type = excluded.content_type,
		   fetched_at = excluded.fetched_at,
		   expires_at = excluded.expires_at`,
		p.ID, p.URL, p.Body, p.ETag, p.ContentType, p.FetchedAt.Unix(), p.ExpiresAt.Unix(),
	)
	return eris.Wrapf(err, "sqlite: put page %s", p.URL)
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`,
		cutoff.Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
