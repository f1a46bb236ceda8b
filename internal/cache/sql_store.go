package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore keeps entries in the url_cache table of the service database
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the url_cache table if it is missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("migrate url cache: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS url_cache (
    path        TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    resolved_at TIMESTAMPTZ NOT NULL
);
`

func (s *SQLStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	entry := Entry{Path: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT url, resolved_at FROM url_cache WHERE path = $1`, key,
	).Scan(&entry.URL, &entry.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get cached url: %w", err)
	}
	return entry, true, nil
}

func (s *SQLStore) Set(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO url_cache (path, url, resolved_at) VALUES ($1, $2, $3)
		 ON CONFLICT (path) DO UPDATE SET url = EXCLUDED.url, resolved_at = EXCLUDED.resolved_at`,
		entry.Path, entry.URL, entry.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("store cached url: %w", err)
	}
	return nil
}
