package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cicloteca-backend/pkg/models"
)

// PostgresStore reads the catalog from the library_entries table. Cover and
// file references are JSONB so strings and structured handles both fit.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const libraryMigrationSQL = `
CREATE TABLE IF NOT EXISTS library_entries (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    author      TEXT NOT NULL DEFAULT '',
    year        INTEGER NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    cover       JSONB,
    file        JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the library_entries table if it is missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, libraryMigrationSQL); err != nil {
		return fmt.Errorf("migrate library: %w", err)
	}
	return nil
}

const selectEntrySQL = `SELECT id, title, author, year, description, category, cover, file, created_at FROM library_entries`

func (s *PostgresStore) GetEntry(ctx context.Context, id string) (*models.LibraryEntry, error) {
	row := s.db.QueryRowContext(ctx, selectEntrySQL+` WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get library entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context) ([]*models.LibraryEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntrySQL+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list library entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LibraryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert inserts entry or replaces the row with the same id
func (s *PostgresStore) Upsert(ctx context.Context, entry *models.LibraryEntry) error {
	cover, err := referenceColumn(entry.Cover)
	if err != nil {
		return err
	}
	file, err := referenceColumn(entry.File)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO library_entries (id, title, author, year, description, category, cover, file, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title, author = EXCLUDED.author, year = EXCLUDED.year,
		     description = EXCLUDED.description, category = EXCLUDED.category,
		     cover = EXCLUDED.cover, file = EXCLUDED.file`,
		entry.ID, entry.Title, entry.Author, entry.Year, entry.Description, entry.Category,
		cover, file, nullTime(entry),
	)
	if err != nil {
		return fmt.Errorf("upsert library entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LibraryEntry, error) {
	var (
		entry       models.LibraryEntry
		cover, file []byte
	)
	err := row.Scan(&entry.ID, &entry.Title, &entry.Author, &entry.Year,
		&entry.Description, &entry.Category, &cover, &file, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	if entry.Cover, err = decodeReference(cover); err != nil {
		return nil, fmt.Errorf("entry %s cover: %w", entry.ID, err)
	}
	if entry.File, err = decodeReference(file); err != nil {
		return nil, fmt.Errorf("entry %s file: %w", entry.ID, err)
	}
	return &entry, nil
}

func decodeReference(raw []byte) (models.Reference, error) {
	var ref models.Reference
	if len(raw) == 0 {
		return ref, nil
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return models.Reference{}, err
	}
	return ref, nil
}

// referenceColumn encodes ref for a JSONB column; an empty reference is NULL
func referenceColumn(ref models.Reference) (any, error) {
	if ref.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("encode reference: %w", err)
	}
	return string(b), nil
}

func nullTime(entry *models.LibraryEntry) sql.NullTime {
	return sql.NullTime{Time: entry.CreatedAt, Valid: !entry.CreatedAt.IsZero()}
}
