package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"cicloteca-backend/pkg/models"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	entries map[string]*models.LibraryEntry
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(entries ...*models.LibraryEntry) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*models.LibraryEntry),
	}
	for _, e := range entries {
		copied := *e
		s.entries[e.ID] = &copied
	}
	return s
}

func (s *MemoryStore) GetEntry(_ context.Context, id string) (*models.LibraryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

// ListEntries returns all entries, newest first
func (s *MemoryStore) ListEntries(_ context.Context) ([]*models.LibraryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*models.LibraryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		copied := *e
		entries = append(entries, &copied)
	}
	sortEntries(entries)
	return entries, nil
}

// Upsert adds or replaces an entry
func (s *MemoryStore) Upsert(_ context.Context, entry *models.LibraryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[entry.ID] = &copied
	return nil
}

func sortEntries(entries []*models.LibraryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// catalogEntry is the YAML shape of a catalog record. Cover and file stay
// loosely typed until they are turned into references.
type catalogEntry struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Author      string    `yaml:"author"`
	Year        int       `yaml:"year"`
	Description string    `yaml:"description"`
	Category    string    `yaml:"category"`
	Cover       any       `yaml:"cover"`
	File        any       `yaml:"file"`
	CreatedAt   time.Time `yaml:"created_at"`
}

type catalogFile struct {
	Entries []catalogEntry `yaml:"entries"`
}

// ParseCatalog reads a YAML catalog
func ParseCatalog(r io.Reader) ([]*models.LibraryEntry, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]bool, len(file.Entries))
	entries := make([]*models.LibraryEntry, 0, len(file.Entries))
	for i, ce := range file.Entries {
		id := strings.TrimSpace(ce.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidCatalog, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, id)
		}
		seen[id] = true

		coverRef, err := models.ReferenceFromValue(ce.Cover)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q cover: %v", ErrInvalidCatalog, id, err)
		}
		fileRef, err := models.ReferenceFromValue(ce.File)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q file: %v", ErrInvalidCatalog, id, err)
		}

		entries = append(entries, &models.LibraryEntry{
			ID:          id,
			Title:       ce.Title,
			Author:      ce.Author,
			Year:        ce.Year,
			Description: ce.Description,
			Category:    ce.Category,
			Cover:       coverRef,
			File:        fileRef,
			CreatedAt:   ce.CreatedAt,
		})
	}
	return entries, nil
}

// LoadCatalogFile reads the YAML catalog at path
func LoadCatalogFile(path string) ([]*models.LibraryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}
