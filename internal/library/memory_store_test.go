package library

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cicloteca-backend/pkg/models"
)

const testCatalog = `
entries:
  - id: "42"
    title: Guía ciclista
    author: Colectivo
    year: 2021
    cover:
      path: images/42
    file: books/42
    created_at: 2024-03-01T10:00:00Z
  - id: "7"
    title: Mapa
    cover:
      _path:
        segments: [images, covers, "7"]
    file:
      fullPath: /books/7.pdf
  - id: "8"
    title: Enlace
    file: "https://drive.google.com/file/d/ABC123/view"
`

func TestParseCatalog(t *testing.T) {
	entries, err := ParseCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "42", first.ID)
	assert.Equal(t, 2021, first.Year)
	assert.Equal(t, models.RefHandle, first.Cover.Kind)
	assert.Equal(t, "images/42", first.Cover.Path)
	assert.Equal(t, models.TextRef("books/42"), first.File)
	assert.Equal(t, 2024, first.CreatedAt.Year())

	assert.Equal(t, []string{"images", "covers", "7"}, entries[1].Cover.Segments)
	assert.Equal(t, "/books/7.pdf", entries[1].File.FullPath)
	assert.True(t, entries[2].Cover.IsZero())
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":   "entries:\n  - title: x\n",
		"duplicate id": "entries:\n  - id: a\n  - id: a\n",
		"bad file":     "entries:\n  - id: a\n    file: 42\n",
		"bad segments": "entries:\n  - id: a\n    cover:\n      segments: [1, 2]\n",
		"not yaml":     "entries: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestParseCatalog_Empty(t *testing.T) {
	entries, err := ParseCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testEntries()...)

	entry, err := store.GetEntry(ctx, "42")
	require.NoError(t, err)
	entry.Title = "changed"

	again, err := store.GetEntry(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Guía ciclista", again.Title, "returned entries are copies")

	_, err = store.GetEntry(ctx, "nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, store.Upsert(ctx, &models.LibraryEntry{ID: "new"}))
	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "42", entries[0].ID)
	assert.Equal(t, "new", entries[3].ID)
}

func TestNewMemoryStore_CopiesSeedEntries(t *testing.T) {
	ctx := context.Background()
	seed := &models.LibraryEntry{ID: "42", Title: "Guía ciclista"}
	store := NewMemoryStore(seed)

	seed.Title = "changed"

	entry, err := store.GetEntry(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Guía ciclista", entry.Title)
}
