package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cicloteca-backend/internal/logging"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingStore simulates a tier that is out of quota
type failingStore struct{}

func (failingStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, errors.New("storage unavailable")
}

func (failingStore) Set(context.Context, Entry) error {
	return errors.New("quota exceeded")
}

func newTestCache(clock *fakeClock, tiers ...Tier) *Cache {
	return New(tiers, WithClock(clock.Now), WithLogger(logging.Discard()))
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	session, local := NewMemoryStore(), NewMemoryStore()
	c := newTestCache(clock, Tier{"session", session}, Tier{"local", local})

	_, ok := c.Lookup(ctx, "books/42.pdf")
	assert.False(t, ok)

	c.Put(ctx, "books/42.pdf", "https://signed.example/books/42.pdf?token=t")

	got, ok := c.Lookup(ctx, "books/42.pdf")
	require.True(t, ok)
	assert.Equal(t, "https://signed.example/books/42.pdf?token=t", got)
	assert.Equal(t, 1, session.Len())
	assert.Equal(t, 1, local.Len())
}

func TestCache_Staleness(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	c := newTestCache(clock, Tier{"session", store})

	c.Put(ctx, "books/1.pdf", "https://u/1")

	clock.Advance(6*time.Hour - time.Millisecond)
	_, ok := c.Lookup(ctx, "books/1.pdf")
	assert.True(t, ok, "entry is fresh just before the TTL")

	clock.Advance(2 * time.Millisecond)
	_, ok = c.Lookup(ctx, "books/1.pdf")
	assert.False(t, ok, "entry is stale at T+6h+1ms")
	assert.Equal(t, 1, store.Len(), "stale entries are kept")

	c.Put(ctx, "books/1.pdf", "https://u/1-new")
	got, ok := c.Lookup(ctx, "books/1.pdf")
	require.True(t, ok)
	assert.Equal(t, "https://u/1-new", got)
}

func TestCache_ReadsSecondTier(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	session, local := NewMemoryStore(), NewMemoryStore()
	require.NoError(t, local.Set(ctx, Entry{Path: "images/a.jpg", URL: "https://u/a", ResolvedAt: clock.now}))

	c := newTestCache(clock, Tier{"session", session}, Tier{"local", local})
	got, ok := c.Lookup(ctx, "images/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "https://u/a", got)
}

func TestCache_PrefersFirstTier(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	session, local := NewMemoryStore(), NewMemoryStore()
	require.NoError(t, session.Set(ctx, Entry{Path: "p", URL: "https://session", ResolvedAt: clock.now}))
	require.NoError(t, local.Set(ctx, Entry{Path: "p", URL: "https://local", ResolvedAt: clock.now}))

	c := newTestCache(clock, Tier{"session", session}, Tier{"local", local})
	got, _ := c.Lookup(ctx, "p")
	assert.Equal(t, "https://session", got)
}

func TestCache_FailingTierDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	local := NewMemoryStore()
	c := newTestCache(clock, Tier{"session", failingStore{}}, Tier{"local", local})

	c.Put(ctx, "books/9.pdf", "https://u/9")

	assert.Equal(t, 1, local.Len())
	got, ok := c.Lookup(ctx, "books/9.pdf")
	require.True(t, ok)
	assert.Equal(t, "https://u/9", got)
}

func TestCache_CustomTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New(nil, WithTTL(time.Minute), WithTTL(0), WithClock(clock.Now))
	assert.Equal(t, time.Minute, c.TTL())
	assert.True(t, c.Fresh(Entry{ResolvedAt: clock.now.Add(-59 * time.Second)}))
	assert.False(t, c.Fresh(Entry{ResolvedAt: clock.now.Add(-time.Minute)}))
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "urls.json")
	resolvedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	first := NewFileStore(path)
	require.NoError(t, first.Set(ctx, Entry{Path: "books/1.pdf", URL: "https://u/1", ResolvedAt: resolvedAt}))

	second := NewFileStore(path)
	entry, ok, err := second.Get(ctx, "books/1.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://u/1", entry.URL)
	assert.True(t, entry.ResolvedAt.Equal(resolvedAt))

	_, ok, err = second.Get(ctx, "books/2.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_WriteFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "urls.json"))
	require.NoError(t, store.Set(ctx, Entry{Path: "a", URL: "https://u/a", ResolvedAt: time.Now()}))

	// point the store at a path whose parent is a regular file
	store.path = filepath.Join(dir, "urls.json", "nested.json")
	err := store.Set(ctx, Entry{Path: "b", URL: "https://u/b", ResolvedAt: time.Now()})
	require.Error(t, err)

	_, ok, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}
