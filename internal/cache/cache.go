// Package cache memoizes resolved download URLs per storage path.
//
// A Cache writes every entry to all of its tiers and reads tiers in order,
// so a fast volatile tier can sit in front of a slower persistent one.
// Entries older than the TTL are ignored but never deleted; a newer write
// under the same key supersedes them.
package cache

import (
	"context"
	"log/slog"
	"time"

	"cicloteca-backend/internal/logging"
	"cicloteca-backend/internal/metrics"
)

// DefaultTTL bounds how long a resolved URL is trusted. Signed storage URLs
// stay valid much longer than this.
const DefaultTTL = 6 * time.Hour

// Entry is one resolved URL
type Entry struct {
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Store is a backing key-value store of a cache tier
type Store interface {
	// Get returns the entry stored under key, if any
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set stores entry under entry.Path, replacing what was there
	Set(ctx context.Context, entry Entry) error
}

// Tier is a named store, the name only shows up in logs and metrics
type Tier struct {
	Name  string
	Store Store
}

// Cache is the tiered URL cache
type Cache struct {
	tiers   []Tier
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, used by tests to move time around
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics records cache writes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache over tiers, in lookup order
func New(tiers []Tier, opts ...Option) *Cache {
	c := &Cache{
		tiers:  tiers,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Fresh reports whether e is young enough to be served
func (c *Cache) Fresh(e Entry) bool {
	return c.now().Sub(e.ResolvedAt) < c.ttl
}

// Lookup returns the cached URL for path from the first tier holding a
// fresh entry. Tier errors are treated as misses.
func (c *Cache) Lookup(ctx context.Context, path string) (string, bool) {
	for _, tier := range c.tiers {
		entry, ok, err := tier.Store.Get(ctx, path)
		if err != nil {
			c.logger.Debug("cache tier read failed",
				slog.String("tier", tier.Name), slog.String(logging.KeyPath, path), logging.Err(err))
			continue
		}
		if !ok || entry.URL == "" || !c.Fresh(entry) {
			continue
		}
		return entry.URL, true
	}
	return "", false
}

// Put records url for path in every tier. A failing tier does not keep
// the others from being written.
func (c *Cache) Put(ctx context.Context, path, url string) {
	entry := Entry{Path: path, URL: url, ResolvedAt: c.now()}
	for _, tier := range c.tiers {
		err := tier.Store.Set(ctx, entry)
		c.metrics.ObserveCacheWrite(tier.Name, err)
		if err != nil {
			c.logger.Warn("cache tier write failed",
				slog.String("tier", tier.Name), slog.String(logging.KeyPath, path), logging.Err(err))
		}
	}
}
