// Package resolver turns file references into fetchable download URLs.
//
// Absolute URLs are returned as they are. Storage paths are looked up in the
// URL cache and, on a miss, resolved by the storage backend. Backend calls
// run detached from the caller: a caller that stops waiting does not cancel
// the call, and its result still lands in the cache. Concurrent lookups of
// the same path share one backend call.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"cicloteca-backend/internal/cache"
	"cicloteca-backend/internal/logging"
	"cicloteca-backend/internal/metrics"
	"cicloteca-backend/internal/reference"
	"cicloteca-backend/internal/storage"
	"cicloteca-backend/pkg/models"
)

const (
	// DefaultFastTimeout bounds ResolveFast when no timeout is given
	DefaultFastTimeout = 1800 * time.Millisecond
	// DefaultBackendTimeout caps a detached backend call
	DefaultBackendTimeout = 30 * time.Second
)

// Service resolves references through a storage backend and a URL cache
type Service struct {
	backend        storage.Backend
	cache          *cache.Cache
	group          singleflight.Group
	backendTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithBackendTimeout caps how long a detached backend call may run
func WithBackendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backendTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records resolution outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a resolver
func NewService(backend storage.Backend, urlCache *cache.Cache, opts ...Option) *Service {
	s := &Service{
		backend:        backend,
		cache:          urlCache,
		backendTimeout: DefaultBackendTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveFast resolves ref, giving up after timeout (DefaultFastTimeout
// when timeout <= 0). It never fails loudly: any error yields false.
func (s *Service) ResolveFast(ctx context.Context, ref models.Reference, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = DefaultFastTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url, err := s.Lookup(ctx, ref)
	return s.outcome(ref, url, err)
}

// ResolveBackground resolves ref without a timeout of its own; it waits as
// long as ctx allows. Any error yields false.
func (s *Service) ResolveBackground(ctx context.Context, ref models.Reference) (string, bool) {
	url, err := s.Lookup(ctx, ref)
	return s.outcome(ref, url, err)
}

// Resolve runs the escalation policy: each attempt starts only after the
// previous one failed, and the first success wins.
func (s *Service) Resolve(ctx context.Context, ref models.Reference, policy Policy) (string, bool) {
	if _, ok := reference.Normalize(ref); !ok {
		s.metrics.ObserveResolve(metrics.OutcomeNone)
		return "", false
	}

	attempts := policy.Attempts
	if len(attempts) == 0 {
		attempts = DefaultPolicy().Attempts
	}

	for i, attempt := range attempts {
		if ctx.Err() != nil {
			return "", false
		}

		var (
			url string
			ok  bool
		)
		switch attempt.Mode {
		case ModeFast:
			url, ok = s.ResolveFast(ctx, ref, attempt.Timeout)
		default:
			url, ok = s.resolveBounded(ctx, ref, attempt.Timeout)
		}
		if ok {
			return url, true
		}

		s.logger.Debug("resolution attempt failed",
			slog.Int("attempt", i+1),
			slog.String("mode", attempt.Mode.String()),
			slog.Duration("timeout", attempt.Timeout),
			slog.String(logging.KeyPath, ref.String()))
	}
	return "", false
}

func (s *Service) resolveBounded(ctx context.Context, ref models.Reference, timeout time.Duration) (string, bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.ResolveBackground(ctx, ref)
}

// Lookup resolves ref and reports why it could not. Callers that only care
// about success should use ResolveFast, ResolveBackground or Resolve.
func (s *Service) Lookup(ctx context.Context, ref models.Reference) (string, error) {
	target, ok := reference.Classify(ref)
	if !ok {
		s.metrics.ObserveResolve(metrics.OutcomeNone)
		return "", ErrNoReference
	}
	if target.Absolute {
		s.metrics.ObserveResolve(metrics.OutcomeAbsolute)
		return target.Value, nil
	}

	path := reference.EnsureExtension(target.Value)
	if url, ok := s.cache.Lookup(ctx, path); ok {
		s.metrics.ObserveResolve(metrics.OutcomeCacheHit)
		return url, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(path, func() (any, error) {
		return s.fetch(detached, path)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrResolutionTimeout, path)
		}
		return "", ctx.Err()
	}
}

// fetch asks the backend for path and caches the answer
func (s *Service) fetch(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()

	start := time.Now()
	url, err := s.backend.DownloadURL(ctx, path)
	s.metrics.ObserveBackend(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if url == "" {
		return "", fmt.Errorf("resolve %s: %w", path, ErrEmptyURL)
	}

	s.metrics.ObserveResolve(metrics.OutcomeBackend)
	s.cache.Put(ctx, path, url)
	return url, nil
}

// outcome logs failures and flattens the result for callers that must not
// see errors
func (s *Service) outcome(ref models.Reference, url string, err error) (string, bool) {
	switch {
	case err == nil:
		return url, url != ""
	case errors.Is(err, ErrNoReference):
		// nothing to resolve is not worth a log line
	case errors.Is(err, ErrResolutionTimeout):
		s.metrics.ObserveResolve(metrics.OutcomeTimeout)
		s.logger.Debug("resolution timed out", slog.String(logging.KeyPath, ref.String()))
	default:
		s.metrics.ObserveResolve(metrics.OutcomeError)
		s.logger.Debug("resolution failed", slog.String(logging.KeyPath, ref.String()), logging.Err(err))
	}
	return "", false
}
