// Package library serves the community library catalog with every cover
// and file reference resolved into a URL the client can fetch.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/reference"
	"cicloteca-backend/internal/resolver"
	"cicloteca-backend/pkg/models"
)

type Service struct {
	store    Store
	resolver Resolver
	relay    RelayResolver
	policy   resolver.Policy
	logger   *slog.Logger
}

// NewService creates a library service. relay may be nil.
func NewService(store Store, res Resolver, relay RelayResolver, policy resolver.Policy, logger *slog.Logger) *Service {
	if len(policy.Attempts) == 0 {
		policy = resolver.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		resolver: res,
		relay:    relay,
		policy:   policy,
		logger:   logger,
	}
}

func (s *Service) ListEntries(ctx context.Context) ([]*models.LibraryEntry, error) {
	return s.store.ListEntries(ctx)
}

// GetDetail loads an entry and resolves its cover and file concurrently.
// A reference that does not resolve leaves its URL empty; the detail is
// still returned.
func (s *Service) GetDetail(ctx context.Context, id string) (*models.LibraryDetail, error) {
	entry, err := s.getEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.LibraryDetail{Entry: entry}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if url, ok := s.resolver.Resolve(gctx, entry.Cover, s.policy); ok {
			detail.CoverURL = url
		}
		return nil
	})
	g.Go(func() error {
		if url, ok := s.resolveFile(gctx, entry); ok {
			detail.FileURL = url
		}
		return nil
	})
	g.Wait()

	if detail.FileURL != "" {
		detail.Available = true
		detail.DownloadURL = detail.FileURL
		if s.relay != nil {
			if relayed, ok := s.relay.NeedsRelay(detail.FileURL); ok {
				detail.DownloadURL = relayed
			}
		}
	}
	return detail, nil
}

// FileTarget returns the direct-download URL of an entry's file and the
// name it should be saved under
func (s *Service) FileTarget(ctx context.Context, id string) (string, string, error) {
	entry, err := s.getEntry(ctx, id)
	if err != nil {
		return "", "", err
	}

	url, ok := s.resolveFile(ctx, entry)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrFileUnavailable, id)
	}
	return url, SuggestedFileName(entry), nil
}

// Explain resolves a raw reference once and reports the reason when it
// does not resolve
func (s *Service) Explain(ctx context.Context, raw string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policyBudget())
	defer cancel()

	url, err := s.resolver.Lookup(ctx, models.TextRef(raw))
	if err != nil {
		return "", err
	}
	return links.RewriteToDirectLink(url), nil
}

func (s *Service) getEntry(ctx context.Context, id string) (*models.LibraryEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/\\") {
		return nil, ErrInvalidID
	}
	return s.store.GetEntry(ctx, id)
}

func (s *Service) resolveFile(ctx context.Context, entry *models.LibraryEntry) (string, bool) {
	url, ok := s.resolver.Resolve(ctx, entry.File, s.policy)
	if !ok {
		s.logger.Debug("library file unavailable", slog.String("entry", entry.ID))
		return "", false
	}
	return links.RewriteToDirectLink(url), true
}

// policyBudget is the total time the escalation policy may take
func (s *Service) policyBudget() time.Duration {
	var total time.Duration
	for _, a := range s.policy.Attempts {
		total += a.Timeout
	}
	if total <= 0 {
		total = resolver.DefaultFastTimeout
	}
	return total
}

// SuggestedFileName derives a download name from the entry title and the
// extension of its stored file
func SuggestedFileName(entry *models.LibraryEntry) string {
	name := strings.TrimSpace(entry.Title)
	if name == "" {
		name = entry.ID
	}

	var ext string
	if target, ok := reference.Classify(entry.File); ok && !target.Absolute {
		ext = path.Ext(reference.EnsureExtension(target.Value))
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name += ext
	}
	return name
}
