// Package relay is a small CORS relay for file hosts that refuse
// cross-origin reads. It only fetches from hosts on the relay allow-list.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/logging"
)

// passthroughHeaders are copied from the upstream response
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Disposition",
	"Last-Modified",
	"ETag",
}

// Service fetches allow-listed targets
type Service struct {
	allow      *links.AllowList
	httpClient *http.Client
	logger     *slog.Logger
}

// maxRedirects matches the net/http default
const maxRedirects = 10

// NewService creates a relay service. A nil client gets a default one.
// Redirects are only followed to allow-listed hosts, whatever client is
// passed in.
func NewService(allow *links.AllowList, client *http.Client, logger *slog.Logger) *Service {
	if allow == nil {
		allow = links.NewAllowList(links.DefaultStorageHost)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		allow:  allow,
		logger: logger,
	}

	guarded := *client
	next := client.CheckRedirect
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := s.checkHop(req.URL); err != nil {
			return err
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	s.httpClient = &guarded
	return s
}

// Upstream is an open response from the target host
type Upstream struct {
	Header http.Header
	Body   io.ReadCloser
}

// Validate checks that raw is something the relay may fetch
func (s *Service) Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingTarget
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidTarget
	}
	if err := s.checkHop(u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkHop validates one URL of a fetch, the target or a redirect
func (s *Service) checkHop(u *url.URL) error {
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidTarget
	}
	if !s.allow.Contains(u.Hostname()) {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return nil
}

// Fetch opens target. The caller must close the returned body.
func (s *Service) Fetch(ctx context.Context, raw string) (*Upstream, error) {
	target, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("relay fetch failed", slog.String(logging.KeyURL, target.String()), logging.Err(err))
		if errors.Is(err, ErrHostNotAllowed) || errors.Is(err, ErrInvalidTarget) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode}
	}

	header := make(http.Header)
	for _, key := range passthroughHeaders {
		if v := resp.Header.Get(key); v != "" {
			header.Set(key, v)
		}
	}
	return &Upstream{Header: header, Body: resp.Body}, nil
}
