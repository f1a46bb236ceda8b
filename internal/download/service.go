// Package download delivers a resolved URL to the user as a file.
//
// Delivery escalates through strategies until one works: a direct fetch,
// a fetch buffered through a temporary blob (via the relay when the host
// needs one), and finally handing the URL to the user to open.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"cicloteca-backend/internal/logging"
	"cicloteca-backend/internal/metrics"
)

const (
	StrategyDirect = "direct"
	StrategyBlob   = "blob"
	StrategyOpen   = "open"

	// DefaultCleanupGrace is how long a blob outlives its delivery
	DefaultCleanupGrace = time.Second
	// DefaultFallbackName is used when nothing better can be derived
	DefaultFallbackName = "archivo"
	// DefaultFetchTimeout bounds a single fetch including the body
	DefaultFetchTimeout = 5 * time.Minute
)

// Executor runs delivery strategies
type Executor struct {
	relay      RelayResolver
	httpClient *http.Client
	timeout    time.Duration
	tempDir    string
	grace      time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient replaces the client used for fetches. The client should not
// carry a cookie jar.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithTimeout bounds each fetch, body included
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTempDir sets where blobs are buffered
func WithTempDir(dir string) Option {
	return func(e *Executor) {
		e.tempDir = dir
	}
}

// WithCleanupGrace sets how long a blob is kept after its delivery
func WithCleanupGrace(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.grace = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics records strategy outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an executor. relay may be nil.
func NewExecutor(relay RelayResolver, opts ...Option) *Executor {
	e := &Executor{
		relay:      relay,
		httpClient: &http.Client{},
		timeout:    DefaultFetchTimeout,
		tempDir:    os.TempDir(),
		grace:      DefaultCleanupGrace,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	client := *e.httpClient
	client.Timeout = e.timeout
	e.httpClient = &client
	return e
}

// Strategies returns the escalation order
func (e *Executor) Strategies() []Strategy {
	return []Strategy{
		{Name: StrategyDirect, Deliver: e.direct},
		{Name: StrategyBlob, Deliver: e.blob},
		{Name: StrategyOpen, Deliver: e.open},
	}
}

// Deliver runs the strategies for req and reports which one delivered
func (e *Executor) Deliver(ctx context.Context, req Request) (Result, error) {
	if req.URL == "" {
		return Result{}, errors.New("download URL is required")
	}
	if req.Sink == nil {
		return Result{}, errors.New("download sink is required")
	}
	if req.SuggestedName == "" {
		req.SuggestedName = DefaultFallbackName
	}

	logger := logging.WithOperation(e.logger, "download").With(slog.String(logging.KeyURL, req.URL))
	start := time.Now()

	result, err := Run(ctx, &req, e.Strategies(), func(name string, err error) {
		e.metrics.ObserveDownload(name, err)
		if err != nil {
			logger.Debug("download strategy failed", slog.String(logging.KeyStrategy, name), logging.Err(err))
		}
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("file delivered",
		slog.String(logging.KeyStrategy, result.Strategy),
		slog.String("file", result.FileName),
		slog.Int64("bytes", result.Bytes),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)
	return result, nil
}

// TriggerDownload delivers url to sink and only logs when nothing worked
func (e *Executor) TriggerDownload(ctx context.Context, sink Sink, url, suggestedName string) {
	_, err := e.Deliver(ctx, Request{URL: url, SuggestedName: suggestedName, Sink: sink})
	if err != nil {
		e.logger.Warn("download could not be delivered", slog.String(logging.KeyURL, url), logging.Err(err))
	}
}

func (e *Executor) direct(ctx context.Context, req *Request) (Result, error) {
	if e.relay != nil {
		if _, ok := e.relay.NeedsRelay(req.URL); ok {
			return Result{}, ErrStrategySkipped
		}
	}

	resp, err := e.fetch(ctx, req.URL)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	name := GuessFileName(resp.Header, req.URL, req.SuggestedName)
	n, err := writeToSink(req.Sink, name, contentType(resp.Header), resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{FileName: name, Bytes: n}, nil
}

func (e *Executor) blob(ctx context.Context, req *Request) (Result, error) {
	fetchURL := req.URL
	if e.relay != nil {
		if relayed, ok := e.relay.NeedsRelay(req.URL); ok {
			fetchURL = relayed
		}
	}

	resp, err := e.fetch(ctx, fetchURL)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	blob, err := os.CreateTemp(e.tempDir, "blob-"+uuid.NewString()+"-*")
	if err != nil {
		return Result{}, fmt.Errorf("create blob: %w", err)
	}
	defer e.scheduleRemoval(blob)

	if _, err := io.Copy(blob, resp.Body); err != nil {
		return Result{}, fmt.Errorf("buffer blob: %w", err)
	}
	if _, err := blob.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("rewind blob: %w", err)
	}

	// the original URL carries the file name, the relay URL does not
	name := GuessFileName(resp.Header, req.URL, req.SuggestedName)
	n, err := writeToSink(req.Sink, name, contentType(resp.Header), blob)
	if err != nil {
		return Result{}, err
	}
	return Result{FileName: name, Bytes: n}, nil
}

func (e *Executor) open(_ context.Context, req *Request) (Result, error) {
	if err := req.Sink.Open(req.URL); err != nil {
		return Result{}, fmt.Errorf("open url: %w", err)
	}
	return Result{}, nil
}

func (e *Executor) fetch(ctx context.Context, url string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Cache-Control", "no-store")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp, nil
}

// scheduleRemoval closes the blob and deletes it once the grace period ends
func (e *Executor) scheduleRemoval(blob *os.File) {
	blob.Close()
	name := blob.Name()
	time.AfterFunc(e.grace, func() {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("failed to remove blob", slog.String(logging.KeyPath, name), logging.Err(err))
		}
	})
}

func writeToSink(sink Sink, name, contentType string, body io.Reader) (int64, error) {
	w, err := sink.Create(name, contentType)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		if a, ok := w.(aborter); ok {
			a.Abort()
		} else {
			w.Close()
		}
		return n, fmt.Errorf("write destination: %w", err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close destination: %w", err)
	}
	return n, nil
}

func contentType(header http.Header) string {
	ct := header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}
