package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFirebaseBaseURL is the public endpoint of Firebase Storage
const DefaultFirebaseBaseURL = "https://firebasestorage.googleapis.com/v0"

// FirebaseBackend resolves storage paths against the Firebase Storage REST
// API, the same way the web SDK's getDownloadURL does: read the object
// metadata and build an alt=media URL from its first download token.
type FirebaseBackend struct {
	httpClient *http.Client
	baseURL    string
	bucket     string
}

// NewFirebaseBackend creates a backend for bucket. An empty baseURL uses
// DefaultFirebaseBaseURL.
func NewFirebaseBackend(bucket, baseURL string) *FirebaseBackend {
	if baseURL == "" {
		baseURL = DefaultFirebaseBaseURL
	}
	return &FirebaseBackend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
	}
}

// PublicHost returns the host download URLs are served from
func (b *FirebaseBackend) PublicHost() string {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// DownloadURL returns a tokenized download URL for path
func (b *FirebaseBackend) DownloadURL(ctx context.Context, path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	objectURL := b.objectURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objectURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", b.handleAPIError(resp, path)
	}

	var meta ObjectMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	token := firstToken(meta.DownloadTokens)
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrNoDownloadURL, path)
	}

	params := url.Values{}
	params.Set("alt", "media")
	params.Set("token", token)
	return objectURL + "?" + params.Encode(), nil
}

// objectURL addresses an object; the whole path is one escaped segment
func (b *FirebaseBackend) objectURL(path string) string {
	return fmt.Sprintf("%s/b/%s/o/%s", b.baseURL, url.PathEscape(b.bucket), url.PathEscape(path))
}

func firstToken(tokens string) string {
	for _, t := range strings.Split(tokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

// handleAPIError maps Firebase Storage error responses onto sentinel errors
func (b *FirebaseBackend) handleAPIError(resp *http.Response, path string) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("storage API request failed with status %d", resp.StatusCode)
	}

	var errorResponse apiError
	if err := json.Unmarshal(body, &errorResponse); err != nil || errorResponse.Error.Message == "" {
		return fmt.Errorf("storage API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("storage API error (%d): %s", resp.StatusCode, errorResponse.Error.Message)
}
