package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalBackend(t *testing.T) (*LocalBackend, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "books"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books", "guía 1.pdf"), []byte("%PDF-1.4 test"), 0644))

	backend, err := NewLocalBackend(dir, "http://files.local:8080", "secret")
	require.NoError(t, err)
	return backend, dir
}

func TestLocalBackend_DownloadURLAndServe(t *testing.T) {
	backend, _ := newLocalBackend(t)

	signed, err := backend.DownloadURL(context.Background(), "books/guía 1.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://files.local:8080/files/books/gu%C3%ADa%201.pdf?expires="))
	assert.Equal(t, "files.local", backend.PublicHost())

	u, err := url.Parse(signed)
	require.NoError(t, err)

	e := echo.New()
	NewHandler(backend).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "%PDF-1.4 test", string(body))
	assert.Equal(t, "attachment; filename*=UTF-8''gu%C3%ADa%201.pdf", rec.Header().Get("Content-Disposition"))
}

func TestLocalBackend_RejectsBadSignature(t *testing.T) {
	backend, _ := newLocalBackend(t)

	e := echo.New()
	NewHandler(backend).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	target := "/files/books/gu%C3%ADa%201.pdf?expires=9999999999&token=forged"
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLocalBackend_Expiry(t *testing.T) {
	backend, _ := newLocalBackend(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	signed, err := backend.DownloadURL(context.Background(), "books/guía 1.pdf")
	require.NoError(t, err)
	u, _ := url.Parse(signed)
	q := u.Query()

	require.NoError(t, backend.Verify("books/guía 1.pdf", q.Get("expires"), q.Get("token")))

	now = now.Add(DefaultURLExpiry + time.Second)
	assert.ErrorIs(t, backend.Verify("books/guía 1.pdf", q.Get("expires"), q.Get("token")), ErrInvalidSignature)
}

func TestLocalBackend_Errors(t *testing.T) {
	backend, _ := newLocalBackend(t)
	ctx := context.Background()

	_, err := backend.DownloadURL(ctx, "books/missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = backend.DownloadURL(ctx, "books")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	for _, bad := range []string{"", "/etc/passwd", "../secret", "books/../../x"} {
		_, err = backend.DownloadURL(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}
