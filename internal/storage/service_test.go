package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFirebaseServer(t *testing.T, handler http.HandlerFunc) (*FirebaseBackend, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewFirebaseBackend("cicloteca.appspot.com", server.URL+"/v0"), server
}

func TestFirebaseBackend_DownloadURL(t *testing.T) {
	backend, server := newFirebaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.URL.EscapedPath() != "/v0/b/cicloteca.appspot.com/o/books%2F42.pdf" {
			t.Errorf("unexpected object path %q", r.URL.EscapedPath())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"books/42.pdf","bucket":"cicloteca.appspot.com","downloadTokens":"tok-1,tok-2"}`))
	})

	got, err := backend.DownloadURL(context.Background(), "books/42.pdf")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/v0/b/cicloteca.appspot.com/o/books%2F42.pdf?alt=media&token=tok-1", got)
	assert.Equal(t, "127.0.0.1", backend.PublicHost())
}

func TestFirebaseBackend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":404,"message":"Not Found."}}`, ErrObjectNotFound},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"Permission denied."}}`, ErrPermissionDenied},
		{"unauthorized", http.StatusUnauthorized, ``, ErrPermissionDenied},
		{"no token", http.StatusOK, `{"name":"books/1.pdf","downloadTokens":""}`, ErrNoDownloadURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := newFirebaseServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := backend.DownloadURL(context.Background(), "books/1.pdf")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFirebaseBackend_ServerError(t *testing.T) {
	backend, _ := newFirebaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"code":502,"message":"upstream down"}}`))
	})
	_, err := backend.DownloadURL(context.Background(), "books/1.pdf")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "upstream down"))
}

func TestFirebaseBackend_InvalidPath(t *testing.T) {
	backend := NewFirebaseBackend("bucket", "")
	_, err := backend.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, "firebasestorage.googleapis.com", backend.PublicHost())
}

func TestFirebaseBackend_ContextCancelled(t *testing.T) {
	backend, _ := newFirebaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := backend.DownloadURL(ctx, "books/1.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
