package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveResolve(OutcomeCacheHit)
	m.ObserveResolve(OutcomeCacheHit)
	m.ObserveCacheWrite("session", nil)
	m.ObserveCacheWrite("local", errors.New("quota"))
	m.ObserveDownload("direct", nil)
	m.ObserveBackend(120 * time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `cicloteca_resolve_total{outcome="cache_hit"} 2`)
	assert.Contains(t, body, `cicloteca_cache_writes_total{outcome="error",tier="local"} 1`)
	assert.Contains(t, body, `cicloteca_download_total{outcome="ok",strategy="direct"} 1`)
	assert.Contains(t, body, `cicloteca_backend_seconds_count 1`)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveResolve(OutcomeNone)
	m.ObserveCacheWrite("session", nil)
	m.ObserveDownload("open", nil)
	m.ObserveBackend(time.Second)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveResolve(OutcomeBackend)

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, `cicloteca_resolve_total{outcome="backend"} 1`))
	assert.Contains(t, body, "go_goroutines")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
