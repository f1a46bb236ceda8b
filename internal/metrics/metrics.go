// Package metrics holds the Prometheus collectors of the resolution and
// delivery pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cicloteca"

// Resolution outcomes
const (
	OutcomeNone     = "none"
	OutcomeAbsolute = "absolute"
	OutcomeCacheHit = "cache_hit"
	OutcomeBackend  = "backend"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// Metrics groups every collector the service exports
type Metrics struct {
	registry       *prometheus.Registry
	resolveTotal   *prometheus.CounterVec
	cacheWrites    *prometheus.CounterVec
	downloadTotal  *prometheus.CounterVec
	backendSeconds prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Reference resolutions by outcome.",
		}, []string{"outcome"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "URL cache writes by tier and outcome.",
		}, []string{"tier", "outcome"}),
		downloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_total",
			Help:      "Delivery attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		backendSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_seconds",
			Help:      "Latency of storage backend download-URL calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.8, 3, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.resolveTotal,
		m.cacheWrites,
		m.downloadTotal,
		m.backendSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResolve(outcome string) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCacheWrite(tier string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cacheWrites.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) ObserveDownload(strategy string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.downloadTotal.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ObserveBackend(d time.Duration) {
	if m == nil {
		return
	}
	m.backendSeconds.Observe(d.Seconds())
}
