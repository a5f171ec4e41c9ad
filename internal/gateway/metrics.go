package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by Instrument.
const (
	OutcomeCacheHit       = "cache_hit"
	OutcomeForwarded      = "forwarded"
	OutcomeRateLimited    = "rate_limited"
	OutcomeNetworkFailure = "network_failure"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Metrics holds the pipeline's Prometheus collectors on a registry owned by
// one gateway instance.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	upstreamResponsesTotal *prometheus.CounterVec
	upstreamDuration       prometheus.Histogram
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmsgate_requests_total",
				Help: "Total number of requests handled by the gateway pipeline.",
			},
			[]string{"outcome"},
		),
		upstreamResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmsgate_upstream_responses_total",
				Help: "Backend responses by status class.",
			},
			[]string{"class"},
		),
		upstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lmsgate_upstream_duration_seconds",
				Help:    "Latency of requests forwarded to the backend.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(m.requestsTotal, m.upstreamResponsesTotal, m.upstreamDuration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOutcome(outcome string) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeUpstream(status int, elapsed time.Duration) {
	m.upstreamResponsesTotal.WithLabelValues(statusClass(status)).Inc()
	m.upstreamDuration.Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", status/100)
}
