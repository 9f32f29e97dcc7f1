// Package metrics owns the Prometheus registry and every collector the
// server exposes on /metrics.
//
// The registry is built per Metrics value, never the global default, so
// tests can create as many servers as they like without duplicate
// registration panics.
package metrics

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth attempt outcomes, used as the "outcome" label.
const (
	OutcomeRegistered    = "registered"
	OutcomeEmailTaken    = "email_taken"
	OutcomeLoginSuccess  = "login_success"
	OutcomeLoginFailure  = "login_failure"
	OutcomeGitHubSuccess = "github_success"
	OutcomeGitHubFailure = "github_failure"
)

// DurationBuckets are the latency buckets of http_request_duration_seconds.
var DurationBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds the registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	UpvotesTotal        prometheus.Counter
	IdeasCreatedTotal   prometheus.Counter
	AuthAttemptsTotal   *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors plus the
// HalfBake collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: DurationBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		UpvotesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "halfbake_upvotes_total",
			Help: "Total number of idea upvotes",
		}),
		IdeasCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "halfbake_ideas_created_total",
			Help: "Total number of ideas created",
		}),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "halfbake_auth_attempts_total",
				Help: "Registration and login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestDuration,
		m.UpvotesTotal,
		m.IdeasCreatedTotal,
		m.AuthAttemptsTotal,
	)

	return m
}

// RegisterDB adds connection pool statistics for db under dbName.
func (m *Metrics) RegisterDB(db *sql.DB, dbName string) error {
	if err := m.registry.Register(collectors.NewDBStatsCollector(db, dbName)); err != nil {
		return fmt.Errorf("metrics: registering db stats: %w", err)
	}
	return nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AuthAttempt counts one registration or login attempt.
func (m *Metrics) AuthAttempt(outcome string) {
	m.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
}

// IdeaCreated counts one created idea.
func (m *Metrics) IdeaCreated() {
	m.IdeasCreatedTotal.Inc()
}

// IdeaUpvoted counts one upvote.
func (m *Metrics) IdeaUpvoted() {
	m.UpvotesTotal.Inc()
}
