// Package metrics exposes Prometheus instrumentation for the vault daemon.
//
// Collectors are package-level and registered with the default registry on
// import; the daemon serves them at /metrics through promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vaultgallery/internal/vaulterr"
)

var (
	// Ingest Metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_submissions_total",
			Help: "Total number of inbound submissions by outcome",
		},
		[]string{"mode", "outcome"}, // mode: single|grouped, outcome: accepted|rejected
	)

	ItemsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_items_persisted_total",
			Help: "Total number of media items persisted by result",
		},
		[]string{"media_type", "result"}, // result: saved|duplicate|failed
	)

	GroupFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_group_flush_duration_seconds",
			Help:    "Duration of grouped upload flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GroupsBuffering = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_groups_buffering",
			Help: "Current number of upload groups waiting for their debounce timer",
		},
	)

	// Selection Metrics
	AssetsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_assets_served_total",
			Help: "Total number of assets returned by random picks",
		},
		[]string{"scope"}, // scope: all|category
	)

	// Rating Metrics
	RatingsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_ratings_computed_total",
			Help: "Total number of image rating attempts by source and result",
		},
		[]string{"source", "result"}, // source: followup|backfill, result: rated|unavailable|skipped
	)

	// Scoring Metrics
	ScoringRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_scoring_requests_total",
			Help: "Total number of external scoring requests by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordSubmission records an inbound submission outcome.
func RecordSubmission(grouped bool, err error) {
	mode := "single"
	if grouped {
		mode = "grouped"
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected_" + vaulterr.Kind(err)
	}
	SubmissionsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordPersist records the result of persisting one item.
func RecordPersist(mediaType string, created bool, err error) {
	result := "saved"
	switch {
	case err != nil:
		result = "failed"
	case !created:
		result = "duplicate"
	}
	ItemsPersisted.WithLabelValues(mediaType, result).Inc()
}

// RecordFlush records one group flush.
func RecordFlush(duration time.Duration) {
	GroupFlushDuration.Observe(duration.Seconds())
}

// RecordServed records a random pick.
func RecordServed(scoped bool) {
	scope := "all"
	if scoped {
		scope = "category"
	}
	AssetsServed.WithLabelValues(scope).Inc()
}

// RecordRating records a rating attempt.
func RecordRating(source, result string) {
	RatingsComputed.WithLabelValues(source, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
