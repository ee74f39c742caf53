// Package metrics declares the Prometheus collectors exported on /metrics.
// Collectors are registered with the default registry on package load so any
// package can record observations without threading a registry through.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog transport
	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "melopick_catalog_request_duration_seconds",
			Help:    "Duration of individual catalog HTTP attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melopick_catalog_retries_total",
			Help: "Total number of catalog request retries by reason",
		},
		[]string{"reason"}, // "rate_limited", "server_error", "network"
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melopick_token_refreshes_total",
			Help: "Total number of client-credentials exchanges",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "melopick_catalog_circuit_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Response cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "melopick_cache_hits_total",
			Help: "Total number of catalog response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "melopick_cache_misses_total",
			Help: "Total number of catalog response cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "melopick_cache_evictions_total",
			Help: "Total number of entries evicted to respect the size bound",
		},
	)

	// Discovery
	DiscoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melopick_discovery_total",
			Help: "Discovery calls by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	DuplicatesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "melopick_duplicates_accepted_total",
			Help: "Selections that returned an already seen track after the retry budget ran out",
		},
	)

	DetectedLanguages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melopick_detected_languages_total",
			Help: "Language tags attached to candidates by detection signal",
		},
		[]string{"language", "signal"},
	)
)
