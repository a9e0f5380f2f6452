// Package metrics registers the Prometheus collectors shared by the catalog client and the HTTP server.
//
// Collectors are registered on the default registry when the package is loaded,
// so mounting [promhttp.Handler] exposes everything below.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values used when no HTTP status code is available.
const (
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

var (
	// CatalogRequests counts outbound Apple Music requests labelled by method and
	// status code, or by outcome ("error", "canceled") when no response arrived.
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applemusic_requests_total",
			Help: "Total number of requests sent to the Apple Music API.",
		},
		[]string{"method", "code"},
	)

	// CatalogRequestDuration observes outbound request latency in seconds, retries included.
	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "applemusic_request_duration_seconds",
			Help:    "Apple Music request duration in seconds, including transport retries.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// TokensMinted counts developer tokens signed by catalog clients.
	TokensMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "applemusic_tokens_minted_total",
			Help: "Total number of developer tokens minted.",
		},
	)

	// HTTPRequests counts requests handled by the local server labelled by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2a_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"route", "code"},
	)

	// HTTPRequestDuration observes server-side handling latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s2a_http_request_duration_seconds",
			Help:    "HTTP request handling duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
