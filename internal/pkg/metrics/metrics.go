package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_commands_total",
			Help: "Total number of commands processed, by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pantry_command_duration_seconds",
			Help:    "Duration of command processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	CommandConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pantry_command_confidence",
			Help:    "Confidence score of processed commands",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	DelegatedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_ai_calls_total",
			Help: "Total number of language model calls, by operation and result",
		},
		[]string{"operation", "result"},
	)

	DelegatedCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pantry_ai_call_duration_seconds",
			Help: "Duration of language model calls in seconds",
		},
		[]string{"operation"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_ai_tokens_total",
			Help: "Total number of tokens used by language model calls",
		},
		[]string{"operation"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_ai_cache_lookups_total",
			Help: "Response cache lookups, by result",
		},
		[]string{"result"},
	)

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_sweeps_total",
			Help: "Entries removed by scheduled sweeps, by target",
		},
		[]string{"target"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pantry_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
)
