package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tourdesk"
)

var (
	apiDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

	// Session Metrics
	SessionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Count of session controller state transitions.",
	}, []string{"to"})

	TokenMintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_mints_total",
		Help:      "Count of backend session token mint attempts.",
	}, []string{"status"})

	RoleResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_resolutions_total",
		Help:      "Count of role resolution cycles by outcome.",
	}, []string{"outcome"})

	StaleResolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_resolutions_total",
		Help:      "Count of resolution runs abandoned because a newer identity arrived.",
	})

	// API Metrics
	AuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Count of 401/403 responses that cleared the token store.",
	}, []string{"endpoint"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Time taken for backend API requests.",
		Buckets:   apiDurationBuckets,
	}, []string{"endpoint", "status"})
)
