package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts sessions that reached the active state, by round.
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_sessions_started_total",
			Help: "Total number of quiz sessions that became active",
		},
		[]string{"round"},
	)

	// SessionsFinished counts terminal sessions by round and exit state.
	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_sessions_finished_total",
			Help: "Total number of quiz sessions that reached a terminal state",
		},
		[]string{"round", "exit"},
	)

	// SessionsLive tracks hosted sessions currently registered.
	SessionsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contest_sessions_live",
			Help: "Number of hosted quiz sessions",
		},
	)

	// AutoSubmits counts forced submissions by reason ("timeout" or "revoked").
	AutoSubmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_auto_submits_total",
			Help: "Total number of forced session submissions",
		},
		[]string{"round", "reason"},
	)

	// ResultSubmissions counts result persistence attempts by outcome.
	ResultSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_result_submissions_total",
			Help: "Total number of result submissions by outcome",
		},
		[]string{"round", "outcome"},
	)

	// GateToggles counts administrator gate changes.
	GateToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_gate_toggles_total",
			Help: "Total number of round access changes",
		},
		[]string{"round", "enabled"},
	)

	// Promotions counts participants advanced by leaderboard promotion.
	Promotions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_promotions_total",
			Help: "Total number of participants promoted from a leaderboard",
		},
		[]string{"round"},
	)

	// RequestCounter counts HTTP requests by status code, method, and route
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// BackendCallDuration measures calls made by sessions to the backend collaborator.
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contest_backend_call_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// ObserveBackendCall records the duration of a backend call started at startTime.
func ObserveBackendCall(operation string, startTime time.Time) {
	BackendCallDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
}
