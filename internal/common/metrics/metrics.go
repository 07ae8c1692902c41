// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolution_state_transitions_total",
			Help: "Total number of resolution loop state entries",
		},
		[]string{"state"},
	)

	ResolutionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolution_outcomes_total",
			Help: "Total number of finished resolutions by outcome",
		},
		[]string{"outcome"},
	)

	ResolutionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolution_attempts",
			Help:    "Escalation attempts used per resolution",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Total number of external capability calls",
		},
		[]string{"provider", "outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "provider_call_duration_seconds",
			Help: "Duration of external capability calls in seconds",
		},
		[]string{"provider"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Provider cache lookups by result",
		},
		[]string{"result"},
	)
)

// ObserveProviderCall records one external call. A nil err counts as success.
func ObserveProviderCall(provider string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	ProviderCalls.WithLabelValues(provider, outcome).Inc()
	ProviderCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
