// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_records_processed_total",
			Help: "Total number of notification records processed, by terminal status",
		},
		[]string{"status"},
	)

	DispatchPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatch_pass_duration_seconds",
			Help: "Duration of a full dispatch pass in seconds",
		},
	)

	TransportAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_attempts_total",
			Help: "Total outbound webhook attempts, by HTTP method and outcome",
		},
		[]string{"method", "outcome"},
	)

	PublishRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_runs_total",
			Help: "Total publish runs, by overall outcome",
		},
		[]string{"outcome"},
	)

	PublishChannelResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_channel_results_total",
			Help: "Per-channel publish outcomes, by platform and result",
		},
		[]string{"platform", "result"},
	)

	PublishPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "publish_poll_duration_seconds",
			Help: "Time spent waiting for a container to reach a terminal state",
		},
		[]string{"platform"},
	)
)
