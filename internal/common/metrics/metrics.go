// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_cycles_total",
			Help: "Total number of dispatch cycles by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_processed_total",
			Help: "Total number of notifications processed by final status",
		},
		[]string{"status", "notification_type"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_request_duration_seconds",
			Help: "Duration of outbound gateway calls in seconds",
		},
		[]string{"channel"},
	)

	GatewayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Total number of gateway send failures",
		},
		[]string{"channel", "error_code"},
	)

	BatchSelected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_batch_selected",
			Help:    "Number of due notifications selected per cycle",
			Buckets: prometheus.LinearBuckets(0, 2, 11),
		},
	)
)
