// Package metrics holds the Prometheus collectors of the pool service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warrantypool",
			Subsystem: "pool",
			Name:      "operations_total",
			Help:      "Pool operations by name and resulting status.",
		},
		[]string{"operation", "status"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "warrantypool",
			Subsystem: "pool",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pool operations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"operation"},
	)

	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warrantypool",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Accounts removed because their session was dead.",
		},
	)

	probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warrantypool",
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Session probe results by outcome.",
		},
		[]string{"outcome"},
	)

	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "warrantypool",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of session probes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	reconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warrantypool",
			Subsystem: "reconciler",
			Name:      "rows_total",
			Help:      "Rows repaired by the reconciler, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		operations,
		operationDuration,
		evictions,
		probes,
		probeDuration,
		reconciled,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one finished pool operation.
func RecordOperation(operation, status string, d time.Duration) {
	operations.WithLabelValues(operation, status).Inc()
	operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func RecordEviction() {
	evictions.Inc()
}

// RecordProbe counts one probe result; outcome is "live", "dead" or "failed".
func RecordProbe(outcome string, d time.Duration) {
	probes.WithLabelValues(outcome).Inc()
	probeDuration.Observe(d.Seconds())
}

// RecordReconciled adds n repaired rows of the given kind.
func RecordReconciled(kind string, n int64) {
	if n > 0 {
		reconciled.WithLabelValues(kind).Add(float64(n))
	}
}
