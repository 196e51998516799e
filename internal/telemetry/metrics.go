// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// used while deriving data.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "neurogrid"

// Metrics are the processor's node-level instruments.
type Metrics struct {
	// NodesTotal counts finished node instances.
	// Labels: interface, status (completed, failed, cached)
	NodesTotal *prometheus.CounterVec

	// NodeDurationSeconds measures how long an interface ran.
	// Labels: interface
	NodeDurationSeconds *prometheus.HistogramVec

	// NodesRunning is the number of node instances currently executing.
	NodesRunning prometheus.Gauge

	// SinksTotal counts values written back to the repository.
	// Labels: kind (fileset, field)
	SinksTotal *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. A nil reg uses a private
// registry, which keeps tests from colliding on the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		NodesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "executions_total",
			Help:      "Finished node instances by interface and status.",
		}, []string{"interface", "status"}),
		NodeDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "duration_seconds",
			Help:      "Interface run time per node instance.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"interface"}),
		NodesRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "running",
			Help:      "Node instances currently executing.",
		}),
		SinksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "sinks_total",
			Help:      "Derived values written to the repository by kind.",
		}, []string{"kind"}),
	}
}
