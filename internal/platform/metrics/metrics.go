// Package metrics collects and exposes Prometheus metrics for engagement
// operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the ledger service records through.
type Recorder interface {
	RecordOperation(op, outcome string)
	RecordOperationLatency(op string, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector registers engagement metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engagement_operations_total",
			Help: "Engagement ledger operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engagement_operation_duration_seconds",
			Help:    "Latency of engagement ledger operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(c.operations, c.latency)
	return c
}

func (c *Collector) RecordOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordOperationLatency(op string, d time.Duration) {
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards everything. Useful in tests.
type Nop struct{}

func (Nop) RecordOperation(string, string)               {}
func (Nop) RecordOperationLatency(string, time.Duration) {}
