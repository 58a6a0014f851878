// Package metrics exposes Prometheus counters for resolver operations and session tokens.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records operation outcomes and token rejections.
// A nil *Collector is valid and records nothing.
type Collector struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	tokenRejected *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookshelf_operations_total",
			Help: "Resolver operations by operation name and result code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookshelf_operation_duration_seconds",
			Help:    "Resolver operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		tokenRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookshelf_token_rejected_total",
			Help: "Session tokens rejected by the resolver, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.operations, c.duration, c.tokenRejected)
	return c
}

// ObserveOperation records one operation call. code is "OK" on success.
func (c *Collector) ObserveOperation(operation, code string, d time.Duration) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(operation, code).Inc()
	c.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordTokenRejected counts a rejected bearer token.
func (c *Collector) RecordTokenRejected(reason string) {
	if c == nil {
		return
	}
	c.tokenRejected.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
