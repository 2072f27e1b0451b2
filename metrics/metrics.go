// Package metrics exposes Prometheus metrics for operations and refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "gold_client"

// Metrics registers on its own registry so several instances can coexist.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationsBusy    *prometheus.CounterVec

	RefreshTotal    *prometheus.CounterVec
	RefreshFailures *prometheus.CounterVec
	LastRefresh     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "total",
			Help:      "Finished operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Time from invocation to terminal status",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"operation"}),
		OperationsBusy: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "in_progress_rejections_total",
			Help:      "Invocations refused because the operation was pending",
		}, []string{"operation"}),
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "refresh_total",
			Help:      "Snapshot refreshes by trigger",
		}, []string{"trigger"}),
		RefreshFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "refresh_failures_total",
			Help:      "Snapshot refreshes that left a stale snapshot",
		}, []string{"trigger"}),
		LastRefresh: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful refresh",
		}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(trigger string, err error) {
	m.RefreshTotal.WithLabelValues(trigger).Inc()
	if err != nil {
		m.RefreshFailures.WithLabelValues(trigger).Inc()
		return
	}
	m.LastRefresh.SetToCurrentTime()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
