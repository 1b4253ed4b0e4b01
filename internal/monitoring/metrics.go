// Package monitoring exposes Prometheus metrics for extraction and
// store activity.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "progscout"

// Metrics holds the collectors the application updates.
type Metrics struct {
	registry *prometheus.Registry

	ExtractionsTotal *prometheus.CounterVec
	FieldsResolved   *prometheus.CounterVec
	ExtractionTime   prometheus.Histogram

	StoreOpsTotal *prometheus.CounterVec
	StoreOpTime   *prometheus.HistogramVec
	RecordsSaved  prometheus.Gauge

	FetchesTotal *prometheus.CounterVec
	FetchTime    prometheus.Histogram
}

// NewMetrics creates and registers the application collectors on a
// dedicated registry, keeping test instances independent.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ExtractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Page extractions by outcome.",
		}, []string{"outcome"}),
		FieldsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "fields_resolved_total",
			Help:      "Fields resolved to a value versus the sentinel.",
		}, []string{"field", "resolved"}),
		ExtractionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting one page.",
			Buckets:   prometheus.DefBuckets,
		}),

		StoreOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		StoreOpTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RecordsSaved: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records_saved",
			Help:      "Programs currently saved.",
		}),

		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Page fetches by outcome.",
		}, []string{"outcome"}),
		FetchTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "request_duration_seconds",
			Help:      "Page fetch latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStoreOp records one store operation.
func (m *Metrics) ObserveStoreOp(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.StoreOpsTotal.WithLabelValues(operation, outcome).Inc()
	m.StoreOpTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveExtraction records one extraction attempt.
func (m *Metrics) ObserveExtraction(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
	m.ExtractionTime.Observe(time.Since(start).Seconds())
}

// ObserveFetch records one page fetch.
func (m *Metrics) ObserveFetch(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchTime.Observe(time.Since(start).Seconds())
}
