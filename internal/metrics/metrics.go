package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propscore"

// Metrics holds the scoring collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	// scored: results produced, by stakeholder.
	scored *prometheus.CounterVec
	// undefined: results whose total is NaN, by stakeholder.
	undefined *prometheus.CounterVec
	// sinkErrors: results a sink failed to write.
	sinkErrors prometheus.Counter
	// duration: wall time of scoring operations: batch, request, explain.
	duration *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Score results produced.",
		}, []string{"stakeholder"}),
		undefined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undefined_totals_total",
			Help:      "Score results with a NaN total.",
		}, []string{"stakeholder"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Score results that could not be written to a sink.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of scoring operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.scored,
		m.undefined,
		m.sinkErrors,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Scored counts one result.
func (m *Metrics) Scored(stakeholder string, total float64) {
	if m == nil {
		return
	}
	m.scored.WithLabelValues(stakeholder).Inc()
	if math.IsNaN(total) {
		m.undefined.WithLabelValues(stakeholder).Inc()
	}
}

// SinkError counts one failed write.
func (m *Metrics) SinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}

// Observe records the duration of operation since start.
func (m *Metrics) Observe(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
