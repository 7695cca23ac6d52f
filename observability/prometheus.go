package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/tripmesh/core"
)

// PrometheusRecorder turns records into Prometheus metrics.
type PrometheusRecorder struct {
	callbacks   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	registry    *prometheus.Registry
}

// NewPrometheusRecorder registers the tripmesh metrics on a private registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		callbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmesh_callback_firings_total",
				Help: "Total number of callback firings by event type, handler and action",
			},
			[]string{"event_type", "handler", "action"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmesh_handler_transitions_total",
				Help: "Total number of handler state transitions by target status",
			},
			[]string{"handler", "to"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripmesh_handler_duration_seconds",
				Help:    "Handler invocation latency in seconds by terminal status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "status"},
		),
		registry: registry,
	}

	registry.MustRegister(r.callbacks, r.transitions, r.durations)

	return r
}

// Record implements core.Recorder.
func (r *PrometheusRecorder) Record(_ context.Context, rec core.Record) {
	if rec.EventType == core.RecordStateTransition {
		to, _ := rec.Metadata["to"].(string)
		r.transitions.WithLabelValues(rec.Handler, to).Inc()

		if d, ok := rec.Metadata["duration"].(time.Duration); ok {
			r.durations.WithLabelValues(rec.Handler, to).Observe(d.Seconds())
		}
		return
	}

	action, _ := rec.Metadata["action"].(string)
	r.callbacks.WithLabelValues(rec.EventType, rec.Handler, action).Inc()
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
