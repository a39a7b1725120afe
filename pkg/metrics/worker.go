package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records metadata for the outbox drain loop and its handlers.
type WorkerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_handler_duration_seconds",
		Help:    "Duration of post-commit handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_handler_success",
		Help: "Successful post-commit handler executions.",
	}, []string{"handler"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_handler_failure",
		Help: "Failed post-commit handler executions.",
	}, []string{"handler"})
	reg.MustRegister(duration, success, failure)
	return &WorkerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named handler.
func (w *WorkerMetrics) ObserveDuration(handler string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(handler)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named handler.
func (w *WorkerMetrics) IncSuccess(handler string) {
	if w == nil || w.success == nil {
		return
	}
	w.success.WithLabelValues(normalizeLabel(handler)).Inc()
}

// IncFailure increments the failure counter for the named handler.
func (w *WorkerMetrics) IncFailure(handler string) {
	if w == nil || w.failure == nil {
		return
	}
	w.failure.WithLabelValues(normalizeLabel(handler)).Inc()
}
