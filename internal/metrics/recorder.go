// Package metrics exposes Prometheus instruments for guarded operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes per-operation timing and outcomes. Recording is
// best-effort from the executor's point of view: none of these calls can
// fail, and the executor additionally shields itself against panics.
type Recorder struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewRecorder registers the instruments on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aegis",
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Guarded operation wall time by action and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action", "outcome"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "operation",
			Name:      "outcomes_total",
			Help:      "Guarded operation count by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(r.duration, r.outcomes)
	return r
}

// ObserveOperation records one finished guarded execution.
func (r *Recorder) ObserveOperation(action, outcome string, elapsed time.Duration) {
	r.duration.WithLabelValues(action, outcome).Observe(elapsed.Seconds())
	r.outcomes.WithLabelValues(action, outcome).Inc()
}
