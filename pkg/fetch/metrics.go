package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booth_feedback"

// Metrics counts fetch attempts and their outcomes.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Retries  prometheus.Counter
	Latency  *prometheus.HistogramVec
}

// NewMetrics registers the client metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of HTTP attempts by outcome",
		}, []string{"method", "outcome"}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of backoff waits before a retry",
		}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of a single HTTP attempt",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method"}),
	}
}

func (m *Metrics) observe(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(method, outcome).Inc()
	m.Latency.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}
