package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	generations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	skippedChunks *prometheus.CounterVec
}

// NewMetrics creates the dispatcher collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "narracode_generations_total",
				Help: "Total number of backend generation calls.",
			},
			[]string{"service", "kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "narracode_generation_duration_seconds",
				Help:    "Backend generation latency in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"service", "kind"},
		),
		skippedChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "narracode_stream_chunks_skipped_total",
				Help: "Streaming chunks dropped because they were malformed.",
			},
			[]string{"service"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.duration, m.skippedChunks)
	}
	return m
}

func (m *Metrics) observe(service, kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.generations.WithLabelValues(service, kind, outcome).Inc()
	m.duration.WithLabelValues(service, kind).Observe(elapsed.Seconds())
}

func (m *Metrics) skipped(service string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.skippedChunks.WithLabelValues(service).Add(float64(n))
}
