package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts batch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	documents *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	runs      *prometheus.CounterVec
	lastRun   prometheus.Gauge
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidates_documents_total",
				Help: "Documents processed by the batch collector, by outcome",
			},
			[]string{"status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candidates_document_duration_seconds",
				Help:    "Time spent extracting one document",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"status"},
		),
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidates_runs_total",
				Help: "Batch runs, by result",
			},
			[]string{"result"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "candidates_last_run_candidates",
			Help: "Candidates written by the last successful run",
		}),
	}
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(string(o.Status)).Inc()
	m.duration.WithLabelValues(string(o.Status)).Observe(o.Duration.Seconds())
}

func (m *Metrics) run(result string, candidates int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	if result == "ok" {
		m.lastRun.Set(float64(candidates))
	}
}
