package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeValidated  = "validated"
	outcomeBestEffort = "best_effort"
	outcomeError      = "error"
)

// Metrics records workflow counters. A nil *Metrics records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	iterations    prometheus.Histogram
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers the workflow collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugger_runs_total",
			Help: "Workflow invocations by outcome",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "debugger_run_iterations",
			Help:    "Analyze attempts per completed invocation",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "debugger_run_duration_seconds",
			Help:    "Wall time of one invocation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "debugger_stage_duration_seconds",
			Help:    "Wall time of one stage execution",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(m.runs, m.iterations, m.runDuration, m.stageDuration)
	return m
}

func (m *Metrics) observeRun(outcome string, iterations int, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
	if outcome != outcomeError {
		m.iterations.Observe(float64(iterations))
	}
}

func (m *Metrics) observeStage(stage Stage, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())
}
