package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cornucopia/pkg/domain"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	runs            *prometheus.CounterVec
	findings        *prometheus.CounterVec
	classifications *prometheus.CounterVec
	stages          *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cornucopia_pipeline_runs_total",
			Help: "Pipeline runs by experiment type and terminal status.",
		}, []string{"type", "status"}),
		findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cornucopia_validation_findings_total",
			Help: "Validation findings by kind.",
		}, []string{"kind"}),
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cornucopia_simulation_classifications_total",
			Help: "Simulation diagnostic classifications by category.",
		}, []string{"category"}),
		stages: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cornucopia_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) observeOutcome(o Outcome) {
	t := string(o.Type())
	if t == "" {
		t = "unresolved"
	}
	m.runs.WithLabelValues(t, string(o.Status)).Inc()
	for _, f := range o.Report.Findings {
		m.findings.WithLabelValues(string(f.Kind)).Inc()
	}
	for _, c := range o.Classifications {
		m.classifications.WithLabelValues(string(c.Category)).Inc()
	}
}

// ObserveClassifications counts classifications produced outside a pipeline
// run, such as a standalone simulation.
func (m *Metrics) ObserveClassifications(set []domain.ErrorClassification) {
	for _, c := range set {
		m.classifications.WithLabelValues(string(c.Category)).Inc()
	}
}
