package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"study-assistant-be/pkg/resilience"
	"study-assistant-be/pkg/workflow"
)

// Workflow records per-run and per-stage metrics. It satisfies orchestrator.Observer.
type Workflow struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec
	FailuresTotal    *prometheus.CounterVec
	DegradationTotal *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Workflow {
	factory := promauto.With(reg)

	return &Workflow{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_runs_total",
				Help: "Total number of finished workflow runs",
			},
			[]string{"intent", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_run_duration_seconds",
				Help:    "Duration of workflow runs in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"intent"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_stage_duration_seconds",
				Help:    "Duration of workflow stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage", "outcome"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_failures_total",
				Help: "Total number of failed workflow runs",
			},
			[]string{"stage", "kind"},
		),
		DegradationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_degradations_total",
				Help: "Total number of degraded stages absorbed by workflow runs",
			},
			[]string{"kind"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
			},
			[]string{"dependency"},
		),
	}
}

func (m *Workflow) StageFinished(stage string, elapsed time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.StageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

func (m *Workflow) RunFinished(s workflow.State) {
	intent := "unclassified"
	if s.Intent != nil {
		intent = string(s.Intent.Intent)
	}

	m.RunsTotal.WithLabelValues(intent, string(s.Status)).Inc()
	m.RunDuration.WithLabelValues(intent).Observe(s.Duration().Seconds())

	if s.Err != nil {
		m.FailuresTotal.WithLabelValues(s.Err.Stage, string(s.Err.Kind)).Inc()
	}
	for _, d := range s.Degradations {
		m.DegradationTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}

// TrackBreaker exports the breaker's state and keeps it current.
func (m *Workflow) TrackBreaker(dependency string, b *resilience.Breaker) {
	gauge := m.BreakerState.WithLabelValues(dependency)
	gauge.Set(float64(b.State()))
	b.OnTransition(func(_, to resilience.State) {
		gauge.Set(float64(to))
	})
}
