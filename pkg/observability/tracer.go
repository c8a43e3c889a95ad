// Package observability provides a Prometheus-backed execution tracer.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/promptloom/promptloom/pkg/domain"
)

// MetricsTracer implements ports.Tracer on top of Prometheus collectors.
// Each tracer owns its collectors so multiple chains can report into
// separate registries.
type MetricsTracer struct {
	builds        prometheus.Counter
	stepsStarted  *prometheus.CounterVec
	stepOutcomes  *prometheus.CounterVec
	stepDurations *prometheus.HistogramVec
}

// NewMetricsTracer registers the chain collectors with reg and returns the
// tracer. Pass prometheus.DefaultRegisterer to expose them on the default
// /metrics handler.
func NewMetricsTracer(reg prometheus.Registerer) *MetricsTracer {
	factory := promauto.With(reg)
	return &MetricsTracer{
		builds: factory.NewCounter(prometheus.CounterOpts{
			Name: "promptloom_chain_builds_total",
			Help: "Total dependency builds performed.",
		}),
		stepsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptloom_chain_steps_started_total",
			Help: "Total steps dispatched to agents.",
		}, []string{"agent"}),
		stepOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptloom_chain_steps_completed_total",
			Help: "Step completion outcomes.",
		}, []string{"agent", "result"}),
		stepDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptloom_chain_step_duration_seconds",
			Help:    "Wall time per step, including agent latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent"}),
	}
}

// BuildCompleted records a finished dependency build.
func (m *MetricsTracer) BuildCompleted(steps int) {
	m.builds.Inc()
}

// StepStarted records a step dispatch.
func (m *MetricsTracer) StepStarted(ref domain.StepRef, key string) {
	m.stepsStarted.WithLabelValues(strconv.Itoa(ref.Agent)).Inc()
}

// StepCompleted records a step outcome and its duration.
func (m *MetricsTracer) StepCompleted(ref domain.StepRef, key string, elapsed time.Duration, err error) {
	agent := strconv.Itoa(ref.Agent)
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stepOutcomes.WithLabelValues(agent, result).Inc()
	m.stepDurations.WithLabelValues(agent).Observe(elapsed.Seconds())
}
