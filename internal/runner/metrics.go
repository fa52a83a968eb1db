package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one Runner, grouped the way
// 88lin-divinesense's PrometheusExporter groups its AI metrics — one struct
// field per collector, registered together at construction.
type Metrics struct {
	registry *prometheus.Registry

	nodesStarted   *prometheus.CounterVec
	nodesFinished  *prometheus.CounterVec
	plansActive    prometheus.Gauge
	nodeDuration   *prometheus.HistogramVec
	concurrencyHit *prometheus.CounterVec
}

// NewMetrics builds a Metrics instance registered on reg. If reg is nil a
// fresh private registry is created.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		nodesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskloop",
				Subsystem: "runner",
				Name:      "nodes_started_total",
				Help:      "Total number of task nodes started.",
			},
			[]string{"kind"},
		),
		nodesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskloop",
				Subsystem: "runner",
				Name:      "nodes_finished_total",
				Help:      "Total number of task nodes finished, by outcome.",
			},
			[]string{"kind", "status"},
		),
		plansActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskloop",
				Subsystem: "runner",
				Name:      "plans_active",
				Help:      "Number of plans currently executing.",
			},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskloop",
				Subsystem: "runner",
				Name:      "node_duration_seconds",
				Help:      "Wall-clock duration of a single node's leaf execution.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		concurrencyHit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskloop",
				Subsystem: "runner",
				Name:      "concurrency_decisions_total",
				Help:      "Cross-plan concurrency decisions, by policy and outcome.",
			},
			[]string{"policy", "outcome"},
		),
	}

	reg.MustRegister(
		m.nodesStarted,
		m.nodesFinished,
		m.plansActive,
		m.nodeDuration,
		m.concurrencyHit,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) recordStart(kind string) {
	if m == nil {
		return
	}
	m.nodesStarted.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordFinish(kind string, success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.nodesFinished.WithLabelValues(kind, status).Inc()
	m.nodeDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) setPlansActive(n int) {
	if m == nil {
		return
	}
	m.plansActive.Set(float64(n))
}

func (m *Metrics) recordConcurrencyDecision(policy string, admitted bool) {
	if m == nil {
		return
	}
	outcome := "admitted"
	if !admitted {
		outcome = "refused"
	}
	m.concurrencyHit.WithLabelValues(policy, outcome).Inc()
}
