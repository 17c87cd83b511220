package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the engine's Prometheus instruments. One Metrics value is
// shared by every Runner under a manager; series are split by the plugin
// name label.
type Metrics struct {
	cycles   *prometheus.CounterVec
	phases   *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  *prometheus.GaugeVec
}

// NewMetrics builds the engine instruments and registers them on reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "burnin",
				Subsystem: "engine",
				Name:      "cycles_total",
				Help:      "Completed burn-in cycles.",
			},
			[]string{"plugin"},
		),
		phases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "burnin",
				Subsystem: "engine",
				Name:      "phases_total",
				Help:      "Executed work phases.",
			},
			[]string{"plugin", "phase"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "burnin",
				Subsystem: "engine",
				Name:      "phase_failures_total",
				Help:      "Work phases that returned an error.",
			},
			[]string{"plugin", "phase"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "burnin",
				Subsystem: "engine",
				Name:      "phase_duration_seconds",
				Help:      "Work phase duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"plugin", "phase"},
		),
		running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "burnin",
				Subsystem: "engine",
				Name:      "running",
				Help:      "Whether the plugin loop is running.",
			},
			[]string{"plugin"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.cycles, m.phases, m.failures, m.duration, m.running)
	}
	return m
}

func (m *Metrics) observePhase(name string, ph Phase, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(name, ph.String()).Inc()
	m.duration.WithLabelValues(name, ph.String()).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(name, ph.String()).Inc()
	}
}

func (m *Metrics) cycleDone(name string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(name).Inc()
}

func (m *Metrics) setRunning(name string, v bool) {
	if m == nil {
		return
	}
	g := m.running.WithLabelValues(name)
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
