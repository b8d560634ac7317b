package tracker

import (
	"github.com/opst/seqmap/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOk        = "ok"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// Metrics of a Tracker. Methods of nil *Metrics do nothing.
type Metrics struct {
	polls         *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	active        prometheus.Gauge
	finished      *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them to reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqmap",
				Subsystem: "tracker",
				Name:      "polls_total",
				Help:      "Number of job status checks, by outcome (ok, error, discarded).",
			},
			[]string{"outcome"},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqmap",
				Subsystem: "tracker",
				Name:      "status_changes_total",
				Help:      "Number of observed job status changes, by new status.",
			},
			[]string{"status"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seqmap",
				Subsystem: "tracker",
				Name:      "active_jobs",
				Help:      "Number of jobs being polled.",
			},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqmap",
				Subsystem: "tracker",
				Name:      "finished_jobs_total",
				Help:      "Number of jobs observed in terminal status, by status.",
			},
			[]string{"status"},
		),
	}

	for _, c := range []prometheus.Collector{m.polls, m.statusChanges, m.active, m.finished} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) poll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) statusChanged(to domain.Status) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(to.String()).Inc()
	if to.IsTerminal() {
		m.finished.WithLabelValues(to.String()).Inc()
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) stopped() {
	if m == nil {
		return
	}
	m.active.Dec()
}
