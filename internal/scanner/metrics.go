package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scan pipeline.
type Metrics struct {
	Registry      *prometheus.Registry
	AdmittedTotal prometheus.Counter
	RejectedTotal prometheus.Counter
	OutcomesTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	admitted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_admitted_total",
			Help: "Total scan events admitted past the gate.",
		},
	)
	rejected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_rejected_total",
			Help: "Total scan events rejected as invalid or locked.",
		},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_outcomes_total",
			Help: "Total terminal scan outcomes by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(admitted, rejected, outcomes)

	return &Metrics{
		Registry:      registry,
		AdmittedTotal: admitted,
		RejectedTotal: rejected,
		OutcomesTotal: outcomes,
	}
}

// IncAdmitted increments the admitted counter.
func (m *Metrics) IncAdmitted() {
	if m == nil {
		return
	}
	m.AdmittedTotal.Inc()
}

// IncRejected increments the rejected counter.
func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	m.RejectedTotal.Inc()
}

// IncOutcome increments the outcome counter for a kind label.
func (m *Metrics) IncOutcome(kind OutcomeKind) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(kind.String()).Inc()
}
