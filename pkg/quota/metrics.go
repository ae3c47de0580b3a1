package quota

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Decision modes and outcomes used as metric labels.
const (
	modeCheck = "check"
	modeTrack = "track"

	outcomeAllowed   = "allowed"
	outcomeDenied    = "denied"
	outcomeUntracked = "untracked"
	outcomeError     = "error"
)

// Metrics holds the Prometheus collectors of the limiter and access checks.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DecisionsTotal    *prometheus.CounterVec
	AccessChecksTotal *prometheus.CounterVec
	StoreErrorsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuregate_quota_decisions_total",
				Help: "Total number of rate limit decisions",
			},
			[]string{"feature", "tier", "mode", "outcome"},
		),
		AccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuregate_access_checks_total",
				Help: "Total number of feature access checks",
			},
			[]string{"feature", "outcome"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuregate_store_errors_total",
				Help: "Total number of failed store calls on the decision path",
			},
			[]string{"op"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.DecisionsTotal, m.AccessChecksTotal, m.StoreErrorsTotal)
	}
	return m
}

func (m *Metrics) decision(feature string, t string, mode, outcome string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(feature, t, mode, outcome).Inc()
}

func (m *Metrics) access(feature, outcome string) {
	if m == nil {
		return
	}
	m.AccessChecksTotal.WithLabelValues(feature, outcome).Inc()
}

func (m *Metrics) storeError(op string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}
