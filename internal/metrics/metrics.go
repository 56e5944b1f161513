package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance engine and its
// persistence worker. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Persistence outcomes by collection and operation
	PersistenceWrites   *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec

	// Risk versions appended by trigger
	RiskVersions *prometheus.CounterVec

	// Action status transitions and efficiency results
	ActionTransitions *prometheus.CounterVec
	ActionsEvaluated  *prometheus.CounterVec

	// Last computed compliance percentage per scope
	CompliancePercentage *prometheus.GaugeVec
}

// New registers every metric with reg. Passing a fresh prometheus.Registry
// keeps tests isolated from the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PersistenceWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualityline_persistence_writes_total",
			Help: "Record store writes completed by the persistence worker",
		}, []string{"collection", "op"}),

		PersistenceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualityline_persistence_failures_total",
			Help: "Record store writes that failed and were dropped",
		}, []string{"collection", "op"}),

		RiskVersions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualityline_risk_versions_total",
			Help: "Risk versions appended by trigger",
		}, []string{"trigger"}), // trigger: "initial", "post_action_review"

		ActionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualityline_action_transitions_total",
			Help: "Action status transitions by target status",
		}, []string{"to"}),

		ActionsEvaluated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualityline_actions_evaluated_total",
			Help: "Efficiency evaluations by result",
		}, []string{"result"}),

		CompliancePercentage: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qualityline_compliance_percentage",
			Help: "Most recently calculated compliance percentage",
		}, []string{"scope"}), // scope: "overall", "process:<id>"
	}
}

func (m *Metrics) IncPersistenceWrite(collection, op string) {
	if m != nil {
		m.PersistenceWrites.WithLabelValues(collection, op).Inc()
	}
}

func (m *Metrics) IncPersistenceFailure(collection, op string) {
	if m != nil {
		m.PersistenceFailures.WithLabelValues(collection, op).Inc()
	}
}

func (m *Metrics) IncRiskVersion(trigger string) {
	if m != nil {
		m.RiskVersions.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) IncActionTransition(to string) {
	if m != nil {
		m.ActionTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) IncActionEvaluated(result string) {
	if m != nil {
		m.ActionsEvaluated.WithLabelValues(result).Inc()
	}
}

// SetCompliance records the latest percentage for a scope.
func (m *Metrics) SetCompliance(scope string, pct float64) {
	if m != nil {
		m.CompliancePercentage.WithLabelValues(scope).Set(pct)
	}
}
