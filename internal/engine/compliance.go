package engine

import (
	"qualityline/internal/compliance"
	"qualityline/internal/domain"
)

// ComplianceMetrics aggregates every function instance in the session.
func (e Engine) ComplianceMetrics() domain.ComplianceMetrics {
	m := compliance.Calculate(e.Store.Instances())
	e.Metrics.SetCompliance("overall", float64(m.CompliancePercentage))
	return m
}

func (e Engine) ComplianceByCategory() []compliance.CategoryMetrics {
	return compliance.ByCategory(e.Catalog, e.Store.Instances())
}

func (e Engine) ComplianceByClause() []compliance.ClauseMetrics {
	return compliance.ByClause(e.Catalog, e.Store.Instances())
}

func (e Engine) ComplianceByProcess(processID string) domain.ComplianceMetrics {
	m := compliance.ByProcess(processID, e.Store.Instances())
	if _, ok := e.Store.Process(processID); ok {
		e.Metrics.SetCompliance("process:"+processID, float64(m.CompliancePercentage))
	}
	return m
}
