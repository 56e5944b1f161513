// Package compliance rolls function instance statuses up into compliance
// percentages. Every call is a linear pass over the instances it is given.
package compliance

import (
	"math"

	"qualityline/internal/catalog"
	"qualityline/internal/domain"
)

type CategoryMetrics struct {
	Category string                   `json:"category"`
	Metrics  domain.ComplianceMetrics `json:"metrics"`
}

type ClauseMetrics struct {
	Clause  string                   `json:"clause"`
	Metrics domain.ComplianceMetrics `json:"metrics"`
}

// Percentage is round((implemented + 0.5*partial) / total * 100), zero when total is zero.
func Percentage(implemented, partial, total int) int {
	if total == 0 {
		return 0
	}
	score := (float64(implemented) + 0.5*float64(partial)) / float64(total) * 100
	return int(math.Round(score))
}

// Calculate aggregates the given instances.
func Calculate(instances []domain.FunctionInstance) domain.ComplianceMetrics {
	var m domain.ComplianceMetrics
	for _, fi := range instances {
		m.TotalFunctions++
		switch fi.Status {
		case domain.Implemented:
			m.ImplementedCount++
		case domain.PartiallyImplemented:
			m.PartiallyImplementedCount++
		case domain.NotImplemented:
			m.NotImplementedCount++
		case domain.Nonconformity:
			m.NonconformityCount++
		case domain.ImprovementOpportunity:
			m.ImprovementOpportunityCount++
		}
	}
	m.CompliancePercentage = Percentage(m.ImplementedCount, m.PartiallyImplementedCount, m.TotalFunctions)
	return m
}

// ByCategory returns one row per catalog category, including empty ones.
// Instances whose function is not in the catalog are skipped.
func ByCategory(c *catalog.Catalog, instances []domain.FunctionInstance) []CategoryMetrics {
	buckets := map[string][]domain.FunctionInstance{}
	for _, fi := range instances {
		fn, ok := c.Function(fi.FunctionID)
		if !ok {
			continue
		}
		buckets[fn.Category] = append(buckets[fn.Category], fi)
	}
	cats := c.Categories()
	out := make([]CategoryMetrics, 0, len(cats))
	for _, cat := range cats {
		out = append(out, CategoryMetrics{Category: cat, Metrics: Calculate(buckets[cat])})
	}
	return out
}

// ByClause returns one row per top-level clause bucket. An instance counts
// toward every bucket one of its function's clause references falls under.
func ByClause(c *catalog.Catalog, instances []domain.FunctionInstance) []ClauseMetrics {
	clauses := c.Clauses()
	out := make([]ClauseMetrics, 0, len(clauses))
	for _, clause := range clauses {
		var matched []domain.FunctionInstance
		for _, fi := range instances {
			fn, ok := c.Function(fi.FunctionID)
			if !ok {
				continue
			}
			if referencesClause(fn, clause) {
				matched = append(matched, fi)
			}
		}
		out = append(out, ClauseMetrics{Clause: clause, Metrics: Calculate(matched)})
	}
	return out
}

func referencesClause(fn domain.StandardFunction, clause string) bool {
	for _, ref := range fn.ClauseReferences {
		if catalog.ClauseCovers(clause, ref) {
			return true
		}
	}
	return false
}

// ByProcess aggregates the instances attached to one process.
func ByProcess(processID string, instances []domain.FunctionInstance) domain.ComplianceMetrics {
	var matched []domain.FunctionInstance
	for _, fi := range instances {
		if fi.ProcessID == processID {
			matched = append(matched, fi)
		}
	}
	return Calculate(matched)
}
