// Package fulfillment infers whether requirements and standard functions
// are satisfied from the evidence in a snapshot. Nothing here mutates its
// inputs, so results are stable for a given snapshot.
package fulfillment

import (
	"slices"

	"qualityline/internal/catalog"
	"qualityline/internal/domain"
)

// Snapshot is the evidence visible to inference.
type Snapshot struct {
	Documents []domain.Document
	Issues    []domain.ContextIssue
	Actions   []domain.Action
}

// Infer decides whether req is satisfied for processID.
func Infer(req domain.Requirement, processID string, snap Snapshot) domain.Fulfillment {
	return result(clauseEvidence(req.ClauseNumber, processID, snap))
}

// InferFunction is satisfied when every clause the function references has
// at least one piece of evidence for the process.
func InferFunction(fn domain.StandardFunction, processID string, snap Snapshot) domain.Fulfillment {
	var (
		refs    []domain.ItemRef
		missing bool
	)
	seen := map[domain.ItemRef]bool{}
	for _, clause := range fn.ClauseReferences {
		found := clauseEvidence(clause, processID, snap)
		if len(found) == 0 {
			missing = true
		}
		for _, r := range found {
			if !seen[r] {
				seen[r] = true
				refs = append(refs, r)
			}
		}
	}
	if len(fn.ClauseReferences) == 0 {
		missing = true
	}
	f := domain.Fulfillment{State: domain.Satisfied, InferredFrom: refs}
	if missing {
		f.State = domain.NotSatisfied
	}
	if f.InferredFrom == nil {
		f.InferredFrom = []domain.ItemRef{}
	}
	return f
}

func result(refs []domain.ItemRef) domain.Fulfillment {
	if len(refs) == 0 {
		return domain.Fulfillment{State: domain.NotSatisfied, InferredFrom: []domain.ItemRef{}}
	}
	return domain.Fulfillment{State: domain.Satisfied, InferredFrom: refs}
}

// clauseEvidence collects documents, issues and actions that evidence clause
// for the process, in snapshot order.
func clauseEvidence(clause, processID string, snap Snapshot) []domain.ItemRef {
	var refs []domain.ItemRef
	for _, d := range snap.Documents {
		if !slices.Contains(d.ProcessIDs, processID) {
			continue
		}
		for _, ref := range d.ISOClauseReferences {
			if catalog.ClauseCovers(ref, clause) {
				refs = append(refs, domain.ItemRef{Kind: domain.ItemDocument, ID: d.ID, Title: d.Title})
				break
			}
		}
	}
	rule := ruleFor(clause)
	if rule.issues != nil {
		for _, is := range snap.Issues {
			if is.ProcessID == processID && rule.issues(is) {
				refs = append(refs, domain.ItemRef{Kind: domain.ItemIssue, ID: is.ID, Title: is.Title})
			}
		}
	}
	if rule.actions != nil {
		for _, a := range snap.Actions {
			if a.ProcessID == processID && rule.actions(a) {
				refs = append(refs, domain.ItemRef{Kind: domain.ItemAction, ID: a.ID, Title: a.Title})
			}
		}
	}
	return refs
}

type evidenceRule struct {
	issues  func(domain.ContextIssue) bool
	actions func(domain.Action) bool
}

func anyIssue(domain.ContextIssue) bool { return true }

// assessedIssue is an opportunity or a risk that has been scored at least once.
func assessedIssue(is domain.ContextIssue) bool {
	return is.Type == domain.IssueOpportunity || is.RiskVersions.Len() > 0
}

func evaluatedAction(a domain.Action) bool {
	return a.Status == domain.ActionEvaluated
}

// ruleFor returns the non-document evidence accepted for a clause.
func ruleFor(clause string) evidenceRule {
	switch {
	case catalog.ClauseCovers("4.1", clause), catalog.ClauseCovers("4.2", clause):
		return evidenceRule{issues: anyIssue}
	case catalog.ClauseCovers("6.1", clause):
		return evidenceRule{issues: assessedIssue}
	case catalog.ClauseCovers("10.2", clause), catalog.ClauseCovers("10.3", clause):
		return evidenceRule{actions: evaluatedAction}
	}
	return evidenceRule{}
}
