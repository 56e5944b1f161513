package fulfillment

import (
	"slices"

	"qualityline/internal/catalog"
	"qualityline/internal/domain"
)

// RequirementsForActivity returns the generic set for the governance
// activity and the explicitly allocated requirements, in allocation order,
// for any other activity.
func RequirementsForActivity(c *catalog.Catalog, p domain.Process, activityID string) []domain.Requirement {
	act, ok := p.Activity(activityID)
	if !ok {
		return []domain.Requirement{}
	}
	if act.Governance {
		return c.RequirementsOfType(domain.RequirementGeneric)
	}
	out := make([]domain.Requirement, 0, len(act.RequirementIDs))
	for _, id := range act.RequirementIDs {
		if r, ok := c.Requirement(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Overview summarises allocation and fulfillment for one process. Generic
// requirements always count as allocated; the others only once placed on
// an activity. Total is the size of the catalog.
func Overview(c *catalog.Catalog, p domain.Process, snap Snapshot) domain.RequirementsOverview {
	all := c.Requirements()
	ov := domain.RequirementsOverview{Total: len(all), Requirements: []domain.RequirementStatus{}}
	gov, hasGov := p.GovernanceActivity()
	for _, r := range all {
		var activityIDs []string
		if r.Type == domain.RequirementGeneric && hasGov {
			activityIDs = append(activityIDs, gov.ID)
		}
		for _, a := range p.Activities {
			if !a.Governance && slices.Contains(a.RequirementIDs, r.ID) {
				activityIDs = append(activityIDs, a.ID)
			}
		}
		if r.Type != domain.RequirementGeneric && len(activityIDs) == 0 {
			continue
		}
		f := Infer(r, p.ID, snap)
		ov.Allocated++
		if f.State == domain.Satisfied {
			ov.Satisfied++
		} else {
			ov.NotSatisfied++
		}
		ov.Requirements = append(ov.Requirements, domain.RequirementStatus{
			Requirement: r,
			Allocated:   true,
			ActivityIDs: activityIDs,
			Fulfillment: f,
		})
	}
	return ov
}

// UniqueAllocations maps each allocated unique requirement to the
// activities holding it across every process.
func UniqueAllocations(c *catalog.Catalog, processes []domain.Process) map[string][]string {
	out := map[string][]string{}
	for _, p := range processes {
		for _, a := range p.Activities {
			for _, id := range a.RequirementIDs {
				if r, ok := c.Requirement(id); ok && r.Type == domain.RequirementUnique {
					out[id] = append(out[id], a.ID)
				}
			}
		}
	}
	return out
}

// Available lists requirements that can still be allocated to an ordinary
// activity: not generic, not already on the activity, and not a unique
// requirement held anywhere else.
func Available(c *catalog.Catalog, processes []domain.Process, p domain.Process, activityID string) []domain.Requirement {
	act, ok := p.Activity(activityID)
	if !ok || act.Governance {
		return []domain.Requirement{}
	}
	taken := UniqueAllocations(c, processes)
	out := []domain.Requirement{}
	for _, r := range c.Requirements() {
		if r.Type == domain.RequirementGeneric {
			continue
		}
		if slices.Contains(act.RequirementIDs, r.ID) {
			continue
		}
		if r.Type == domain.RequirementUnique && len(taken[r.ID]) > 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}
