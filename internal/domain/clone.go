package domain

import (
	"maps"
	"slices"
)

// Clone methods return deep copies so values read from the session store can
// be edited without reaching back into it. Logs are already immutable.

func (p Process) Clone() Process {
	acts := make([]Activity, len(p.Activities))
	for i, a := range p.Activities {
		a.RequirementIDs = slices.Clone(a.RequirementIDs)
		acts[i] = a
	}
	p.Activities = acts
	return p
}

func (d Document) Clone() Document {
	d.ProcessIDs = slices.Clone(d.ProcessIDs)
	d.ISOClauseReferences = slices.Clone(d.ISOClauseReferences)
	return d
}

func (i ContextIssue) Clone() ContextIssue { return i }

func (a Action) Clone() Action {
	a.LinkedIssueIDs = slices.Clone(a.LinkedIssueIDs)
	if a.CompletedDate != nil {
		d := *a.CompletedDate
		a.CompletedDate = &d
	}
	if a.EfficiencyEvaluation != nil {
		e := *a.EfficiencyEvaluation
		a.EfficiencyEvaluation = &e
	}
	return a
}

func (fi FunctionInstance) Clone() FunctionInstance {
	fi.LinkedActionIDs = slices.Clone(fi.LinkedActionIDs)
	fi.LinkedObjectiveIDs = slices.Clone(fi.LinkedObjectiveIDs)
	fi.LinkedKPIIDs = slices.Clone(fi.LinkedKPIIDs)
	switch d := fi.Data.(type) {
	case PolicyData:
		d.CommunicatedTo = slices.Clone(d.CommunicatedTo)
		fi.Data = d
	case ObjectivesData:
		d.Objectives = slices.Clone(d.Objectives)
		fi.Data = d
	case GenericData:
		d.Fields = maps.Clone(d.Fields)
		fi.Data = d
	}
	return fi
}
