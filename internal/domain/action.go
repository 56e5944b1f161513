package domain

type ActionStatus string

const (
	ActionPlanned                    ActionStatus = "planned"
	ActionInProgress                 ActionStatus = "in_progress"
	ActionCompletedPendingEvaluation ActionStatus = "completed_pending_evaluation"
	ActionEvaluated                  ActionStatus = "evaluated"
	ActionCancelled                  ActionStatus = "cancelled"
)

func (s ActionStatus) Valid() bool {
	switch s {
	case ActionPlanned, ActionInProgress, ActionCompletedPendingEvaluation, ActionEvaluated, ActionCancelled:
		return true
	}
	return false
}

type EfficiencyResult string

const (
	Effective   EfficiencyResult = "effective"
	Ineffective EfficiencyResult = "ineffective"
)

type Action struct {
	ID                   string                `json:"id"`
	Title                string                `json:"title"`
	Description          string                `json:"description,omitempty"`
	ProcessID            string                `json:"process_id"`
	LinkedIssueIDs       []string              `json:"linked_issue_ids"`
	Owner                string                `json:"owner,omitempty"`
	Deadline             string                `json:"deadline"`
	Status               ActionStatus          `json:"status"`
	StatusHistory        Log[StatusChange]     `json:"status_history"`
	CompletedDate        *string               `json:"completed_date,omitempty"`
	EfficiencyEvaluation *EfficiencyEvaluation `json:"efficiency_evaluation,omitempty"`
	Version              int                   `json:"version"`
	RevisionDate         string                `json:"revision_date"`
	CreatedAt            string                `json:"created_at"`
}

// LinkedTo reports whether the action addresses the given issue.
func (a Action) LinkedTo(issueID string) bool {
	for _, id := range a.LinkedIssueIDs {
		if id == issueID {
			return true
		}
	}
	return false
}

// StatusChange is one entry of an action's status history. FromStatus is
// empty for the creation entry.
type StatusChange struct {
	FromStatus ActionStatus `json:"from_status,omitempty"`
	ToStatus   ActionStatus `json:"to_status"`
	Date       string       `json:"date"`
	Notes      string       `json:"notes,omitempty"`
}

type EfficiencyEvaluation struct {
	Result        EfficiencyResult `json:"result"`
	Evidence      string           `json:"evidence,omitempty"`
	EvidenceType  string           `json:"evidence_type,omitempty"`
	EvaluatorName string           `json:"evaluator_name,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Date          string           `json:"date"`
}
