package domain

type IssueType string

const (
	IssueRisk        IssueType = "risk"
	IssueOpportunity IssueType = "opportunity"
)

type RiskTrigger string

const (
	TriggerInitial          RiskTrigger = "initial"
	TriggerPostActionReview RiskTrigger = "post_action_review"
)

// ContextIssue is a risk or opportunity raised for a process. The current
// risk fields mirror the latest entry of RiskVersions.
type ContextIssue struct {
	ID           string           `json:"id"`
	ProcessID    string           `json:"process_id"`
	Type         IssueType        `json:"type"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Severity     int              `json:"severity,omitempty"`
	Probability  int              `json:"probability,omitempty"`
	Criticity    int              `json:"criticity,omitempty"`
	Priority     string           `json:"priority,omitempty"`
	Version      int              `json:"version"`
	RevisionDate string           `json:"revision_date,omitempty"`
	RiskVersions Log[RiskVersion] `json:"risk_versions"`
	CreatedAt    string           `json:"created_at"`
}

type RiskVersion struct {
	ID            string      `json:"id"`
	VersionNumber int         `json:"version_number"`
	Date          string      `json:"date"`
	Trigger       RiskTrigger `json:"trigger"`
	Description   string      `json:"description,omitempty"`
	Severity      int         `json:"severity"`
	Probability   int         `json:"probability"`
	Criticity     int         `json:"criticity"`
	Priority      string      `json:"priority"`
	EvaluatorName string      `json:"evaluator_name,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}
