package engine

import (
	"fmt"

	"qualityline/internal/domain"
	"qualityline/internal/lifecycle"
	"qualityline/internal/risk"
	"qualityline/internal/store"
)

type IssueInput struct {
	ProcessID     string
	Type          domain.IssueType
	Title         string
	Description   string
	Severity      int
	Probability   int
	EvaluatorName string
}

// CreateIssue records a risk or opportunity. A risk starts with its
// initial version; an opportunity carries no score.
func (e Engine) CreateIssue(in IssueInput) (domain.ContextIssue, error) {
	if err := required("title", in.Title); err != nil {
		return domain.ContextIssue{}, err
	}
	switch in.Type {
	case domain.IssueRisk, domain.IssueOpportunity:
	default:
		return domain.ContextIssue{}, fmt.Errorf("%w: issue type must be risk or opportunity (got %q)", domain.ErrValidation, in.Type)
	}
	now := e.timestamp()
	issue := domain.ContextIssue{
		ID:          e.newID(),
		ProcessID:   in.ProcessID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
	}
	if in.Type == domain.IssueRisk {
		v, err := risk.NextVersion(issue.RiskVersions, risk.Input{
			Severity:      in.Severity,
			Probability:   in.Probability,
			Description:   in.Description,
			Trigger:       domain.TriggerInitial,
			EvaluatorName: in.EvaluatorName,
		}, e.newID(), now)
		if err != nil {
			return domain.ContextIssue{}, err
		}
		issue = risk.Append(issue, v)
	}
	err := e.Store.Mutate(func(tx *store.Tx) error {
		if _, ok := tx.Process(in.ProcessID); !ok {
			return notFound("process", in.ProcessID)
		}
		tx.PutIssue(issue)
		return nil
	})
	if err != nil {
		return domain.ContextIssue{}, err
	}
	if in.Type == domain.IssueRisk {
		e.Metrics.IncRiskVersion(string(domain.TriggerInitial))
	}
	return issue, nil
}

func (e Engine) Issue(id string) (domain.ContextIssue, bool) {
	return e.Store.Issue(id)
}

func (e Engine) Issues() []domain.ContextIssue {
	return e.Store.Issues()
}

func (e Engine) IssuesForProcess(processID string) []domain.ContextIssue {
	out := []domain.ContextIssue{}
	for _, is := range e.Store.Issues() {
		if is.ProcessID == processID {
			out = append(out, is)
		}
	}
	return out
}

// AddRiskVersion appends a new evaluation and mirrors it on the issue. An
// unset trigger follows risk.DefaultTrigger. Only risk issues are scored. It
// does not check the residual-risk gate; ReviewResidualRisk does.
func (e Engine) AddRiskVersion(issueID string, in risk.Input) (domain.RiskVersion, error) {
	return e.addRiskVersion(issueID, in, nil)
}

// ReviewResidualRisk records a post_action_review version once at least
// one linked action has been evaluated.
func (e Engine) ReviewResidualRisk(issueID string, in risk.Input) (domain.RiskVersion, error) {
	in.Trigger = domain.TriggerPostActionReview
	return e.addRiskVersion(issueID, in, func(tx *store.Tx) error {
		if !lifecycle.CanEvaluateResidualRisk(tx.Actions(), issueID) {
			return fmt.Errorf("issue %s: %w", issueID, domain.ErrResidualRiskNotEvaluable)
		}
		return nil
	})
}

func (e Engine) addRiskVersion(issueID string, in risk.Input, guard func(*store.Tx) error) (domain.RiskVersion, error) {
	if err := risk.ValidateLevel("severity", in.Severity); err != nil {
		return domain.RiskVersion{}, err
	}
	if err := risk.ValidateLevel("probability", in.Probability); err != nil {
		return domain.RiskVersion{}, err
	}
	var v domain.RiskVersion
	err := e.Store.Mutate(func(tx *store.Tx) error {
		issue, ok := tx.Issue(issueID)
		if !ok {
			return notFound("issue", issueID)
		}
		if issue.Type != domain.IssueRisk {
			return fmt.Errorf("%w: issue %s is an opportunity", domain.ErrValidation, issueID)
		}
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}
		var err error
		v, err = risk.NextVersion(issue.RiskVersions, in, e.newID(), e.timestamp())
		if err != nil {
			return err
		}
		tx.PutIssue(risk.Append(issue, v))
		return nil
	})
	if err != nil {
		return domain.RiskVersion{}, err
	}
	e.Metrics.IncRiskVersion(string(v.Trigger))
	e.logger().Info("risk version added",
		"issue_id", issueID, "version", v.VersionNumber, "trigger", v.Trigger, "priority", v.Priority)
	return v, nil
}

func (e Engine) LatestRiskVersion(issueID string) (domain.RiskVersion, bool) {
	issue, ok := e.Store.Issue(issueID)
	if !ok {
		return domain.RiskVersion{}, false
	}
	return risk.Latest(issue.RiskVersions)
}

// RiskHistory returns the versions of an issue oldest first.
func (e Engine) RiskHistory(issueID string) []domain.RiskVersion {
	issue, ok := e.Store.Issue(issueID)
	if !ok {
		return []domain.RiskVersion{}
	}
	return risk.Ordered(issue.RiskVersions)
}

func (e Engine) CanEvaluateResidualRisk(issueID string) bool {
	return lifecycle.CanEvaluateResidualRisk(e.Store.Actions(), issueID)
}
