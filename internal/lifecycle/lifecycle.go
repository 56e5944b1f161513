// Package lifecycle is the action state machine: allowed transitions,
// overdue detection and the residual-risk gate.
package lifecycle

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"qualityline/internal/domain"
)

const dateLayout = "2006-01-02"

// EnsureTransition validates a status change requested through a generic
// update. The move to evaluated is reserved for efficiency evaluation.
func EnsureTransition(from, to domain.ActionStatus) error {
	switch from {
	case domain.ActionPlanned:
		if to == domain.ActionInProgress || to == domain.ActionCancelled {
			return nil
		}
	case domain.ActionInProgress:
		if to == domain.ActionCompletedPendingEvaluation || to == domain.ActionCancelled {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}

func IsTerminal(s domain.ActionStatus) bool {
	return s == domain.ActionEvaluated || s == domain.ActionCancelled
}

// CanComplete reports whether completion may be forced from s.
func CanComplete(s domain.ActionStatus) bool {
	return !IsTerminal(s)
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns
// the UTC day it falls on.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrValidation, v)
	}
	return truncateDay(t.UTC()), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsOverdue is true when the deadline day is strictly before today and the
// action still awaits work. A deadline due today is not overdue.
func IsOverdue(a domain.Action, now time.Time) bool {
	switch a.Status {
	case domain.ActionEvaluated, domain.ActionCompletedPendingEvaluation, domain.ActionCancelled:
		return false
	}
	deadline, err := ParseDate(a.Deadline)
	if err != nil {
		return false
	}
	return deadline.Before(truncateDay(now.UTC()))
}

func Overdue(actions []domain.Action, now time.Time) []domain.Action {
	var out []domain.Action
	for _, a := range actions {
		if IsOverdue(a, now) {
			out = append(out, a)
		}
	}
	return out
}

// ImplementedControls lists actions linked to issueID that have been carried
// out, most recently completed first. Actions without a completion date sort last.
func ImplementedControls(actions []domain.Action, issueID string) []domain.Action {
	var out []domain.Action
	for _, a := range actions {
		if !a.LinkedTo(issueID) {
			continue
		}
		if a.Status == domain.ActionCompletedPendingEvaluation || a.Status == domain.ActionEvaluated {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Action) int {
		return completedKey(b).Compare(completedKey(a))
	})
	return out
}

func completedKey(a domain.Action) time.Time {
	if a.CompletedDate == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *a.CompletedDate)
	if err != nil {
		if d, derr := ParseDate(*a.CompletedDate); derr == nil {
			return d
		}
		return time.Time{}
	}
	return t
}

// CanEvaluateResidualRisk is true once any action addressing the issue has
// been evaluated.
func CanEvaluateResidualRisk(actions []domain.Action, issueID string) bool {
	for _, a := range actions {
		if a.Status == domain.ActionEvaluated && a.LinkedTo(issueID) {
			return true
		}
	}
	return false
}

// EvaluationInput is the outcome of an efficiency review.
type EvaluationInput struct {
	Result        domain.EfficiencyResult
	Evidence      string
	EvidenceType  string
	EvaluatorName string
	Notes         string
}

func (in EvaluationInput) Validate() error {
	switch in.Result {
	case domain.Effective, domain.Ineffective:
		return nil
	}
	return fmt.Errorf("%w: result must be effective or ineffective (got %q)", domain.ErrValidation, in.Result)
}

// Evaluate applies an efficiency evaluation to a completed action. It is the
// only path into the evaluated status and it runs at most once per action.
func Evaluate(a domain.Action, in EvaluationInput, date string) (domain.Action, error) {
	if err := in.Validate(); err != nil {
		return a, err
	}
	if a.EfficiencyEvaluation != nil || a.Status == domain.ActionEvaluated {
		return a, domain.ErrAlreadyEvaluated
	}
	if a.Status != domain.ActionCompletedPendingEvaluation {
		return a, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, a.Status, domain.ActionEvaluated)
	}
	a.EfficiencyEvaluation = &domain.EfficiencyEvaluation{
		Result:        in.Result,
		Evidence:      in.Evidence,
		EvidenceType:  in.EvidenceType,
		EvaluatorName: in.EvaluatorName,
		Notes:         in.Notes,
		Date:          date,
	}
	a.StatusHistory = a.StatusHistory.Append(domain.StatusChange{
		FromStatus: a.Status,
		ToStatus:   domain.ActionEvaluated,
		Date:       date,
		Notes:      in.Notes,
	})
	a.Status = domain.ActionEvaluated
	a.Version++
	a.RevisionDate = date
	return a, nil
}

// Complete forces an action into completed_pending_evaluation. The first
// completion date is kept when the action is completed again.
func Complete(a domain.Action, date, note string) (domain.Action, error) {
	if !CanComplete(a.Status) {
		return a, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, a.Status, domain.ActionCompletedPendingEvaluation)
	}
	if a.Status != domain.ActionCompletedPendingEvaluation {
		a.StatusHistory = a.StatusHistory.Append(domain.StatusChange{
			FromStatus: a.Status,
			ToStatus:   domain.ActionCompletedPendingEvaluation,
			Date:       date,
			Notes:      note,
		})
		a.Status = domain.ActionCompletedPendingEvaluation
	}
	if a.CompletedDate == nil {
		d := date
		a.CompletedDate = &d
	}
	a.Version++
	a.RevisionDate = date
	return a, nil
}

// Patch is a partial update of an action. Nil fields are left untouched.
type Patch struct {
	Title          *string
	Description    *string
	Owner          *string
	ProcessID      *string
	Deadline       *string
	LinkedIssueIDs []string
	Status         *domain.ActionStatus
}

// Apply performs a generic update. A status change is validated and
// recorded before the other fields; version and revision date move on
// every call.
func Apply(a domain.Action, p Patch, note, date string) (domain.Action, error) {
	if p.Deadline != nil {
		if _, err := ParseDate(*p.Deadline); err != nil {
			return a, err
		}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return a, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	if p.Status != nil && *p.Status != a.Status {
		if !p.Status.Valid() {
			return a, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *p.Status)
		}
		if err := EnsureTransition(a.Status, *p.Status); err != nil {
			return a, err
		}
		a.StatusHistory = a.StatusHistory.Append(domain.StatusChange{
			FromStatus: a.Status,
			ToStatus:   *p.Status,
			Date:       date,
			Notes:      note,
		})
		a.Status = *p.Status
		if a.Status == domain.ActionCompletedPendingEvaluation && a.CompletedDate == nil {
			d := date
			a.CompletedDate = &d
		}
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Owner != nil {
		a.Owner = *p.Owner
	}
	if p.ProcessID != nil {
		a.ProcessID = *p.ProcessID
	}
	if p.Deadline != nil {
		a.Deadline = *p.Deadline
	}
	if p.LinkedIssueIDs != nil {
		a.LinkedIssueIDs = slices.Clone(p.LinkedIssueIDs)
	}
	a.Version++
	a.RevisionDate = date
	return a, nil
}
