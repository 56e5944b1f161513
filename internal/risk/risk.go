// Package risk scores severity and probability and maintains the
// append-only version log of a context issue.
package risk

import (
	"fmt"
	"slices"

	"qualityline/internal/domain"
)

const (
	PriorityUrgent   = "01"
	PriorityRequired = "02"
	PriorityOptional = "03"
)

// Input describes a new evaluation of an issue.
type Input struct {
	Severity      int
	Probability   int
	Description   string
	Trigger       domain.RiskTrigger
	EvaluatorName string
	Notes         string
}

func ValidateLevel(field string, v int) error {
	if v < 1 || v > 3 {
		return fmt.Errorf("%w: %s must be 1, 2 or 3 (got %d)", domain.ErrValidation, field, v)
	}
	return nil
}

func (in Input) Validate() error {
	if err := ValidateLevel("severity", in.Severity); err != nil {
		return err
	}
	if err := ValidateLevel("probability", in.Probability); err != nil {
		return err
	}
	switch in.Trigger {
	case domain.TriggerInitial, domain.TriggerPostActionReview:
		return nil
	}
	return fmt.Errorf("%w: invalid trigger %q", domain.ErrValidation, in.Trigger)
}

func Criticity(severity, probability int) int {
	return severity * probability
}

// Priority maps a criticity score to its urgency tier.
func Priority(criticity int) string {
	switch {
	case criticity >= 7:
		return PriorityUrgent
	case criticity >= 4:
		return PriorityRequired
	default:
		return PriorityOptional
	}
}

// DefaultTrigger is the trigger of an evaluation that names none: the first
// version of an issue is initial, every later one a post-action review.
func DefaultTrigger(history domain.Log[domain.RiskVersion]) domain.RiskTrigger {
	if history.Len() == 0 {
		return domain.TriggerInitial
	}
	return domain.TriggerPostActionReview
}

// NextVersion builds the version that follows history. It does not check
// whether a post-action review is allowed; that gate belongs to the caller.
func NextVersion(history domain.Log[domain.RiskVersion], in Input, id, date string) (domain.RiskVersion, error) {
	if in.Trigger == "" {
		in.Trigger = DefaultTrigger(history)
	}
	if err := in.Validate(); err != nil {
		return domain.RiskVersion{}, err
	}
	next := 1
	if latest, ok := Latest(history); ok {
		next = latest.VersionNumber + 1
	}
	c := Criticity(in.Severity, in.Probability)
	return domain.RiskVersion{
		ID:            id,
		VersionNumber: next,
		Date:          date,
		Trigger:       in.Trigger,
		Description:   in.Description,
		Severity:      in.Severity,
		Probability:   in.Probability,
		Criticity:     c,
		Priority:      Priority(c),
		EvaluatorName: in.EvaluatorName,
		Notes:         in.Notes,
	}, nil
}

// Latest picks the entry with the highest version number. Dates are not
// consulted because several versions may share a timestamp.
func Latest(history domain.Log[domain.RiskVersion]) (domain.RiskVersion, bool) {
	var (
		best  domain.RiskVersion
		found bool
	)
	for _, v := range history.Entries() {
		if !found || v.VersionNumber > best.VersionNumber {
			best = v
			found = true
		}
	}
	return best, found
}

// Ordered returns the history oldest to newest by version number.
func Ordered(history domain.Log[domain.RiskVersion]) []domain.RiskVersion {
	out := history.Entries()
	slices.SortStableFunc(out, func(a, b domain.RiskVersion) int {
		return a.VersionNumber - b.VersionNumber
	})
	return out
}

// Append adds v to the issue log and mirrors it in the current fields.
func Append(issue domain.ContextIssue, v domain.RiskVersion) domain.ContextIssue {
	issue.RiskVersions = issue.RiskVersions.Append(v)
	issue.Version = v.VersionNumber
	issue.RevisionDate = v.Date
	issue.Severity = v.Severity
	issue.Probability = v.Probability
	issue.Criticity = v.Criticity
	issue.Priority = v.Priority
	return issue
}
