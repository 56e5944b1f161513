package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualityline/internal/domain"
	"qualityline/internal/lifecycle"
)

const stamp = "2024-03-10T09:00:00Z"

func newAction(status domain.ActionStatus) domain.Action {
	return domain.Action{
		ID:             "a1",
		Title:          "Fix calibration",
		ProcessID:      "p1",
		LinkedIssueIDs: []string{"i1"},
		Deadline:       "2024-03-01",
		Status:         status,
		StatusHistory:  domain.NewLog(domain.StatusChange{ToStatus: status, Date: stamp}),
		Version:        1,
		RevisionDate:   stamp,
	}
}

func TestEnsureTransition(t *testing.T) {
	allowed := map[domain.ActionStatus][]domain.ActionStatus{
		domain.ActionPlanned:    {domain.ActionInProgress, domain.ActionCancelled},
		domain.ActionInProgress: {domain.ActionCompletedPendingEvaluation, domain.ActionCancelled},
	}
	all := []domain.ActionStatus{
		domain.ActionPlanned, domain.ActionInProgress, domain.ActionCompletedPendingEvaluation,
		domain.ActionEvaluated, domain.ActionCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			err := lifecycle.EnsureTransition(from, to)
			ok := false
			for _, a := range allowed[from] {
				if a == to {
					ok = true
				}
			}
			if ok {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestApplyRecordsStatusChangeAndBumpsVersion(t *testing.T) {
	a := newAction(domain.ActionPlanned)
	status := domain.ActionInProgress
	next, err := lifecycle.Apply(a, lifecycle.Patch{Status: &status}, "kick-off", "2024-03-11T00:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionInProgress, next.Status)
	assert.Equal(t, 2, next.StatusHistory.Len())
	last, _ := next.StatusHistory.Last()
	assert.Equal(t, domain.ActionPlanned, last.FromStatus)
	assert.Equal(t, domain.ActionInProgress, last.ToStatus)
	assert.Equal(t, "kick-off", last.Notes)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, 1, a.StatusHistory.Len(), "original untouched")

	title := "Recalibrate gauges"
	again, err := lifecycle.Apply(next, lifecycle.Patch{Title: &title}, "", "2024-03-12T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Version, "version moves without a status change")
	assert.Equal(t, 2, again.StatusHistory.Len())
	assert.Equal(t, "2024-03-12T00:00:00Z", again.RevisionDate)
}

func TestApplyCannotReachEvaluated(t *testing.T) {
	a := newAction(domain.ActionCompletedPendingEvaluation)
	status := domain.ActionEvaluated
	_, err := lifecycle.Apply(a, lifecycle.Patch{Status: &status}, "", stamp)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestApplyRejectsBadDeadline(t *testing.T) {
	a := newAction(domain.ActionPlanned)
	bad := "next tuesday"
	_, err := lifecycle.Apply(a, lifecycle.Patch{Deadline: &bad}, "", stamp)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompleteKeepsFirstCompletionDate(t *testing.T) {
	a := newAction(domain.ActionInProgress)
	done, err := lifecycle.Complete(a, "2024-03-10T00:00:00Z", "")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, domain.ActionCompletedPendingEvaluation, done.Status)

	again, err := lifecycle.Complete(done, "2024-04-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10T00:00:00Z", *again.CompletedDate)
	assert.Equal(t, done.StatusHistory.Len(), again.StatusHistory.Len())

	_, err = lifecycle.Complete(newAction(domain.ActionCancelled), stamp, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEvaluateIsSingleShot(t *testing.T) {
	a := newAction(domain.ActionCompletedPendingEvaluation)
	in := lifecycle.EvaluationInput{Result: domain.Effective, EvaluatorName: "QA"}

	evaluated, err := lifecycle.Evaluate(a, in, stamp)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionEvaluated, evaluated.Status)
	require.NotNil(t, evaluated.EfficiencyEvaluation)
	assert.Equal(t, domain.Effective, evaluated.EfficiencyEvaluation.Result)
	assert.Equal(t, a.StatusHistory.Len()+1, evaluated.StatusHistory.Len())
	assert.Equal(t, a.Version+1, evaluated.Version)

	_, err = lifecycle.Evaluate(evaluated, in, stamp)
	assert.ErrorIs(t, err, domain.ErrAlreadyEvaluated)

	_, err = lifecycle.Evaluate(newAction(domain.ActionInProgress), in, stamp)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = lifecycle.Evaluate(a, lifecycle.EvaluationInput{Result: "meh"}, stamp)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	mk := func(id string, status domain.ActionStatus, deadline string) domain.Action {
		a := newAction(status)
		a.ID = id
		a.Deadline = deadline
		return a
	}
	actions := []domain.Action{
		mk("late", domain.ActionPlanned, "2024-03-09"),
		mk("today", domain.ActionInProgress, "2024-03-10"),
		mk("late-rfc", domain.ActionInProgress, "2024-03-01T12:00:00Z"),
		mk("done", domain.ActionCompletedPendingEvaluation, "2024-01-01"),
		mk("evaluated", domain.ActionEvaluated, "2024-01-01"),
		mk("cancelled", domain.ActionCancelled, "2024-01-01"),
		mk("no-deadline", domain.ActionPlanned, ""),
	}
	var ids []string
	for _, a := range lifecycle.Overdue(actions, now) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"late", "late-rfc"}, ids)
}

func TestImplementedControlsOrdering(t *testing.T) {
	date := func(s string) *string { return &s }
	mk := func(id string, status domain.ActionStatus, completed *string, issues ...string) domain.Action {
		a := newAction(status)
		a.ID = id
		a.CompletedDate = completed
		a.LinkedIssueIDs = issues
		return a
	}
	actions := []domain.Action{
		mk("old", domain.ActionEvaluated, date("2024-01-01T00:00:00Z"), "i1"),
		mk("undated", domain.ActionCompletedPendingEvaluation, nil, "i1"),
		mk("new", domain.ActionCompletedPendingEvaluation, date("2024-02-01T00:00:00Z"), "i1", "i2"),
		mk("open", domain.ActionInProgress, nil, "i1"),
		mk("other", domain.ActionEvaluated, date("2024-03-01T00:00:00Z"), "i9"),
	}
	var ids []string
	for _, a := range lifecycle.ImplementedControls(actions, "i1") {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"new", "old", "undated"}, ids)
}

func TestCanEvaluateResidualRisk(t *testing.T) {
	pending := newAction(domain.ActionCompletedPendingEvaluation)
	assert.False(t, lifecycle.CanEvaluateResidualRisk([]domain.Action{pending}, "i1"))

	evaluated := newAction(domain.ActionEvaluated)
	assert.True(t, lifecycle.CanEvaluateResidualRisk([]domain.Action{pending, evaluated}, "i1"))
	assert.False(t, lifecycle.CanEvaluateResidualRisk([]domain.Action{evaluated}, "i2"))
}
