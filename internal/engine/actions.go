package engine

import (
	"qualityline/internal/domain"
	"qualityline/internal/lifecycle"
	"qualityline/internal/store"
)

type ActionInput struct {
	Title          string
	Description    string
	ProcessID      string
	Owner          string
	Deadline       string
	LinkedIssueIDs []string
}

func (e Engine) CreateAction(in ActionInput) (domain.Action, error) {
	if err := required("title", in.Title); err != nil {
		return domain.Action{}, err
	}
	if err := required("deadline", in.Deadline); err != nil {
		return domain.Action{}, err
	}
	if _, err := lifecycle.ParseDate(in.Deadline); err != nil {
		return domain.Action{}, err
	}
	now := e.timestamp()
	a := domain.Action{
		ID:             e.newID(),
		Title:          in.Title,
		Description:    in.Description,
		ProcessID:      in.ProcessID,
		LinkedIssueIDs: appendUnique(nil, in.LinkedIssueIDs),
		Owner:          in.Owner,
		Deadline:       in.Deadline,
		Status:         domain.ActionPlanned,
		StatusHistory: domain.NewLog(domain.StatusChange{
			ToStatus: domain.ActionPlanned,
			Date:     now,
			Notes:    "created",
		}),
		Version:      1,
		RevisionDate: now,
		CreatedAt:    now,
	}
	err := e.Store.Mutate(func(tx *store.Tx) error {
		if err := checkActionRefs(tx, a.ProcessID, a.LinkedIssueIDs); err != nil {
			return err
		}
		tx.PutAction(a)
		return nil
	})
	if err != nil {
		return domain.Action{}, err
	}
	e.Metrics.IncActionTransition(string(domain.ActionPlanned))
	return a, nil
}

func checkActionRefs(tx *store.Tx, processID string, issueIDs []string) error {
	if _, ok := tx.Process(processID); !ok {
		return notFound("process", processID)
	}
	for _, id := range issueIDs {
		if _, ok := tx.Issue(id); !ok {
			return notFound("issue", id)
		}
	}
	return nil
}

// UpdateAction applies a partial update. Status changes follow the
// transition table; evaluated is only reachable through
// EvaluateActionEfficiency.
func (e Engine) UpdateAction(id string, patch lifecycle.Patch, note string) (domain.Action, error) {
	var (
		a    domain.Action
		from domain.ActionStatus
	)
	err := e.Store.Mutate(func(tx *store.Tx) error {
		current, ok := tx.Action(id)
		if !ok {
			return notFound("action", id)
		}
		from = current.Status
		processID, issueIDs := current.ProcessID, current.LinkedIssueIDs
		if patch.ProcessID != nil {
			processID = *patch.ProcessID
		}
		if patch.LinkedIssueIDs != nil {
			issueIDs = patch.LinkedIssueIDs
		}
		if err := checkActionRefs(tx, processID, issueIDs); err != nil {
			return err
		}
		var err error
		a, err = lifecycle.Apply(current, patch, note, e.timestamp())
		if err != nil {
			return err
		}
		tx.PutAction(a)
		return nil
	})
	if err != nil {
		return domain.Action{}, err
	}
	e.recordTransition(a, from)
	return a, nil
}

// CompleteAction moves an action to completed_pending_evaluation from any
// non-terminal status.
func (e Engine) CompleteAction(id, note string) (domain.Action, error) {
	return e.mutateAction(id, func(a domain.Action) (domain.Action, error) {
		return lifecycle.Complete(a, e.timestamp(), note)
	})
}

// EvaluateActionEfficiency records the single efficiency evaluation of a
// completed action and moves it to evaluated.
func (e Engine) EvaluateActionEfficiency(id string, in lifecycle.EvaluationInput) (domain.Action, error) {
	a, err := e.mutateAction(id, func(a domain.Action) (domain.Action, error) {
		return lifecycle.Evaluate(a, in, e.timestamp())
	})
	if err != nil {
		return domain.Action{}, err
	}
	e.Metrics.IncActionEvaluated(string(in.Result))
	e.logger().Info("action evaluated", "action_id", id, "result", in.Result)
	return a, nil
}

func (e Engine) mutateAction(id string, fn func(domain.Action) (domain.Action, error)) (domain.Action, error) {
	var (
		a    domain.Action
		from domain.ActionStatus
	)
	err := e.Store.Mutate(func(tx *store.Tx) error {
		current, ok := tx.Action(id)
		if !ok {
			return notFound("action", id)
		}
		from = current.Status
		var err error
		if a, err = fn(current); err != nil {
			return err
		}
		tx.PutAction(a)
		return nil
	})
	if err != nil {
		return domain.Action{}, err
	}
	e.recordTransition(a, from)
	return a, nil
}

func (e Engine) recordTransition(a domain.Action, from domain.ActionStatus) {
	if a.Status == from {
		return
	}
	e.Metrics.IncActionTransition(string(a.Status))
	e.logger().Info("action status changed", "action_id", a.ID, "from", from, "to", a.Status, "version", a.Version)
}

func (e Engine) Action(id string) (domain.Action, bool) {
	return e.Store.Action(id)
}

func (e Engine) Actions() []domain.Action {
	return e.Store.Actions()
}

func (e Engine) ActionsForIssue(issueID string) []domain.Action {
	out := []domain.Action{}
	for _, a := range e.Store.Actions() {
		if a.LinkedTo(issueID) {
			out = append(out, a)
		}
	}
	return out
}

// OverdueActions lists open actions whose deadline day is before today.
func (e Engine) OverdueActions() []domain.Action {
	return orEmpty(lifecycle.Overdue(e.Store.Actions(), e.now()))
}

// ImplementedControls lists the completed or evaluated actions of an issue,
// most recently completed first.
func (e Engine) ImplementedControls(issueID string) []domain.Action {
	return orEmpty(lifecycle.ImplementedControls(e.Store.Actions(), issueID))
}
