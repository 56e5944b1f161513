package engine

import (
	"fmt"
	"slices"

	"qualityline/internal/domain"
	"qualityline/internal/store"
)

func (e Engine) newInstance(fn domain.StandardFunction, processID string) domain.FunctionInstance {
	now := e.timestamp()
	return domain.FunctionInstance{
		ID:                 e.newID(),
		FunctionID:         fn.ID,
		ProcessID:          processID,
		Status:             domain.NotImplemented,
		Data:               domain.NewInstanceData(fn.ID),
		LinkedActionIDs:    []string{},
		LinkedObjectiveIDs: []string{},
		LinkedKPIIDs:       []string{},
		History: domain.NewLog(domain.InstanceChange{
			Date:     now,
			Field:    "status",
			ToStatus: domain.NotImplemented,
			Notes:    "created",
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EnsureFunctionInstance returns the instance of a function for a process,
// creating it when the duplication rule allows. A unique function attached
// to another process yields ErrDuplicateInstance.
func (e Engine) EnsureFunctionInstance(functionID, processID string) (domain.FunctionInstance, bool, error) {
	fn, ok := e.Catalog.Function(functionID)
	if !ok {
		return domain.FunctionInstance{}, false, notFound("function", functionID)
	}
	var (
		fi      domain.FunctionInstance
		created bool
	)
	err := e.Store.Mutate(func(tx *store.Tx) error {
		p, ok := tx.Process(processID)
		if !ok {
			return notFound("process", processID)
		}
		if !fn.EligibleFor(p.Type) {
			return fmt.Errorf("%w: function %s is not eligible for %s processes", domain.ErrValidation, fn.ID, p.Type)
		}
		if existing, ok := tx.InstanceFor(fn.ID, p.ID); ok {
			fi = existing
			return nil
		}
		if fn.DuplicationRule == domain.DuplicationUnique {
			if others := tx.InstancesOf(fn.ID); len(others) > 0 {
				return fmt.Errorf("%w: %s is attached to process %s", domain.ErrDuplicateInstance, fn.ID, others[0].ProcessID)
			}
		}
		fi = e.newInstance(fn, p.ID)
		created = true
		tx.PutInstance(fi)
		return nil
	})
	if err != nil {
		return domain.FunctionInstance{}, false, err
	}
	if created {
		e.logger().Info("function instance created", "function_id", fn.ID, "process_id", processID, "instance_id", fi.ID)
	}
	return fi, created, nil
}

func (e Engine) FunctionInstance(id string) (domain.FunctionInstance, bool) {
	return e.Store.Instance(id)
}

func (e Engine) FunctionInstances() []domain.FunctionInstance {
	return e.Store.Instances()
}

func (e Engine) InstancesForProcess(processID string) []domain.FunctionInstance {
	out := []domain.FunctionInstance{}
	for _, fi := range e.Store.Instances() {
		if fi.ProcessID == processID {
			out = append(out, fi)
		}
	}
	return out
}

// updateInstance loads an instance, applies fn and stores the result with a
// fresh UpdatedAt.
func (e Engine) updateInstance(id string, fn func(fi *domain.FunctionInstance, tx *store.Tx) error) (domain.FunctionInstance, error) {
	var fi domain.FunctionInstance
	err := e.Store.Mutate(func(tx *store.Tx) error {
		var ok bool
		fi, ok = tx.Instance(id)
		if !ok {
			return notFound("function instance", id)
		}
		if err := fn(&fi, tx); err != nil {
			return err
		}
		fi.UpdatedAt = e.timestamp()
		tx.PutInstance(fi)
		return nil
	})
	if err != nil {
		return domain.FunctionInstance{}, err
	}
	return fi, nil
}

func (e Engine) SetFunctionStatus(id string, status domain.InstanceStatus, notes string) (domain.FunctionInstance, error) {
	if !status.Valid() {
		return domain.FunctionInstance{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	return e.updateInstance(id, func(fi *domain.FunctionInstance, _ *store.Tx) error {
		if fi.Status == status {
			return nil
		}
		fi.History = fi.History.Append(domain.InstanceChange{
			Date:       e.timestamp(),
			Field:      "status",
			FromStatus: fi.Status,
			ToStatus:   status,
			Notes:      notes,
		})
		fi.Status = status
		return nil
	})
}

type EvidenceInput struct {
	Kind        string
	Reference   string
	Description string
	AddedBy     string
}

func (e Engine) AddFunctionEvidence(id string, in EvidenceInput) (domain.FunctionInstance, error) {
	if err := required("kind", in.Kind); err != nil {
		return domain.FunctionInstance{}, err
	}
	if err := required("reference", in.Reference); err != nil {
		return domain.FunctionInstance{}, err
	}
	return e.updateInstance(id, func(fi *domain.FunctionInstance, _ *store.Tx) error {
		fi.Evidence = fi.Evidence.Append(domain.EvidenceItem{
			ID:          e.newID(),
			Kind:        in.Kind,
			Reference:   in.Reference,
			Description: in.Description,
			AddedBy:     in.AddedBy,
			Date:        e.timestamp(),
		})
		return nil
	})
}

// FunctionLinks are appended to an instance; ids already linked are skipped.
type FunctionLinks struct {
	ActionIDs    []string
	ObjectiveIDs []string
	KPIIDs       []string
}

func (e Engine) LinkFunctionItems(id string, links FunctionLinks) (domain.FunctionInstance, error) {
	return e.updateInstance(id, func(fi *domain.FunctionInstance, tx *store.Tx) error {
		for _, actionID := range links.ActionIDs {
			if _, ok := tx.Action(actionID); !ok {
				return notFound("action", actionID)
			}
		}
		fi.LinkedActionIDs = appendUnique(fi.LinkedActionIDs, links.ActionIDs)
		fi.LinkedObjectiveIDs = appendUnique(fi.LinkedObjectiveIDs, links.ObjectiveIDs)
		fi.LinkedKPIIDs = appendUnique(fi.LinkedKPIIDs, links.KPIIDs)
		return nil
	})
}

// UpdateFunctionData replaces the payload. Its shape must match the one the
// function defines.
func (e Engine) UpdateFunctionData(id string, data domain.InstanceData, notes string) (domain.FunctionInstance, error) {
	if data == nil {
		return domain.FunctionInstance{}, fmt.Errorf("%w: data is required", domain.ErrValidation)
	}
	return e.updateInstance(id, func(fi *domain.FunctionInstance, _ *store.Tx) error {
		if want := domain.DataKindFor(fi.FunctionID); data.DataKind() != want {
			return fmt.Errorf("%w: function %s takes %s data, got %s", domain.ErrValidation, fi.FunctionID, want, data.DataKind())
		}
		fi.Data = data
		fi.History = fi.History.Append(domain.InstanceChange{
			Date:  e.timestamp(),
			Field: "data",
			Notes: notes,
		})
		return nil
	})
}

func appendUnique(dst, src []string) []string {
	out := slices.Clone(dst)
	if out == nil {
		out = []string{}
	}
	for _, v := range src {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
