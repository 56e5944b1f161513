package engine

import (
	"fmt"
	"slices"

	"qualityline/internal/domain"
	"qualityline/internal/fulfillment"
	"qualityline/internal/store"
)

const governanceActivityName = "Governance"

type ProcessInput struct {
	Name  string
	Type  string
	Owner string
}

// ProcessPatch is a partial process update. Nil fields are left untouched.
type ProcessPatch struct {
	Name  *string
	Type  *string
	Owner *string
}

func (e Engine) validateProcessType(t string) error {
	if err := required("type", t); err != nil {
		return err
	}
	if e.Config != nil && !e.Config.AllowsProcessType(t) {
		return fmt.Errorf("%w: process type %q not allowed (allowed: %v)", domain.ErrValidation, t, e.Config.ProcessTypes)
	}
	return nil
}

// CreateProcess registers a process with its governance activity and
// attaches the mandatory functions for its type.
func (e Engine) CreateProcess(in ProcessInput) (domain.Process, []domain.FunctionInstance, error) {
	if err := required("name", in.Name); err != nil {
		return domain.Process{}, nil, err
	}
	if err := e.validateProcessType(in.Type); err != nil {
		return domain.Process{}, nil, err
	}
	now := e.timestamp()
	p := domain.Process{
		ID:    e.newID(),
		Name:  in.Name,
		Type:  in.Type,
		Owner: in.Owner,
		Activities: []domain.Activity{{
			ID:         e.newID(),
			Name:       governanceActivityName,
			Governance: true,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	var created []domain.FunctionInstance
	err := e.Store.Mutate(func(tx *store.Tx) error {
		tx.PutProcess(p)
		created = e.syncFunctions(tx, p)
		return nil
	})
	if err != nil {
		return domain.Process{}, nil, err
	}
	e.logger().Info("process created", "process_id", p.ID, "type", p.Type, "functions_created", len(created))
	return p, created, nil
}

// UpdateProcess applies patch and re-runs the mandatory function sync, which
// matters when the process type changes.
func (e Engine) UpdateProcess(id string, patch ProcessPatch) (domain.Process, []domain.FunctionInstance, error) {
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return domain.Process{}, nil, err
		}
	}
	if patch.Type != nil {
		if err := e.validateProcessType(*patch.Type); err != nil {
			return domain.Process{}, nil, err
		}
	}
	var (
		p       domain.Process
		created []domain.FunctionInstance
	)
	err := e.Store.Mutate(func(tx *store.Tx) error {
		var ok bool
		p, ok = tx.Process(id)
		if !ok {
			return notFound("process", id)
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		if patch.Owner != nil {
			p.Owner = *patch.Owner
		}
		p.UpdatedAt = e.timestamp()
		tx.PutProcess(p)
		created = e.syncFunctions(tx, p)
		return nil
	})
	if err != nil {
		return domain.Process{}, nil, err
	}
	return p, created, nil
}

// SyncProcessFunctions attaches any missing mandatory function to the
// process. Unique functions already attached elsewhere are left alone.
func (e Engine) SyncProcessFunctions(processID string) ([]domain.FunctionInstance, error) {
	var created []domain.FunctionInstance
	err := e.Store.Mutate(func(tx *store.Tx) error {
		p, ok := tx.Process(processID)
		if !ok {
			return notFound("process", processID)
		}
		created = e.syncFunctions(tx, p)
		return nil
	})
	return created, err
}

func (e Engine) syncFunctions(tx *store.Tx, p domain.Process) []domain.FunctionInstance {
	var created []domain.FunctionInstance
	for _, fn := range e.Catalog.MandatoryFunctionsFor(p.Type) {
		switch fn.DuplicationRule {
		case domain.DuplicationUnique:
			if len(tx.InstancesOf(fn.ID)) > 0 {
				continue
			}
		default:
			if _, ok := tx.InstanceFor(fn.ID, p.ID); ok {
				continue
			}
		}
		fi := e.newInstance(fn, p.ID)
		tx.PutInstance(fi)
		created = append(created, fi)
	}
	return created
}

func (e Engine) Process(id string) (domain.Process, bool) {
	return e.Store.Process(id)
}

func (e Engine) Processes() []domain.Process {
	return e.Store.Processes()
}

func (e Engine) AddActivity(processID, name string) (domain.Activity, error) {
	if err := required("name", name); err != nil {
		return domain.Activity{}, err
	}
	act := domain.Activity{ID: e.newID(), Name: name, RequirementIDs: []string{}}
	err := e.Store.Mutate(func(tx *store.Tx) error {
		p, ok := tx.Process(processID)
		if !ok {
			return notFound("process", processID)
		}
		p.Activities = append(p.Activities, act)
		p.UpdatedAt = e.timestamp()
		tx.PutProcess(p)
		return nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return act, nil
}

// AllocateRequirement places a unique or duplicable requirement on an
// ordinary activity. A unique requirement already held by another activity
// is allocated anyway and reported in the log.
func (e Engine) AllocateRequirement(processID, activityID, requirementID string) (domain.Process, error) {
	req, ok := e.Catalog.Requirement(requirementID)
	if !ok {
		return domain.Process{}, notFound("requirement", requirementID)
	}
	if req.Type == domain.RequirementGeneric {
		return domain.Process{}, fmt.Errorf("%w: generic requirement %s is held by the governance activity", domain.ErrValidation, req.ID)
	}
	var p domain.Process
	err := e.Store.Mutate(func(tx *store.Tx) error {
		var ok bool
		p, ok = tx.Process(processID)
		if !ok {
			return notFound("process", processID)
		}
		idx := slices.IndexFunc(p.Activities, func(a domain.Activity) bool { return a.ID == activityID })
		if idx < 0 {
			return notFound("activity", activityID)
		}
		act := p.Activities[idx]
		if act.Governance {
			return fmt.Errorf("%w: cannot allocate to %s", domain.ErrGovernanceImmutable, act.ID)
		}
		if slices.Contains(act.RequirementIDs, req.ID) {
			return nil
		}
		if req.Type == domain.RequirementUnique {
			holders := fulfillment.UniqueAllocations(e.Catalog, tx.Processes())[req.ID]
			if len(holders) > 0 {
				e.logger().Warn("unique requirement allocated more than once",
					"requirement_id", req.ID, "activity_id", act.ID, "held_by", holders)
			}
		}
		act.RequirementIDs = append(act.RequirementIDs, req.ID)
		p.Activities[idx] = act
		p.UpdatedAt = e.timestamp()
		tx.PutProcess(p)
		return nil
	})
	if err != nil {
		return domain.Process{}, err
	}
	return p, nil
}

func (e Engine) DeallocateRequirement(processID, activityID, requirementID string) (domain.Process, error) {
	var p domain.Process
	err := e.Store.Mutate(func(tx *store.Tx) error {
		var ok bool
		p, ok = tx.Process(processID)
		if !ok {
			return notFound("process", processID)
		}
		idx := slices.IndexFunc(p.Activities, func(a domain.Activity) bool { return a.ID == activityID })
		if idx < 0 {
			return notFound("activity", activityID)
		}
		act := p.Activities[idx]
		if act.Governance {
			return fmt.Errorf("%w: generic requirements cannot be removed", domain.ErrGovernanceImmutable)
		}
		at := slices.Index(act.RequirementIDs, requirementID)
		if at < 0 {
			return notFound("allocation", requirementID)
		}
		act.RequirementIDs = slices.Delete(act.RequirementIDs, at, at+1)
		p.Activities[idx] = act
		p.UpdatedAt = e.timestamp()
		tx.PutProcess(p)
		return nil
	})
	if err != nil {
		return domain.Process{}, err
	}
	return p, nil
}

// AvailableRequirements lists what can still be allocated to an activity.
func (e Engine) AvailableRequirements(processID, activityID string) []domain.Requirement {
	var out []domain.Requirement
	_ = e.Store.View(func(tx *store.Tx) error {
		p, ok := tx.Process(processID)
		if !ok {
			return nil
		}
		out = fulfillment.Available(e.Catalog, tx.Processes(), p, activityID)
		return nil
	})
	return orEmpty(out)
}

func (e Engine) RequirementsForActivity(processID, activityID string) []domain.Requirement {
	p, ok := e.Store.Process(processID)
	if !ok {
		return []domain.Requirement{}
	}
	return fulfillment.RequirementsForActivity(e.Catalog, p, activityID)
}

func (e Engine) RequirementsOverview(processID string) (domain.RequirementsOverview, bool) {
	var (
		ov    domain.RequirementsOverview
		found bool
	)
	_ = e.Store.View(func(tx *store.Tx) error {
		p, ok := tx.Process(processID)
		if !ok {
			return nil
		}
		found = true
		ov = fulfillment.Overview(e.Catalog, p, snapshot(tx))
		return nil
	})
	return ov, found
}

func (e Engine) InferFulfillment(requirementID, processID string) (domain.Fulfillment, error) {
	req, ok := e.Catalog.Requirement(requirementID)
	if !ok {
		return domain.Fulfillment{}, notFound("requirement", requirementID)
	}
	return fulfillment.Infer(req, processID, e.Store.Snapshot()), nil
}

func (e Engine) InferFunctionFulfillment(functionID, processID string) (domain.Fulfillment, error) {
	fn, ok := e.Catalog.Function(functionID)
	if !ok {
		return domain.Fulfillment{}, notFound("function", functionID)
	}
	return fulfillment.InferFunction(fn, processID, e.Store.Snapshot()), nil
}

func snapshot(tx *store.Tx) fulfillment.Snapshot {
	return fulfillment.Snapshot{
		Documents: tx.Documents(),
		Issues:    tx.Issues(),
		Actions:   tx.Actions(),
	}
}
