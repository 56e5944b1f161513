package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/lifecycle"
)

type actionPath struct {
	ActionID string `path:"action_id"`
}

func registerActions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Plan an action",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateActionRequest `json:"body"`
	}) (*response[ActionResponse], error) {
		a, err := e.CreateAction(engine.ActionInput{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			ProcessID:      input.Body.ProcessID,
			Owner:          input.Body.Owner,
			Deadline:       input.Body.Deadline,
			LinkedIssueIDs: input.Body.LinkedIssueIDs,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(actionResponse(a))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List actions",
	}, func(ctx context.Context, input *struct {
		Overdue bool `query:"overdue" doc:"Only actions past their deadline and not yet completed"`
	}) (*response[[]ActionResponse], error) {
		if input.Overdue {
			return reply(mapActions(e.OverdueActions()))
		}
		return reply(mapActions(e.Actions()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-action",
		Method:      http.MethodGet,
		Path:        "/actions/{action_id}",
		Summary:     "Get action",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actionPath) (*response[ActionResponse], error) {
		a, ok := e.Action(input.ActionID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "action not found", map[string]any{"action_id": input.ActionID})
		}
		return reply(actionResponse(a))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-action",
		Method:      http.MethodPatch,
		Path:        "/actions/{action_id}",
		Summary:     "Update action",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActionID string              `path:"action_id"`
		Body     UpdateActionRequest `json:"body"`
	}) (*response[ActionResponse], error) {
		patch := lifecycle.Patch{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Owner:          input.Body.Owner,
			ProcessID:      input.Body.ProcessID,
			Deadline:       input.Body.Deadline,
			LinkedIssueIDs: input.Body.LinkedIssueIDs,
		}
		if input.Body.Status != nil {
			status := domain.ActionStatus(*input.Body.Status)
			patch.Status = &status
		}
		a, err := e.UpdateAction(input.ActionID, patch, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(actionResponse(a))
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-action",
		Method:      http.MethodPost,
		Path:        "/actions/{action_id}/complete",
		Summary:     "Mark action completed, pending evaluation",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActionID string                 `path:"action_id"`
		Body     *CompleteActionRequest `json:"body,omitempty" required:"false"`
	}) (*response[ActionResponse], error) {
		var note string
		if input.Body != nil {
			note = input.Body.Note
		}
		a, err := e.CompleteAction(input.ActionID, note)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(actionResponse(a))
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-action",
		Method:      http.MethodPost,
		Path:        "/actions/{action_id}/evaluation",
		Summary:     "Record efficiency evaluation",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActionID string                `path:"action_id"`
		Body     EvaluateActionRequest `json:"body"`
	}) (*response[ActionResponse], error) {
		a, err := e.EvaluateActionEfficiency(input.ActionID, lifecycle.EvaluationInput{
			Result:        domain.EfficiencyResult(input.Body.Result),
			Evidence:      input.Body.Evidence,
			EvidenceType:  input.Body.EvidenceType,
			EvaluatorName: input.Body.EvaluatorName,
			Notes:         input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(actionResponse(a))
	})
}
