package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"qualityline/internal/domain"
	"qualityline/internal/engine"
)

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-requirements",
		Method:      http.MethodGet,
		Path:        "/catalog/requirements",
		Summary:     "List catalog requirements",
	}, func(ctx context.Context, input *struct {
		Type string `query:"type" enum:"generic,unique,duplicable"`
	}) (*response[[]domain.Requirement], error) {
		if input.Type != "" {
			return reply(nonNilSlice(e.Catalog.RequirementsOfType(domain.RequirementType(input.Type))))
		}
		return reply(e.Catalog.Requirements())
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-standard-functions",
		Method:      http.MethodGet,
		Path:        "/catalog/functions",
		Summary:     "List standard functions",
	}, func(ctx context.Context, input *struct {
		ProcessType string `query:"mandatory_for"`
	}) (*response[[]domain.StandardFunction], error) {
		if input.ProcessType != "" {
			return reply(nonNilSlice(e.Catalog.MandatoryFunctionsFor(input.ProcessType)))
		}
		return reply(e.Catalog.Functions())
	})
}

func registerProcesses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-process",
		Method:        http.MethodPost,
		Path:          "/processes",
		Summary:       "Create process",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateProcessRequest `json:"body"`
	}) (*response[ProcessWithFunctionsResponse], error) {
		p, created, err := e.CreateProcess(engine.ProcessInput{
			Name:  input.Body.Name,
			Type:  input.Body.Type,
			Owner: input.Body.Owner,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(ProcessWithFunctionsResponse{Process: p, FunctionsCreated: mapFunctionInstances(created)})
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/processes",
		Summary:     "List processes",
	}, func(ctx context.Context, _ *struct{}) (*response[[]domain.Process], error) {
		return reply(e.Processes())
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}",
		Summary:     "Get process",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id"`
	}) (*response[domain.Process], error) {
		p, ok := e.Process(input.ProcessID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "process not found", map[string]any{"process_id": input.ProcessID})
		}
		return reply(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-process",
		Method:      http.MethodPatch,
		Path:        "/processes/{process_id}",
		Summary:     "Update process",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string               `path:"process_id"`
		Body      UpdateProcessRequest `json:"body"`
	}) (*response[ProcessWithFunctionsResponse], error) {
		p, created, err := e.UpdateProcess(input.ProcessID, engine.ProcessPatch{
			Name:  input.Body.Name,
			Type:  input.Body.Type,
			Owner: input.Body.Owner,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(ProcessWithFunctionsResponse{Process: p, FunctionsCreated: mapFunctionInstances(created)})
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-process-functions",
		Method:      http.MethodPost,
		Path:        "/processes/{process_id}/sync",
		Summary:     "Attach missing mandatory functions",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id"`
	}) (*response[[]FunctionInstanceResponse], error) {
		created, err := e.SyncProcessFunctions(input.ProcessID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(mapFunctionInstances(created))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/processes/{process_id}/activities",
		Summary:       "Add activity",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string                `path:"process_id"`
		Body      CreateActivityRequest `json:"body"`
	}) (*response[domain.Activity], error) {
		act, err := e.AddActivity(input.ProcessID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(act)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activity-requirements",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/activities/{activity_id}/requirements",
		Summary:     "List requirements of an activity",
	}, func(ctx context.Context, input *struct {
		ProcessID  string `path:"process_id"`
		ActivityID string `path:"activity_id"`
	}) (*response[[]domain.Requirement], error) {
		return reply(nonNilSlice(e.RequirementsForActivity(input.ProcessID, input.ActivityID)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-available-requirements",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/activities/{activity_id}/available-requirements",
		Summary:     "List requirements that can still be allocated",
	}, func(ctx context.Context, input *struct {
		ProcessID  string `path:"process_id"`
		ActivityID string `path:"activity_id"`
	}) (*response[[]domain.Requirement], error) {
		return reply(e.AvailableRequirements(input.ProcessID, input.ActivityID))
	})

	type allocationInput struct {
		ProcessID     string `path:"process_id"`
		ActivityID    string `path:"activity_id"`
		RequirementID string `path:"requirement_id"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "allocate-requirement",
		Method:      http.MethodPut,
		Path:        "/processes/{process_id}/activities/{activity_id}/requirements/{requirement_id}",
		Summary:     "Allocate requirement to activity",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *allocationInput) (*response[domain.Process], error) {
		p, err := e.AllocateRequirement(input.ProcessID, input.ActivityID, input.RequirementID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "deallocate-requirement",
		Method:      http.MethodDelete,
		Path:        "/processes/{process_id}/activities/{activity_id}/requirements/{requirement_id}",
		Summary:     "Remove requirement from activity",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *allocationInput) (*response[domain.Process], error) {
		p, err := e.DeallocateRequirement(input.ProcessID, input.ActivityID, input.RequirementID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "requirements-overview",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/requirements-overview",
		Summary:     "Allocation and fulfillment overview",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id"`
	}) (*response[domain.RequirementsOverview], error) {
		ov, ok := e.RequirementsOverview(input.ProcessID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "process not found", map[string]any{"process_id": input.ProcessID})
		}
		return reply(ov)
	})

	huma.Register(api, huma.Operation{
		OperationID: "requirement-fulfillment",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/requirements/{requirement_id}/fulfillment",
		Summary:     "Infer requirement fulfillment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID     string `path:"process_id"`
		RequirementID string `path:"requirement_id"`
	}) (*response[domain.Fulfillment], error) {
		f, err := e.InferFulfillment(input.RequirementID, input.ProcessID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(f)
	})

	huma.Register(api, huma.Operation{
		OperationID: "function-fulfillment",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/functions/{function_id}/fulfillment",
		Summary:     "Infer standard function fulfillment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID  string `path:"process_id"`
		FunctionID string `path:"function_id"`
	}) (*response[domain.Fulfillment], error) {
		f, err := e.InferFunctionFulfillment(input.FunctionID, input.ProcessID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(f)
	})
}

func registerDocuments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-document",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Register evidence document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateDocumentRequest `json:"body"`
	}) (*response[domain.Document], error) {
		d, err := e.AddDocument(engine.DocumentInput{
			Title:               input.Body.Title,
			ProcessIDs:          input.Body.ProcessIDs,
			ISOClauseReferences: input.Body.ISOClauseReferences,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(d)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List documents",
	}, func(ctx context.Context, _ *struct{}) (*response[[]domain.Document], error) {
		return reply(e.Documents())
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-document",
		Method:        http.MethodDelete,
		Path:          "/documents/{document_id}",
		Summary:       "Remove document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*struct{}, error) {
		if err := e.RemoveDocument(input.DocumentID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
