package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"qualityline/internal/compliance"
	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/report"
)

type functionPath struct {
	InstanceID string `path:"instance_id"`
}

func registerFunctions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ensure-function-instance",
		Method:      http.MethodPost,
		Path:        "/functions",
		Summary:     "Attach a standard function to a process",
		Description: "Returns the existing instance when the function is already attached.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body EnsureFunctionRequest `json:"body"`
	}) (*response[FunctionInstanceResponse], error) {
		fi, _, err := e.EnsureFunctionInstance(input.Body.FunctionID, input.Body.ProcessID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(functionInstanceResponse(fi))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-function-instances",
		Method:      http.MethodGet,
		Path:        "/functions",
		Summary:     "List function instances",
	}, func(ctx context.Context, input *struct {
		ProcessID string `query:"process_id"`
	}) (*response[[]FunctionInstanceResponse], error) {
		if input.ProcessID != "" {
			return reply(mapFunctionInstances(e.InstancesForProcess(input.ProcessID)))
		}
		return reply(mapFunctionInstances(e.FunctionInstances()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-function-instance",
		Method:      http.MethodGet,
		Path:        "/functions/{instance_id}",
		Summary:     "Get function instance",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *functionPath) (*response[FunctionInstanceResponse], error) {
		fi, ok := e.FunctionInstance(input.InstanceID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "function instance not found", map[string]any{"instance_id": input.InstanceID})
		}
		return reply(functionInstanceResponse(fi))
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-function-status",
		Method:      http.MethodPost,
		Path:        "/functions/{instance_id}/status",
		Summary:     "Set implementation status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		InstanceID string                   `path:"instance_id"`
		Body       SetFunctionStatusRequest `json:"body"`
	}) (*response[FunctionInstanceResponse], error) {
		fi, err := e.SetFunctionStatus(input.InstanceID, domain.InstanceStatus(input.Body.Status), input.Body.Notes)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(functionInstanceResponse(fi))
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-function-evidence",
		Method:      http.MethodPost,
		Path:        "/functions/{instance_id}/evidence",
		Summary:     "Attach evidence",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		InstanceID string             `path:"instance_id"`
		Body       AddEvidenceRequest `json:"body"`
	}) (*response[FunctionInstanceResponse], error) {
		fi, err := e.AddFunctionEvidence(input.InstanceID, engine.EvidenceInput{
			Kind:        input.Body.Kind,
			Reference:   input.Body.Reference,
			Description: input.Body.Description,
			AddedBy:     input.Body.AddedBy,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(functionInstanceResponse(fi))
	})

	huma.Register(api, huma.Operation{
		OperationID: "link-function-items",
		Method:      http.MethodPost,
		Path:        "/functions/{instance_id}/links",
		Summary:     "Link actions, objectives and KPIs",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		InstanceID string              `path:"instance_id"`
		Body       LinkFunctionRequest `json:"body"`
	}) (*response[FunctionInstanceResponse], error) {
		fi, err := e.LinkFunctionItems(input.InstanceID, engine.FunctionLinks{
			ActionIDs:    input.Body.ActionIDs,
			ObjectiveIDs: input.Body.ObjectiveIDs,
			KPIIDs:       input.Body.KPIIDs,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(functionInstanceResponse(fi))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-function-data",
		Method:      http.MethodPut,
		Path:        "/functions/{instance_id}/data",
		Summary:     "Replace function specific data",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		InstanceID string                    `path:"instance_id"`
		Body       UpdateFunctionDataRequest `json:"body"`
	}) (*response[FunctionInstanceResponse], error) {
		current, ok := e.FunctionInstance(input.InstanceID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "function instance not found", map[string]any{"instance_id": input.InstanceID})
		}
		raw, err := json.Marshal(input.Body.Data)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid data payload", nil)
		}
		data, err := domain.DecodeInstanceData(domain.DataKindFor(current.FunctionID), raw)
		if err != nil {
			return nil, handleError(err)
		}
		fi, err := e.UpdateFunctionData(input.InstanceID, data, input.Body.Notes)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(functionInstanceResponse(fi))
	})
}

type workbookOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func registerCompliance(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "compliance-overall",
		Method:      http.MethodGet,
		Path:        "/compliance",
		Summary:     "Overall compliance",
	}, func(ctx context.Context, _ *struct{}) (*response[domain.ComplianceMetrics], error) {
		return reply(e.ComplianceMetrics())
	})

	huma.Register(api, huma.Operation{
		OperationID: "compliance-by-category",
		Method:      http.MethodGet,
		Path:        "/compliance/categories",
		Summary:     "Compliance per function category",
	}, func(ctx context.Context, _ *struct{}) (*response[[]compliance.CategoryMetrics], error) {
		return reply(nonNilSlice(e.ComplianceByCategory()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "compliance-by-clause",
		Method:      http.MethodGet,
		Path:        "/compliance/clauses",
		Summary:     "Compliance per top-level clause",
	}, func(ctx context.Context, _ *struct{}) (*response[[]compliance.ClauseMetrics], error) {
		return reply(nonNilSlice(e.ComplianceByClause()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "compliance-export",
		Method:      http.MethodGet,
		Path:        "/compliance/export",
		Summary:     "Compliance workbook (xlsx)",
	}, func(ctx context.Context, _ *struct{}) (*workbookOutput, error) {
		var buf bytes.Buffer
		if err := report.Write(&buf, e); err != nil {
			return nil, handleError(err)
		}
		return &workbookOutput{
			ContentType:        report.ContentType,
			ContentDisposition: "attachment; filename=compliance.xlsx",
			Body:               buf.Bytes(),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "compliance-by-process",
		Method:      http.MethodGet,
		Path:        "/processes/{process_id}/compliance",
		Summary:     "Compliance of one process",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id"`
	}) (*response[domain.ComplianceMetrics], error) {
		if _, ok := e.Process(input.ProcessID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "process not found", map[string]any{"process_id": input.ProcessID})
		}
		return reply(e.ComplianceByProcess(input.ProcessID))
	})
}
