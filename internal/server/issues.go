package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/risk"
)

type issuePath struct {
	IssueID string `path:"issue_id"`
}

func registerIssues(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-issue",
		Method:        http.MethodPost,
		Path:          "/issues",
		Summary:       "Record a risk or opportunity",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateIssueRequest `json:"body"`
	}) (*response[IssueResponse], error) {
		issue, err := e.CreateIssue(engine.IssueInput{
			ProcessID:     input.Body.ProcessID,
			Type:          domain.IssueType(input.Body.Type),
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			Severity:      input.Body.Severity,
			Probability:   input.Body.Probability,
			EvaluatorName: input.Body.EvaluatorName,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(issueResponse(issue))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/issues",
		Summary:     "List context issues",
	}, func(ctx context.Context, input *struct {
		ProcessID string `query:"process_id"`
	}) (*response[[]IssueResponse], error) {
		if input.ProcessID != "" {
			return reply(mapIssues(e.IssuesForProcess(input.ProcessID)))
		}
		return reply(mapIssues(e.Issues()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-issue",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}",
		Summary:     "Get context issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[IssueResponse], error) {
		issue, ok := e.Issue(input.IssueID)
		if !ok {
			return nil, issueNotFound(input.IssueID)
		}
		return reply(issueResponse(issue))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-risk-version",
		Method:        http.MethodPost,
		Path:          "/issues/{issue_id}/risk-versions",
		Summary:       "Append a risk evaluation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IssueID string             `path:"issue_id"`
		Body    RiskVersionRequest `json:"body"`
	}) (*response[domain.RiskVersion], error) {
		v, err := e.AddRiskVersion(input.IssueID, riskInput(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(v)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-risk-versions",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}/risk-versions",
		Summary:     "Risk history, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[[]domain.RiskVersion], error) {
		if _, ok := e.Issue(input.IssueID); !ok {
			return nil, issueNotFound(input.IssueID)
		}
		return reply(e.RiskHistory(input.IssueID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "latest-risk-version",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}/risk-versions/latest",
		Summary:     "Latest risk evaluation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[domain.RiskVersion], error) {
		v, ok := e.LatestRiskVersion(input.IssueID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "issue has no risk version", map[string]any{"issue_id": input.IssueID})
		}
		return reply(v)
	})

	huma.Register(api, huma.Operation{
		OperationID: "residual-risk-status",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}/residual-review",
		Summary:     "Whether residual risk can be evaluated",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[ResidualRiskStatusResponse], error) {
		if _, ok := e.Issue(input.IssueID); !ok {
			return nil, issueNotFound(input.IssueID)
		}
		return reply(ResidualRiskStatusResponse{
			IssueID:     input.IssueID,
			CanEvaluate: e.CanEvaluateResidualRisk(input.IssueID),
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "review-residual-risk",
		Method:        http.MethodPost,
		Path:          "/issues/{issue_id}/residual-review",
		Summary:       "Record a post-action residual risk evaluation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		IssueID string             `path:"issue_id"`
		Body    RiskVersionRequest `json:"body"`
	}) (*response[domain.RiskVersion], error) {
		v, err := e.ReviewResidualRisk(input.IssueID, riskInput(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(v)
	})

	huma.Register(api, huma.Operation{
		OperationID: "issue-controls",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}/controls",
		Summary:     "Implemented controls for an issue, most recently completed first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[[]ActionResponse], error) {
		if _, ok := e.Issue(input.IssueID); !ok {
			return nil, issueNotFound(input.IssueID)
		}
		return reply(mapActions(e.ImplementedControls(input.IssueID)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "issue-actions",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}/actions",
		Summary:     "Actions linked to an issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *issuePath) (*response[[]ActionResponse], error) {
		if _, ok := e.Issue(input.IssueID); !ok {
			return nil, issueNotFound(input.IssueID)
		}
		return reply(mapActions(e.ActionsForIssue(input.IssueID)))
	})
}

func riskInput(req RiskVersionRequest) risk.Input {
	return risk.Input{
		Severity:      req.Severity,
		Probability:   req.Probability,
		Description:   req.Description,
		Trigger:       domain.RiskTrigger(req.Trigger),
		EvaluatorName: req.EvaluatorName,
		Notes:         req.Notes,
	}
}

func issueNotFound(id string) huma.StatusError {
	return newAPIError(http.StatusNotFound, "not_found", "issue not found", map[string]any{"issue_id": id})
}
