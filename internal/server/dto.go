package server

import (
	"qualityline/internal/domain"
)

// Request payloads

type CreateProcessRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
}

type UpdateProcessRequest struct {
	Name  *string `json:"name,omitempty"`
	Type  *string `json:"type,omitempty"`
	Owner *string `json:"owner,omitempty"`
}

type CreateActivityRequest struct {
	Name string `json:"name"`
}

type CreateDocumentRequest struct {
	Title               string   `json:"title"`
	ProcessIDs          []string `json:"process_ids"`
	ISOClauseReferences []string `json:"iso_clause_references,omitempty"`
}

type CreateIssueRequest struct {
	ProcessID     string `json:"process_id"`
	Type          string `json:"type" enum:"risk,opportunity"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Severity      int    `json:"severity,omitempty" minimum:"0" maximum:"3"`
	Probability   int    `json:"probability,omitempty" minimum:"0" maximum:"3"`
	EvaluatorName string `json:"evaluator_name,omitempty"`
}

type RiskVersionRequest struct {
	Severity      int    `json:"severity" minimum:"1" maximum:"3"`
	Probability   int    `json:"probability" minimum:"1" maximum:"3"`
	Description   string `json:"description,omitempty"`
	Trigger       string `json:"trigger,omitempty" enum:"initial,post_action_review" doc:"Defaults to initial for an unscored issue, post_action_review otherwise"`
	EvaluatorName string `json:"evaluator_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type CreateActionRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	ProcessID      string   `json:"process_id"`
	Owner          string   `json:"owner,omitempty"`
	Deadline       string   `json:"deadline" example:"2024-06-30"`
	LinkedIssueIDs []string `json:"linked_issue_ids,omitempty"`
}

type UpdateActionRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Owner          *string  `json:"owner,omitempty"`
	ProcessID      *string  `json:"process_id,omitempty"`
	Deadline       *string  `json:"deadline,omitempty"`
	LinkedIssueIDs []string `json:"linked_issue_ids,omitempty"`
	Status         *string  `json:"status,omitempty" enum:"planned,in_progress,completed_pending_evaluation,evaluated,cancelled"`
	Note           string   `json:"note,omitempty"`
}

type CompleteActionRequest struct {
	Note string `json:"note,omitempty"`
}

type EvaluateActionRequest struct {
	Result        string `json:"result" enum:"effective,ineffective"`
	Evidence      string `json:"evidence,omitempty"`
	EvidenceType  string `json:"evidence_type,omitempty"`
	EvaluatorName string `json:"evaluator_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type EnsureFunctionRequest struct {
	FunctionID string `json:"function_id"`
	ProcessID  string `json:"process_id"`
}

type SetFunctionStatusRequest struct {
	Status string `json:"status" enum:"not_implemented,partially_implemented,implemented,nonconformity,improvement_opportunity"`
	Notes  string `json:"notes,omitempty"`
}

type AddEvidenceRequest struct {
	Kind        string `json:"kind"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	AddedBy     string `json:"added_by,omitempty"`
}

type LinkFunctionRequest struct {
	ActionIDs    []string `json:"action_ids,omitempty"`
	ObjectiveIDs []string `json:"objective_ids,omitempty"`
	KPIIDs       []string `json:"kpi_ids,omitempty"`
}

type UpdateFunctionDataRequest struct {
	Data  map[string]any `json:"data"`
	Notes string         `json:"notes,omitempty"`
}

// Response payloads

type ProcessWithFunctionsResponse struct {
	Process          domain.Process             `json:"process"`
	FunctionsCreated []FunctionInstanceResponse `json:"functions_created"`
}

type IssueResponse struct {
	ID           string               `json:"id"`
	ProcessID    string               `json:"process_id"`
	Type         domain.IssueType     `json:"type"`
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Severity     int                  `json:"severity,omitempty"`
	Probability  int                  `json:"probability,omitempty"`
	Criticity    int                  `json:"criticity,omitempty"`
	Priority     string               `json:"priority,omitempty"`
	Version      int                  `json:"version"`
	RevisionDate string               `json:"revision_date,omitempty"`
	RiskVersions []domain.RiskVersion `json:"risk_versions"`
	CreatedAt    string               `json:"created_at" format:"date-time"`
}

type ActionResponse struct {
	ID                   string                       `json:"id"`
	Title                string                       `json:"title"`
	Description          string                       `json:"description,omitempty"`
	ProcessID            string                       `json:"process_id"`
	LinkedIssueIDs       []string                     `json:"linked_issue_ids"`
	Owner                string                       `json:"owner,omitempty"`
	Deadline             string                       `json:"deadline"`
	Status               domain.ActionStatus          `json:"status"`
	StatusHistory        []domain.StatusChange        `json:"status_history"`
	CompletedDate        *string                      `json:"completed_date,omitempty"`
	EfficiencyEvaluation *domain.EfficiencyEvaluation `json:"efficiency_evaluation,omitempty"`
	Version              int                          `json:"version"`
	RevisionDate         string                       `json:"revision_date"`
	CreatedAt            string                       `json:"created_at" format:"date-time"`
}

type FunctionInstanceResponse struct {
	ID                 string                  `json:"id"`
	FunctionID         string                  `json:"function_id"`
	ProcessID          string                  `json:"process_id"`
	Status             domain.InstanceStatus   `json:"status"`
	DataKind           string                  `json:"data_kind" enum:"policy,objectives,generic"`
	Data               any                     `json:"data"`
	LinkedActionIDs    []string                `json:"linked_action_ids"`
	LinkedObjectiveIDs []string                `json:"linked_objective_ids"`
	LinkedKPIIDs       []string                `json:"linked_kpi_ids"`
	Evidence           []domain.EvidenceItem   `json:"evidence"`
	History            []domain.InstanceChange `json:"history"`
	CreatedAt          string                  `json:"created_at" format:"date-time"`
	UpdatedAt          string                  `json:"updated_at" format:"date-time"`
}

type ResidualRiskStatusResponse struct {
	IssueID     string `json:"issue_id"`
	CanEvaluate bool   `json:"can_evaluate"`
}

// Mapping helpers

func issueResponse(i domain.ContextIssue) IssueResponse {
	return IssueResponse{
		ID:           i.ID,
		ProcessID:    i.ProcessID,
		Type:         i.Type,
		Title:        i.Title,
		Description:  i.Description,
		Severity:     i.Severity,
		Probability:  i.Probability,
		Criticity:    i.Criticity,
		Priority:     i.Priority,
		Version:      i.Version,
		RevisionDate: i.RevisionDate,
		RiskVersions: i.RiskVersions.Entries(),
		CreatedAt:    i.CreatedAt,
	}
}

func actionResponse(a domain.Action) ActionResponse {
	linked := a.LinkedIssueIDs
	if linked == nil {
		linked = []string{}
	}
	return ActionResponse{
		ID:                   a.ID,
		Title:                a.Title,
		Description:          a.Description,
		ProcessID:            a.ProcessID,
		LinkedIssueIDs:       linked,
		Owner:                a.Owner,
		Deadline:             a.Deadline,
		Status:               a.Status,
		StatusHistory:        a.StatusHistory.Entries(),
		CompletedDate:        a.CompletedDate,
		EfficiencyEvaluation: a.EfficiencyEvaluation,
		Version:              a.Version,
		RevisionDate:         a.RevisionDate,
		CreatedAt:            a.CreatedAt,
	}
}

func functionInstanceResponse(fi domain.FunctionInstance) FunctionInstanceResponse {
	data := fi.Data
	if data == nil {
		data = domain.NewInstanceData(fi.FunctionID)
	}
	return FunctionInstanceResponse{
		ID:                 fi.ID,
		FunctionID:         fi.FunctionID,
		ProcessID:          fi.ProcessID,
		Status:             fi.Status,
		DataKind:           data.DataKind(),
		Data:               data,
		LinkedActionIDs:    nonNil(fi.LinkedActionIDs),
		LinkedObjectiveIDs: nonNil(fi.LinkedObjectiveIDs),
		LinkedKPIIDs:       nonNil(fi.LinkedKPIIDs),
		Evidence:           fi.Evidence.Entries(),
		History:            fi.History.Entries(),
		CreatedAt:          fi.CreatedAt,
		UpdatedAt:          fi.UpdatedAt,
	}
}

func mapIssues(items []domain.ContextIssue) []IssueResponse {
	out := make([]IssueResponse, 0, len(items))
	for _, i := range items {
		out = append(out, issueResponse(i))
	}
	return out
}

func mapActions(items []domain.Action) []ActionResponse {
	out := make([]ActionResponse, 0, len(items))
	for _, a := range items {
		out = append(out, actionResponse(a))
	}
	return out
}

func mapFunctionInstances(items []domain.FunctionInstance) []FunctionInstanceResponse {
	out := make([]FunctionInstanceResponse, 0, len(items))
	for _, fi := range items {
		out = append(out, functionInstanceResponse(fi))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
