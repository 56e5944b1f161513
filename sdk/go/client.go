package qualitylinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Qualityline HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Process represents the API process model (partial).
type Process struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Owner      string     `json:"owner,omitempty"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Governance     bool     `json:"governance"`
	RequirementIDs []string `json:"requirement_ids,omitempty"`
}

// FunctionInstance is a standard function attached to a process.
type FunctionInstance struct {
	ID         string          `json:"id"`
	FunctionID string          `json:"function_id"`
	ProcessID  string          `json:"process_id"`
	Status     string          `json:"status"`
	DataKind   string          `json:"data_kind"`
	Data       json.RawMessage `json:"data"`
}

type RiskVersion struct {
	ID            string `json:"id"`
	VersionNumber int    `json:"version_number"`
	Date          string `json:"date"`
	Trigger       string `json:"trigger"`
	Severity      int    `json:"severity"`
	Probability   int    `json:"probability"`
	Criticity     int    `json:"criticity"`
	Priority      string `json:"priority"`
}

// Issue is a risk or opportunity with its evaluation history.
type Issue struct {
	ID           string        `json:"id"`
	ProcessID    string        `json:"process_id"`
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Criticity    int           `json:"criticity,omitempty"`
	Priority     string        `json:"priority,omitempty"`
	Version      int           `json:"version"`
	RiskVersions []RiskVersion `json:"risk_versions"`
}

// Action represents a planned corrective or preventive action (partial).
type Action struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	ProcessID      string   `json:"process_id"`
	LinkedIssueIDs []string `json:"linked_issue_ids"`
	Deadline       string   `json:"deadline"`
	Status         string   `json:"status"`
	CompletedDate  *string  `json:"completed_date,omitempty"`
	Version        int      `json:"version"`
}

type Evaluation struct {
	Result        string `json:"result"`
	Evidence      string `json:"evidence,omitempty"`
	EvidenceType  string `json:"evidence_type,omitempty"`
	EvaluatorName string `json:"evaluator_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type ComplianceMetrics struct {
	TotalFunctions              int `json:"total_functions"`
	ImplementedCount            int `json:"implemented_count"`
	PartiallyImplementedCount   int `json:"partially_implemented_count"`
	NotImplementedCount         int `json:"not_implemented_count"`
	NonconformityCount          int `json:"nonconformity_count"`
	ImprovementOpportunityCount int `json:"improvement_opportunity_count"`
	CompliancePercentage        int `json:"compliance_percentage"`
}

// Event represents a record store log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	Collection string `json:"collection"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsCode reports whether err is an APIError with the given envelope code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type processCreated struct {
	Process          Process            `json:"process"`
	FunctionsCreated []FunctionInstance `json:"functions_created"`
}

// CreateProcess creates a process and returns the function instances
// attached to it.
func (c *Client) CreateProcess(ctx context.Context, name, processType string) (Process, []FunctionInstance, error) {
	body := map[string]any{
		"name": name,
		"type": processType,
	}
	var resp processCreated
	err := c.do(ctx, http.MethodPost, "processes", body, &resp)
	return resp.Process, resp.FunctionsCreated, err
}

// CreateRisk records a scored risk.
func (c *Client) CreateRisk(ctx context.Context, processID, title string, severity, probability int) (Issue, error) {
	body := map[string]any{
		"process_id":  processID,
		"type":        "risk",
		"title":       title,
		"severity":    severity,
		"probability": probability,
	}
	var resp Issue
	err := c.do(ctx, http.MethodPost, "issues", body, &resp)
	return resp, err
}

// ReviewResidualRisk records the post-action evaluation of an issue.
func (c *Client) ReviewResidualRisk(ctx context.Context, issueID string, severity, probability int) (RiskVersion, error) {
	body := map[string]any{
		"severity":    severity,
		"probability": probability,
	}
	var resp RiskVersion
	err := c.do(ctx, http.MethodPost, path("issues", issueID, "residual-review"), body, &resp)
	return resp, err
}

// CreateAction plans an action. Deadline is YYYY-MM-DD.
func (c *Client) CreateAction(ctx context.Context, processID, title, deadline string, issueIDs ...string) (Action, error) {
	body := map[string]any{
		"process_id": processID,
		"title":      title,
		"deadline":   deadline,
	}
	if len(issueIDs) > 0 {
		body["linked_issue_ids"] = issueIDs
	}
	var resp Action
	err := c.do(ctx, http.MethodPost, "actions", body, &resp)
	return resp, err
}

// SetActionStatus moves an action along the transition table.
func (c *Client) SetActionStatus(ctx context.Context, actionID, status, note string) (Action, error) {
	body := map[string]any{"status": status, "note": note}
	var resp Action
	err := c.do(ctx, http.MethodPatch, path("actions", actionID), body, &resp)
	return resp, err
}

func (c *Client) CompleteAction(ctx context.Context, actionID, note string) (Action, error) {
	var resp Action
	err := c.do(ctx, http.MethodPost, path("actions", actionID, "complete"), map[string]any{"note": note}, &resp)
	return resp, err
}

func (c *Client) EvaluateAction(ctx context.Context, actionID string, ev Evaluation) (Action, error) {
	var resp Action
	err := c.do(ctx, http.MethodPost, path("actions", actionID, "evaluation"), ev, &resp)
	return resp, err
}

// OverdueActions lists actions past their deadline.
func (c *Client) OverdueActions(ctx context.Context) ([]Action, error) {
	var resp []Action
	err := c.do(ctx, http.MethodGet, "actions?overdue=true", nil, &resp)
	return resp, err
}

func (c *Client) SetFunctionStatus(ctx context.Context, instanceID, status, notes string) (FunctionInstance, error) {
	body := map[string]any{"status": status, "notes": notes}
	var resp FunctionInstance
	err := c.do(ctx, http.MethodPost, path("functions", instanceID, "status"), body, &resp)
	return resp, err
}

// Compliance returns the organization wide metrics.
func (c *Client) Compliance(ctx context.Context) (ComplianceMetrics, error) {
	var resp ComplianceMetrics
	err := c.do(ctx, http.MethodGet, "compliance", nil, &resp)
	return resp, err
}

func (c *Client) ProcessCompliance(ctx context.Context, processID string) (ComplianceMetrics, error) {
	var resp ComplianceMetrics
	err := c.do(ctx, http.MethodGet, path("processes", processID, "compliance"), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int, collection string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if collection != "" {
		q.Set("collection", collection)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}

func path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}
