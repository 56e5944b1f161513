package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qualityline/internal/app"
	"qualityline/internal/config"
	"qualityline/internal/domain"
	"qualityline/internal/events"
	"qualityline/internal/report"
)

type envelope struct {
	Error apiErrorBody `json:"error"`
}

func newTestServer(t *testing.T, persistent bool) (*httptest.Server, *app.Session) {
	t.Helper()
	ctx := context.Background()
	opts := app.Options{LogOutput: io.Discard}
	if persistent {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(config.Path(dir), []byte(config.GenerateDefault("org-test")), 0o644))
		opts.Workspace = dir
	} else {
		opts.Config = config.Default("org-test")
		opts.Ephemeral = true
	}
	sess, err := app.Open(ctx, opts)
	require.NoError(t, err)

	cfg := Config{Engine: sess.Engine, BasePath: "/v0", Logger: sess.Logger, Registry: sess.Registry}
	if persistent {
		cfg.Events = sess
	}
	handler, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		_ = sess.Close(ctx)
	})
	return srv, sess
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func requireError(t *testing.T, res *http.Response, data []byte, status int, code string) {
	t.Helper()
	require.Equal(t, status, res.StatusCode, string(data))
	env := decode[envelope](t, data)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Error.Message)
}

func createProcess(t *testing.T, srv *httptest.Server, name, typ string) ProcessWithFunctionsResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/processes", map[string]any{
		"name": name,
		"type": typ,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	return decode[ProcessWithFunctionsResponse](t, data)
}

func TestActionLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, false)
	client := srv.Client()
	proc := createProcess(t, srv, "Production", "operational")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", map[string]any{
		"process_id":  proc.Process.ID,
		"type":        "risk",
		"title":       "Machine breakdown",
		"severity":    3,
		"probability": 2,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	issue := decode[IssueResponse](t, data)
	assert.Equal(t, 6, issue.Criticity)
	require.Len(t, issue.RiskVersions, 1)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{
		"title":            "Preventive maintenance",
		"process_id":       proc.Process.ID,
		"deadline":         "2099-01-31",
		"linked_issue_ids": []string{issue.ID},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	action := decode[ActionResponse](t, data)
	assert.Equal(t, domain.ActionPlanned, action.Status)

	review := map[string]any{"severity": 1, "probability": 1}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues/"+issue.ID+"/residual-review", review)
	requireError(t, res, data, http.StatusUnprocessableEntity, "residual_risk_not_evaluable")

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/actions/"+action.ID, map[string]any{"status": "evaluated"})
	requireError(t, res, data, http.StatusConflict, "invalid_transition")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions/"+action.ID+"/complete", map[string]any{"note": "done"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	action = decode[ActionResponse](t, data)
	assert.Equal(t, domain.ActionCompletedPendingEvaluation, action.Status)
	require.NotNil(t, action.CompletedDate)

	evaluation := map[string]any{"result": "effective", "evaluator_name": "QA"}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions/"+action.ID+"/evaluation", evaluation)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	action = decode[ActionResponse](t, data)
	assert.Equal(t, domain.ActionEvaluated, action.Status)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions/"+action.ID+"/evaluation", evaluation)
	requireError(t, res, data, http.StatusConflict, "already_evaluated")

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+issue.ID+"/residual-review", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.True(t, decode[ResidualRiskStatusResponse](t, data).CanEvaluate)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues/"+issue.ID+"/residual-review", review)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	v := decode[domain.RiskVersion](t, data)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, domain.TriggerPostActionReview, v.Trigger)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+issue.ID+"/controls", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Len(t, decode[[]ActionResponse](t, data), 1)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+issue.ID+"/risk-versions/latest", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, 2, decode[domain.RiskVersion](t, data).VersionNumber)
}

func TestRiskVersionsOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, false)
	client := srv.Client()
	proc := createProcess(t, srv, "Purchasing", "operational")

	createIssue := func(body map[string]any) IssueResponse {
		body["process_id"] = proc.Process.ID
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", body)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
		return decode[IssueResponse](t, data)
	}
	riskIssue := createIssue(map[string]any{"type": "risk", "title": "Single supplier", "severity": 2, "probability": 2})
	opp := createIssue(map[string]any{"type": "opportunity", "title": "Second supplier"})

	score := map[string]any{"severity": 3, "probability": 1}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues/"+riskIssue.ID+"/risk-versions", score)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	v := decode[domain.RiskVersion](t, data)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, domain.TriggerPostActionReview, v.Trigger, "only the creation version is initial")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues/"+opp.ID+"/risk-versions", score)
	requireError(t, res, data, http.StatusBadRequest, "bad_request")

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+opp.ID+"/risk-versions", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[[]domain.RiskVersion](t, data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+opp.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[IssueResponse](t, data).Priority)
}

func TestErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, false)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/processes/missing", nil)
	requireError(t, res, data, http.StatusNotFound, "not_found")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/processes", map[string]any{"name": "X", "type": "unknown"})
	requireError(t, res, data, http.StatusBadRequest, "bad_request")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/processes", map[string]any{"type": "support"})
	requireError(t, res, data, http.StatusBadRequest, "bad_request")

	proc := createProcess(t, srv, "Management review", "management")
	gov, ok := proc.Process.GovernanceActivity()
	require.True(t, ok)
	res, data = doJSON(t, client, http.MethodPut,
		srv.URL+"/v0/processes/"+proc.Process.ID+"/activities/"+gov.ID+"/requirements/req-8.4", nil)
	requireError(t, res, data, http.StatusConflict, "governance_immutable")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{
		"title":      "Bad deadline",
		"process_id": proc.Process.ID,
		"deadline":   "31/01/2099",
	})
	requireError(t, res, data, http.StatusBadRequest, "bad_request")
}

func TestAllocationAndFulfillment(t *testing.T) {
	srv, _ := newTestServer(t, false)
	client := srv.Client()
	proc := createProcess(t, srv, "Purchasing", "operational")
	base := srv.URL + "/v0/processes/" + proc.Process.ID

	res, data := doJSON(t, client, http.MethodPost, base+"/activities", map[string]any{"name": "Select suppliers"})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	act := decode[domain.Activity](t, data)

	res, data = doJSON(t, client, http.MethodPut, base+"/activities/"+act.ID+"/requirements/req-8.4", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, base+"/activities/"+act.ID+"/available-requirements", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	for _, r := range decode[[]domain.Requirement](t, data) {
		assert.NotEqual(t, "req-8.4", r.ID)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/requirements/req-8.4/fulfillment", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, domain.NotSatisfied, decode[domain.Fulfillment](t, data).State)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents", map[string]any{
		"title":                 "Supplier procedure",
		"process_ids":           []string{proc.Process.ID},
		"iso_clause_references": []string{"8.4"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	doc := decode[domain.Document](t, data)

	res, data = doJSON(t, client, http.MethodGet, base+"/requirements/req-8.4/fulfillment", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	f := decode[domain.Fulfillment](t, data)
	assert.Equal(t, domain.Satisfied, f.State)
	require.Len(t, f.InferredFrom, 1)
	assert.Equal(t, doc.ID, f.InferredFrom[0].ID)

	res, data = doJSON(t, client, http.MethodGet, base+"/requirements-overview", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Positive(t, decode[domain.RequirementsOverview](t, data).Satisfied)

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodDelete, base+"/activities/"+act.ID+"/requirements/req-8.4", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	p := decode[domain.Process](t, data)
	updated, ok := p.Activity(act.ID)
	require.True(t, ok)
	assert.Empty(t, updated.RequirementIDs)
}

func TestFunctionsComplianceAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, false)
	client := srv.Client()
	proc := createProcess(t, srv, "Quality management", "management")
	require.NotEmpty(t, proc.FunctionsCreated)

	var policy FunctionInstanceResponse
	for _, fi := range proc.FunctionsCreated {
		if fi.FunctionID == "policy_management" {
			policy = fi
		}
	}
	require.NotEmpty(t, policy.ID, "policy_management is attached to management processes")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/functions/"+policy.ID+"/status", map[string]any{
		"status": "implemented",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/functions/"+policy.ID+"/data", map[string]any{
		"data": map[string]any{"statement": "Customers first", "approved_by": "CEO"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	updated := decode[FunctionInstanceResponse](t, data)
	assert.Equal(t, domain.DataKindPolicy, updated.DataKind)
	assert.Len(t, updated.History, 3)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/functions", map[string]any{
		"function_id": "policy_management",
		"process_id":  proc.Process.ID,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, policy.ID, decode[FunctionInstanceResponse](t, data).ID)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/compliance", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	m := decode[domain.ComplianceMetrics](t, data)
	assert.Equal(t, len(proc.FunctionsCreated), m.TotalFunctions)
	assert.Equal(t, 1, m.ImplementedCount)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/compliance/categories", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.NotEmpty(t, data)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/compliance/export", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, report.ContentType, res.Header.Get("Content-Type"))
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, wb.GetSheetList(), report.SheetFunctions)
	require.NoError(t, wb.Close())

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), `qualityline_compliance_percentage{scope="overall"}`)
}

func TestEventsEndpoint(t *testing.T) {
	srv, sess := newTestServer(t, true)
	proc := createProcess(t, srv, "Sales", "operational")
	require.NoError(t, sess.Persister.Flush(context.Background()))

	res, data := doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/v0/events?collection=processes&entity_id="+proc.Process.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	evts := decode[[]events.Event](t, data)
	require.NotEmpty(t, evts)
	assert.Equal(t, "processes", evts[0].Collection)

	ephemeral, _ := newTestServer(t, false)
	res, data = doJSON(t, ephemeral.Client(), http.MethodGet, ephemeral.URL+"/v0/events", nil)
	requireError(t, res, data, http.StatusNotImplemented, "not_implemented")
}

func TestOpenAPIDocument(t *testing.T) {
	srv, _ := newTestServer(t, false)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := decode[map[string]any](t, data)
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/v0/actions/{action_id}/evaluation")

	controls, ok := paths["/v0/issues/{issue_id}/controls"].(map[string]any)
	require.True(t, ok)
	get, ok := controls["get"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Implemented controls for an issue, most recently completed first", get["summary"])
}
