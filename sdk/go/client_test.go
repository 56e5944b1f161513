package qualitylinesdk_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualityline/internal/app"
	"qualityline/internal/config"
	"qualityline/internal/server"
	qualitylinesdk "qualityline/sdk/go"
)

func newClient(t *testing.T) *qualitylinesdk.Client {
	t.Helper()
	ctx := context.Background()
	sess, err := app.Open(ctx, app.Options{Config: config.Default("org-sdk"), Ephemeral: true, LogOutput: io.Discard})
	require.NoError(t, err)
	handler, err := server.New(server.Config{Engine: sess.Engine, BasePath: "/v0", Logger: sess.Logger})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		_ = sess.Close(ctx)
	})
	c := qualitylinesdk.New(srv.URL)
	c.HTTPClient = srv.Client()
	return c
}

func TestRiskTreatmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	p, fns, err := c.CreateProcess(ctx, "Maintenance", "support")
	require.NoError(t, err)
	require.NotEmpty(t, fns)

	issue, err := c.CreateRisk(ctx, p.ID, "Spare parts shortage", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "02", issue.Priority)

	_, err = c.ReviewResidualRisk(ctx, issue.ID, 1, 1)
	require.Error(t, err)
	assert.True(t, qualitylinesdk.IsCode(err, "residual_risk_not_evaluable"), err.Error())

	a, err := c.CreateAction(ctx, p.ID, "Safety stock", "2099-12-31", issue.ID)
	require.NoError(t, err)
	_, err = c.SetActionStatus(ctx, a.ID, "in_progress", "started")
	require.NoError(t, err)
	_, err = c.CompleteAction(ctx, a.ID, "")
	require.NoError(t, err)
	a, err = c.EvaluateAction(ctx, a.ID, qualitylinesdk.Evaluation{Result: "effective"})
	require.NoError(t, err)
	assert.Equal(t, "evaluated", a.Status)

	_, err = c.SetActionStatus(ctx, a.ID, "planned", "")
	var apiErr *qualitylinesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "invalid_transition", apiErr.Code)

	v, err := c.ReviewResidualRisk(ctx, issue.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, "post_action_review", v.Trigger)

	overdue, err := c.OverdueActions(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestComplianceFollowsFunctionStatus(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	p, fns, err := c.CreateProcess(ctx, "Purchasing", "operational")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(fns), 2)

	_, err = c.SetFunctionStatus(ctx, fns[0].ID, "implemented", "")
	require.NoError(t, err)
	_, err = c.SetFunctionStatus(ctx, fns[1].ID, "partially_implemented", "")
	require.NoError(t, err)

	m, err := c.ProcessCompliance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(fns), m.TotalFunctions)
	assert.Equal(t, 1, m.ImplementedCount)
	assert.Equal(t, 1, m.PartiallyImplementedCount)

	overall, err := c.Compliance(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, overall)

	_, err = c.Events(ctx, 10, "")
	assert.True(t, qualitylinesdk.IsCode(err, "not_implemented"))
}
