package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualityline/internal/catalog"
	"qualityline/internal/config"
	"qualityline/internal/db"
	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/lifecycle"
	"qualityline/internal/metrics"
	"qualityline/internal/migrate"
	"qualityline/internal/recordstore"
	"qualityline/internal/risk"
	"qualityline/internal/store"
)

type testEnv struct {
	Engine    engine.Engine
	Persister *store.Persister
	Records   recordstore.RecordStore
	Metrics   *metrics.Metrics
	Clock     *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)

	records := recordstore.NewSQLite(conn)
	m := metrics.New(prometheus.NewRegistry())
	p := store.NewPersister(records, store.WithMetrics(m))
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	clock := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	seq := 0
	eng := engine.New(store.New(p), catalog.MustDefault(), config.Default("org-1"),
		engine.WithMetrics(m),
		engine.WithClock(func() time.Time { return clock }),
		engine.WithIDs(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return testEnv{Engine: eng, Persister: p, Records: records, Metrics: m, Clock: &clock}
}

func (env testEnv) process(t *testing.T, name, typ string) domain.Process {
	t.Helper()
	p, _, err := env.Engine.CreateProcess(engine.ProcessInput{Name: name, Type: typ})
	require.NoError(t, err)
	return p
}

func countFunction(instances []domain.FunctionInstance, functionID string) []domain.FunctionInstance {
	var out []domain.FunctionInstance
	for _, fi := range instances {
		if fi.FunctionID == functionID {
			out = append(out, fi)
		}
	}
	return out
}

func TestCreateProcessAddsGovernanceAndMandatoryFunctions(t *testing.T) {
	env := newTestEnv(t)
	p, created, err := env.Engine.CreateProcess(engine.ProcessInput{Name: "Production", Type: "operational"})
	require.NoError(t, err)

	gov, ok := p.GovernanceActivity()
	require.True(t, ok)
	assert.Equal(t, "Governance", gov.Name)

	want := catalog.MustDefault().MandatoryFunctionsFor("operational")
	assert.Len(t, created, len(want))
	for _, fi := range created {
		assert.Equal(t, domain.NotImplemented, fi.Status)
		assert.Equal(t, 1, fi.History.Len())
	}

	_, _, err = env.Engine.CreateProcess(engine.ProcessInput{Name: "X", Type: "alien"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUniqueMandatoryFunctionSyncsOnce(t *testing.T) {
	env := newTestEnv(t)
	first := env.process(t, "Management", "management")
	second := env.process(t, "Purchasing", "operational")

	_, err := env.Engine.SyncProcessFunctions(second.ID)
	require.NoError(t, err)
	created, err := env.Engine.SyncProcessFunctions(first.ID)
	require.NoError(t, err)
	assert.Empty(t, created, "sync is idempotent")

	audits := countFunction(env.Engine.FunctionInstances(), "internal_audit")
	require.Len(t, audits, 1)
	assert.Equal(t, first.ID, audits[0].ProcessID)

	perProcess := countFunction(env.Engine.FunctionInstances(), "risk_management")
	assert.Len(t, perProcess, 2)

	_, _, err = env.Engine.EnsureFunctionInstance("internal_audit", second.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateInstance)
}

func TestUpdateProcessTypeSyncsNewFunctions(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Warehouse", "support")
	assert.Empty(t, countFunction(env.Engine.InstancesForProcess(p.ID), "customer_requirements"))

	typ := "operational"
	_, created, err := env.Engine.UpdateProcess(p.ID, engine.ProcessPatch{Type: &typ})
	require.NoError(t, err)
	assert.Len(t, countFunction(created, "customer_requirements"), 1)

	_, _, err = env.Engine.UpdateProcess("missing", engine.ProcessPatch{Type: &typ})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocationRules(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Purchasing", "operational")
	gov, _ := p.GovernanceActivity()
	act, err := env.Engine.AddActivity(p.ID, "Select suppliers")
	require.NoError(t, err)

	_, err = env.Engine.AllocateRequirement(p.ID, act.ID, "req-8.3")
	require.NoError(t, err)
	_, err = env.Engine.AllocateRequirement(p.ID, act.ID, "req-8.4")
	require.NoError(t, err)

	reqs := env.Engine.RequirementsForActivity(p.ID, act.ID)
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-8.3", reqs[0].ID)
	assert.Equal(t, "req-8.4", reqs[1].ID)

	_, err = env.Engine.AllocateRequirement(p.ID, gov.ID, "req-8.4")
	assert.ErrorIs(t, err, domain.ErrGovernanceImmutable)
	_, err = env.Engine.DeallocateRequirement(p.ID, gov.ID, "req-4.1")
	assert.ErrorIs(t, err, domain.ErrGovernanceImmutable)
	_, err = env.Engine.AllocateRequirement(p.ID, act.ID, "req-6.1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	other := env.process(t, "Sales", "operational")
	otherAct, err := env.Engine.AddActivity(other.ID, "Quote")
	require.NoError(t, err)
	for _, r := range env.Engine.AvailableRequirements(other.ID, otherAct.ID) {
		assert.NotEqual(t, "req-8.3", r.ID, "unique requirement already allocated")
	}

	// double allocation is reported, not refused
	_, err = env.Engine.AllocateRequirement(other.ID, otherAct.ID, "req-8.3")
	assert.NoError(t, err)

	_, err = env.Engine.DeallocateRequirement(p.ID, act.ID, "req-8.3")
	require.NoError(t, err)
	assert.Len(t, env.Engine.RequirementsForActivity(p.ID, act.ID), 1)
	_, err = env.Engine.DeallocateRequirement(p.ID, act.ID, "req-8.3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverviewFollowsDocuments(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Purchasing", "operational")
	act, _ := env.Engine.AddActivity(p.ID, "Select suppliers")
	_, err := env.Engine.AllocateRequirement(p.ID, act.ID, "req-8.4")
	require.NoError(t, err)

	before, ok := env.Engine.RequirementsOverview(p.ID)
	require.True(t, ok)
	generic := len(catalog.MustDefault().RequirementsOfType(domain.RequirementGeneric))
	assert.Equal(t, generic+1, before.Allocated)

	doc, err := env.Engine.AddDocument(engine.DocumentInput{
		Title: "Supplier evaluation", ProcessIDs: []string{p.ID}, ISOClauseReferences: []string{"8.4"},
	})
	require.NoError(t, err)

	f, err := env.Engine.InferFulfillment("req-8.4", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Satisfied, f.State)
	assert.Equal(t, doc.ID, f.InferredFrom[0].ID)

	after, _ := env.Engine.RequirementsOverview(p.ID)
	assert.Equal(t, before.Satisfied+1, after.Satisfied)

	require.NoError(t, env.Engine.RemoveDocument(doc.ID))
	f, _ = env.Engine.InferFulfillment("req-8.4", p.ID)
	assert.Equal(t, domain.NotSatisfied, f.State)

	_, ok = env.Engine.RequirementsOverview("missing")
	assert.False(t, ok)
	_, err = env.Engine.AddDocument(engine.DocumentInput{Title: "x", ProcessIDs: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScenarioAAndBScoring(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")

	a, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Machine failure", Severity: 3, Probability: 3})
	require.NoError(t, err)
	assert.Equal(t, 9, a.Criticity)
	assert.Equal(t, "01", a.Priority)

	b, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Late paperwork", Severity: 1, Probability: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Criticity)
	assert.Equal(t, "03", b.Priority)

	_, err = env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Bad", Severity: 4, Probability: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, env.Engine.Issues(), 2, "rejected before any mutation")
}

func TestScenarioCResidualRiskGate(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	issue, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Scrap rate", Severity: 2, Probability: 3})
	require.NoError(t, err)
	require.Len(t, env.Engine.RiskHistory(issue.ID), 1)
	assert.Equal(t, domain.TriggerInitial, env.Engine.RiskHistory(issue.ID)[0].Trigger)

	action, err := env.Engine.CreateAction(engine.ActionInput{
		Title: "Recalibrate press", ProcessID: p.ID, Deadline: "2024-04-01", LinkedIssueIDs: []string{issue.ID},
	})
	require.NoError(t, err)
	assert.False(t, env.Engine.CanEvaluateResidualRisk(issue.ID))

	review := risk.Input{Severity: 1, Probability: 2, Description: "After recalibration"}
	_, err = env.Engine.ReviewResidualRisk(issue.ID, review)
	assert.ErrorIs(t, err, domain.ErrResidualRiskNotEvaluable)
	assert.Len(t, env.Engine.RiskHistory(issue.ID), 1)

	started := domain.ActionInProgress
	_, err = env.Engine.UpdateAction(action.ID, lifecycle.Patch{Status: &started}, "")
	require.NoError(t, err)
	_, err = env.Engine.CompleteAction(action.ID, "done")
	require.NoError(t, err)
	assert.False(t, env.Engine.CanEvaluateResidualRisk(issue.ID))
	_, err = env.Engine.EvaluateActionEfficiency(action.ID, lifecycle.EvaluationInput{Result: domain.Effective, EvaluatorName: "QA"})
	require.NoError(t, err)
	assert.True(t, env.Engine.CanEvaluateResidualRisk(issue.ID))

	v, err := env.Engine.ReviewResidualRisk(issue.ID, review)
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, domain.TriggerPostActionReview, v.Trigger)

	current, _ := env.Engine.Issue(issue.ID)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, 1, current.Severity)
	assert.Equal(t, 2, current.Probability)
	assert.Equal(t, 2, current.Criticity)
	assert.Equal(t, "03", current.Priority)

	latest, ok := env.Engine.LatestRiskVersion(issue.ID)
	require.True(t, ok)
	assert.Equal(t, 2, latest.VersionNumber)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.RiskVersions.WithLabelValues("post_action_review")))
}

func TestAddRiskVersionAlwaysAppends(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	issue, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Drift", Severity: 1, Probability: 1})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		before := len(env.Engine.RiskHistory(issue.ID))
		_, err := env.Engine.AddRiskVersion(issue.ID, risk.Input{Severity: 2, Probability: 2, Trigger: domain.TriggerInitial})
		require.NoError(t, err)
		history := env.Engine.RiskHistory(issue.ID)
		require.Len(t, history, before+1)
		latest, _ := env.Engine.LatestRiskVersion(issue.ID)
		assert.Equal(t, history[len(history)-1].VersionNumber, latest.VersionNumber)
	}
	_, err = env.Engine.AddRiskVersion("missing", risk.Input{Severity: 1, Probability: 1, Trigger: domain.TriggerInitial})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpportunitiesAreNeverScored(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Sales", "operational")
	opp, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueOpportunity, Title: "New market"})
	require.NoError(t, err)
	action, err := env.Engine.CreateAction(engine.ActionInput{
		Title: "Market study", ProcessID: p.ID, Deadline: "2024-04-01", LinkedIssueIDs: []string{opp.ID},
	})
	require.NoError(t, err)
	_, err = env.Engine.CompleteAction(action.ID, "")
	require.NoError(t, err)
	_, err = env.Engine.EvaluateActionEfficiency(action.ID, lifecycle.EvaluationInput{Result: domain.Effective, EvaluatorName: "QA"})
	require.NoError(t, err)

	_, err = env.Engine.AddRiskVersion(opp.ID, risk.Input{Severity: 3, Probability: 3, Trigger: domain.TriggerInitial})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.Engine.ReviewResidualRisk(opp.ID, risk.Input{Severity: 1, Probability: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, env.Engine.RiskHistory(opp.ID))
	_, ok := env.Engine.LatestRiskVersion(opp.ID)
	assert.False(t, ok)
	current, _ := env.Engine.Issue(opp.ID)
	assert.Zero(t, current.Severity)
	assert.Zero(t, current.Criticity)
	assert.Empty(t, current.Priority)
	assert.Zero(t, testutil.ToFloat64(env.Metrics.RiskVersions.WithLabelValues("initial")))
}

func TestUnsetTriggerFollowsHistory(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	issue, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueRisk, Title: "Supplier delay", Severity: 2, Probability: 2})
	require.NoError(t, err)

	v, err := env.Engine.AddRiskVersion(issue.ID, risk.Input{Severity: 1, Probability: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, domain.TriggerPostActionReview, v.Trigger)

	initials := 0
	for _, h := range env.Engine.RiskHistory(issue.ID) {
		if h.Trigger == domain.TriggerInitial {
			initials++
		}
	}
	assert.Equal(t, 1, initials)

	_, err = env.Engine.AddRiskVersion(issue.ID, risk.Input{Severity: 1, Probability: 1, Trigger: "whenever"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, env.Engine.RiskHistory(issue.ID), 2)
}

func TestActionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	a, err := env.Engine.CreateAction(engine.ActionInput{Title: "Train operators", ProcessID: p.ID, Deadline: "2024-03-20"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPlanned, a.Status)
	assert.Equal(t, 1, a.StatusHistory.Len())
	assert.Equal(t, 1, a.Version)

	title := "Train all operators"
	a, err = env.Engine.UpdateAction(a.ID, lifecycle.Patch{Title: &title}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Version, "version moves without a status change")
	assert.Equal(t, 1, a.StatusHistory.Len())

	evaluated := domain.ActionEvaluated
	_, err = env.Engine.UpdateAction(a.ID, lifecycle.Patch{Status: &evaluated}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.Engine.EvaluateActionEfficiency(a.ID, lifecycle.EvaluationInput{Result: domain.Effective})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	a, err = env.Engine.CompleteAction(a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCompletedPendingEvaluation, a.Status)
	require.NotNil(t, a.CompletedDate)

	a, err = env.Engine.EvaluateActionEfficiency(a.ID, lifecycle.EvaluationInput{Result: domain.Ineffective, Notes: "still failing"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionEvaluated, a.Status)
	require.NotNil(t, a.EfficiencyEvaluation)

	_, err = env.Engine.EvaluateActionEfficiency(a.ID, lifecycle.EvaluationInput{Result: domain.Effective})
	assert.ErrorIs(t, err, domain.ErrAlreadyEvaluated)
	_, err = env.Engine.CompleteAction(a.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	final, _ := env.Engine.Action(a.ID)
	assert.Equal(t, domain.Ineffective, final.EfficiencyEvaluation.Result)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.ActionsEvaluated.WithLabelValues("ineffective")))

	_, err = env.Engine.CreateAction(engine.ActionInput{Title: "x", ProcessID: p.ID, Deadline: "soon"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.Engine.CreateAction(engine.ActionInput{Title: "x", ProcessID: p.ID, Deadline: "2024-01-01", LinkedIssueIDs: []string{"nope"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverdueAndImplementedControls(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	issue, err := env.Engine.CreateIssue(engine.IssueInput{ProcessID: p.ID, Type: domain.IssueOpportunity, Title: "Automate"})
	require.NoError(t, err)

	mk := func(title, deadline string) domain.Action {
		a, err := env.Engine.CreateAction(engine.ActionInput{Title: title, ProcessID: p.ID, Deadline: deadline, LinkedIssueIDs: []string{issue.ID}})
		require.NoError(t, err)
		return a
	}
	late := mk("late", "2024-03-01")
	mk("today", "2024-03-10")
	lateDone := mk("late but done", "2024-03-02")
	lateCancelled := mk("late but cancelled", "2024-03-03")

	_, err = env.Engine.CompleteAction(lateDone.ID, "")
	require.NoError(t, err)
	cancelled := domain.ActionCancelled
	_, err = env.Engine.UpdateAction(lateCancelled.ID, lifecycle.Patch{Status: &cancelled}, "no budget")
	require.NoError(t, err)

	overdue := env.Engine.OverdueActions()
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	*env.Clock = env.Clock.Add(48 * time.Hour)
	_, err = env.Engine.CompleteAction(late.ID, "")
	require.NoError(t, err)

	controls := env.Engine.ImplementedControls(issue.ID)
	require.Len(t, controls, 2)
	assert.Equal(t, late.ID, controls[0].ID, "most recently completed first")
	assert.Equal(t, lateDone.ID, controls[1].ID)
	assert.Len(t, env.Engine.ActionsForIssue(issue.ID), 4)
}

func TestFunctionInstanceOperations(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Management", "management")

	fi, created, err := env.Engine.EnsureFunctionInstance("policy_management", p.ID)
	require.NoError(t, err)
	assert.False(t, created, "mandatory function already attached by sync")

	fi, err = env.Engine.SetFunctionStatus(fi.ID, domain.PartiallyImplemented, "draft policy")
	require.NoError(t, err)
	assert.Equal(t, 2, fi.History.Len())

	fi, err = env.Engine.UpdateFunctionData(fi.ID, domain.PolicyData{Statement: "Customers first"}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, fi.History.Len())
	_, err = env.Engine.UpdateFunctionData(fi.ID, domain.GenericData{Notes: "wrong shape"}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	fi, err = env.Engine.AddFunctionEvidence(fi.ID, engine.EvidenceInput{Kind: "document", Reference: "POL-001"})
	require.NoError(t, err)
	assert.Equal(t, 1, fi.Evidence.Len())

	a, err := env.Engine.CreateAction(engine.ActionInput{Title: "Publish policy", ProcessID: p.ID, Deadline: "2024-05-01"})
	require.NoError(t, err)
	fi, err = env.Engine.LinkFunctionItems(fi.ID, engine.FunctionLinks{ActionIDs: []string{a.ID, a.ID}, KPIIDs: []string{"kpi-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, fi.LinkedActionIDs)
	assert.Equal(t, []string{"kpi-1"}, fi.LinkedKPIIDs)
	_, err = env.Engine.LinkFunctionItems(fi.ID, engine.FunctionLinks{ActionIDs: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = env.Engine.EnsureFunctionInstance("design_development", p.ID)
	assert.ErrorIs(t, err, domain.ErrValidation, "operational only")
	other, created, err := env.Engine.EnsureFunctionInstance("continual_improvement", p.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.NotImplemented, other.Status)
}

func TestComplianceViews(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, domain.ComplianceMetrics{}, env.Engine.ComplianceMetrics())

	p := env.process(t, "Production", "operational")
	instances := env.Engine.InstancesForProcess(p.ID)
	require.NotEmpty(t, instances)
	_, err := env.Engine.SetFunctionStatus(instances[0].ID, domain.Implemented, "")
	require.NoError(t, err)

	m := env.Engine.ComplianceMetrics()
	assert.Equal(t, len(instances), m.TotalFunctions)
	assert.Equal(t, 1, m.ImplementedCount)
	assert.Equal(t, m, env.Engine.ComplianceByProcess(p.ID))
	assert.Equal(t, domain.ComplianceMetrics{}, env.Engine.ComplianceByProcess("missing"))

	assert.Len(t, env.Engine.ComplianceByCategory(), len(catalog.MustDefault().Categories()))
	assert.Len(t, env.Engine.ComplianceByClause(), 7)
	assert.Equal(t, float64(m.CompliancePercentage), testutil.ToFloat64(env.Metrics.CompliancePercentage.WithLabelValues("overall")))
}

func TestMutationsReachRecordStore(t *testing.T) {
	env := newTestEnv(t)
	p := env.process(t, "Production", "operational")
	_, err := env.Engine.AddActivity(p.ID, "Assemble")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.Persister.Flush(ctx))

	reloaded, err := store.Load(ctx, env.Records, nil)
	require.NoError(t, err)
	got, ok := reloaded.Process(p.ID)
	require.True(t, ok)
	assert.Len(t, got.Activities, 2)
	assert.Len(t, reloaded.Instances(), len(env.Engine.FunctionInstances()))
}
