package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualityline/internal/domain"
)

func TestLogAppendDoesNotAlias(t *testing.T) {
	base := domain.NewLog(1, 2)
	a := base.Append(3)
	b := base.Append(4)

	assert.Equal(t, []int{1, 2}, base.Entries())
	assert.Equal(t, []int{1, 2, 3}, a.Entries())
	assert.Equal(t, []int{1, 2, 4}, b.Entries())

	entries := a.Entries()
	entries[0] = 99
	assert.Equal(t, 1, a.Entries()[0], "Entries must return a copy")

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last)

	_, ok = domain.Log[int]{}.Last()
	assert.False(t, ok)
}

func TestLogJSONEmptyIsArray(t *testing.T) {
	b, err := json.Marshal(domain.Log[string]{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestFunctionInstanceDataVariantSurvivesJSON(t *testing.T) {
	fi := domain.FunctionInstance{
		ID:         "fi-1",
		FunctionID: "policy_management",
		ProcessID:  "p-1",
		Status:     domain.Implemented,
		Data:       domain.PolicyData{Statement: "We deliver on time", ApprovedBy: "CEO"},
	}
	b, err := json.Marshal(fi)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data_kind":"policy"`)

	var back domain.FunctionInstance
	require.NoError(t, json.Unmarshal(b, &back))
	policy, ok := back.Data.(domain.PolicyData)
	require.True(t, ok, "expected PolicyData, got %T", back.Data)
	assert.Equal(t, "CEO", policy.ApprovedBy)
}

func TestFunctionInstanceMissingDataKindFallsBackToFunction(t *testing.T) {
	var fi domain.FunctionInstance
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","function_id":"quality_objectives","status":"not_implemented"}`), &fi))
	_, ok := fi.Data.(domain.ObjectivesData)
	assert.True(t, ok)
}

func TestDecodeInstanceDataRejectsUnknownKind(t *testing.T) {
	_, err := domain.DecodeInstanceData("mystery", nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStandardFunctionEligibility(t *testing.T) {
	all := domain.StandardFunction{}
	assert.True(t, all.EligibleFor("support"))
	op := domain.StandardFunction{EligibleProcessTypes: []string{"operational"}}
	assert.True(t, op.EligibleFor("operational"))
	assert.False(t, op.EligibleFor("management"))
}
