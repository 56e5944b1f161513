package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualityline/internal/catalog"
	"qualityline/internal/domain"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Requirements())
	assert.NotEmpty(t, c.Functions())
	assert.Equal(t, []string{"4", "5", "6", "7", "8", "9", "10"}, c.Clauses())
	assert.Contains(t, c.Categories(), "planning")

	req, ok := c.Requirement("req-6.1")
	require.True(t, ok)
	assert.Equal(t, domain.RequirementGeneric, req.Type)

	fn, ok := c.Function("internal_audit")
	require.True(t, ok)
	assert.Equal(t, domain.DuplicationUnique, fn.DuplicationRule)
	assert.True(t, fn.Mandatory)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := catalog.MustDefault()
	fn, _ := c.Function("context_analysis")
	fn.ClauseReferences[0] = "99"
	again, _ := c.Function("context_analysis")
	assert.Equal(t, "4.1", again.ClauseReferences[0])

	reqs := c.Requirements()
	reqs[0].ClauseNumber = "x"
	assert.NotEqual(t, "x", c.Requirements()[0].ClauseNumber)
}

func TestMandatoryFunctionsRespectEligibility(t *testing.T) {
	c := catalog.MustDefault()
	ids := func(fns []domain.StandardFunction) []string {
		var out []string
		for _, f := range fns {
			out = append(out, f.ID)
		}
		return out
	}
	support := ids(c.MandatoryFunctionsFor("support"))
	assert.NotContains(t, support, "customer_requirements")
	assert.NotContains(t, support, "design_development")
	assert.Contains(t, support, "risk_management")

	ops := ids(c.MandatoryFunctionsFor("operational"))
	assert.Contains(t, ops, "customer_requirements")
	assert.NotContains(t, ops, "design_development", "not mandatory")
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	_, err := catalog.New(nil, nil, []domain.Requirement{{ID: "r", ClauseNumber: "4.1", Type: "weird"}}, nil)
	assert.Error(t, err)

	_, err = catalog.New(nil, nil, nil, []domain.StandardFunction{{ID: "f", DuplicationRule: domain.DuplicationUnique}})
	assert.Error(t, err, "function without clauses")

	_, err = catalog.FromYAML([]byte("requirements: [oops"))
	assert.Error(t, err)
}

func TestNewAddsMissingBuckets(t *testing.T) {
	c, err := catalog.New(nil, nil, nil, []domain.StandardFunction{{
		ID: "f", ClauseReferences: []string{"8.5.1"}, DuplicationRule: domain.DuplicationPerProcess, Category: "operation",
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"operation"}, c.Categories())
	assert.Equal(t, []string{"8"}, c.Clauses())
}

func TestClauseCovers(t *testing.T) {
	cases := []struct {
		ref, clause string
		want        bool
	}{
		{"7.5", "7.5", true},
		{"7", "7.5", true},
		{"7.1", "7.1.5", true},
		{"7.1", "7.10", false},
		{"1", "10.2", false},
		{"", "4.1", false},
		{"7.1.5", "7.1", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, catalog.ClauseCovers(tc.ref, tc.clause), "%s covers %s", tc.ref, tc.clause)
	}
	assert.Equal(t, "10", catalog.TopLevelClause("10.2"))
	assert.Equal(t, "4", catalog.TopLevelClause("4"))
}
