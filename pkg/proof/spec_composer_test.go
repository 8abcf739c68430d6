package proof

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/datasource/inmemory"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

func rawPatch(t *testing.T, patch map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(patch))
	for k, v := range patch {
		buf, err := json.Marshal(v)
		assert.NoError(t, err)
		out[k] = buf
	}
	return out
}

func TestComposeAppliesMatchingOverride(t *testing.T) {
	conf := testConfiguration()
	entry := conf.ProofTypes["taskAudit"]
	entry.Definition.Overrides = []model.Override{
		{
			Condition: model.Condition{Value: "{{criteria.region}}", Criteria: "emea"},
			ProofSpec: rawPatch(t, map[string]any{"title": "EMEA task audit", "orientation": "landscape"}),
		},
	}
	conf.ProofTypes["taskAudit"] = entry
	engine := newTestEngine(t, conf)
	provider := newTestProvider(t, engine, inmemory.NewSource())
	tc := engine.newTokenContext(map[string]any{"region": "emea"})

	spec, err := provider.composeProofSpec(tc)

	assert.NoError(t, err)
	assert.Equal(t, "EMEA task audit", spec.Title)
	assert.Equal(t, "landscape", spec.Orientation)
	// untouched keys persist from the base layer
	assert.Equal(t, "tasks", spec.DataSet)
}

func TestComposeOverridePrecedence(t *testing.T) {
	conf := testConfiguration()
	entry := conf.ProofTypes["taskAudit"]
	entry.Definition.Overrides = []model.Override{
		{
			Condition: model.Condition{Value: "{{criteria.region}}", Criteria: "emea"},
			ProofSpec: rawPatch(t, map[string]any{"title": "first", "orientation": "portrait"}),
		},
		{
			Condition: model.Condition{Value: "{{criteria.region}}", Criteria: "emea"},
			ProofSpec: rawPatch(t, map[string]any{"title": "second"}),
		},
	}
	conf.ProofTypes["taskAudit"] = entry
	engine := newTestEngine(t, conf)
	provider := newTestProvider(t, engine, inmemory.NewSource())
	tc := engine.newTokenContext(map[string]any{"region": "emea"})

	spec, err := provider.composeProofSpec(tc)

	assert.NoError(t, err)
	// overlapping keys take the later override, the rest keep the earlier one
	assert.Equal(t, "second", spec.Title)
	assert.Equal(t, "portrait", spec.Orientation)
}

func TestComposeArrayKeysReplaceWholesale(t *testing.T) {
	conf := testConfiguration()
	entry := conf.ProofTypes["taskAudit"]
	entry.Definition.Overrides = []model.Override{
		{
			Condition: model.Condition{Value: "{{criteria.region}}", Criteria: "emea"},
			ProofSpec: rawPatch(t, map[string]any{
				"fields": []any{map[string]any{"property": "name", "label": "Only task"}},
			}),
		},
	}
	conf.ProofTypes["taskAudit"] = entry
	engine := newTestEngine(t, conf)
	provider := newTestProvider(t, engine, inmemory.NewSource())
	tc := engine.newTokenContext(map[string]any{"region": "emea"})

	spec, err := provider.composeProofSpec(tc)

	assert.NoError(t, err)
	assert.Len(t, spec.Fields, 1)
	assert.Equal(t, "Only task", spec.Fields[0].Label)
}

func TestComposeNonMatchingOverrideIsSkipped(t *testing.T) {
	conf := testConfiguration()
	entry := conf.ProofTypes["taskAudit"]
	entry.Definition.Overrides = []model.Override{
		{
			Condition: model.Condition{Value: "{{criteria.region}}", Criteria: "apac"},
			ProofSpec: rawPatch(t, map[string]any{"title": "APAC"}),
		},
	}
	conf.ProofTypes["taskAudit"] = entry
	engine := newTestEngine(t, conf)
	provider := newTestProvider(t, engine, inmemory.NewSource())
	tc := engine.newTokenContext(map[string]any{"region": "emea"})

	spec, err := provider.composeProofSpec(tc)

	assert.NoError(t, err)
	assert.Equal(t, "{{constants.productName}} task audit", spec.Title)
}

func TestComposeUnresolvedConditionNeverMatches(t *testing.T) {
	conf := testConfiguration()
	entry := conf.ProofTypes["taskAudit"]
	entry.Definition.Overrides = []model.Override{
		{
			// both sides fail to resolve identically; that must not count as a match
			Condition: model.Condition{Value: "{{criteria.ghost}}", Criteria: "{{criteria.ghost}}"},
			ProofSpec: rawPatch(t, map[string]any{"title": "never"}),
		},
	}
	conf.ProofTypes["taskAudit"] = entry
	engine := newTestEngine(t, conf)
	provider := newTestProvider(t, engine, inmemory.NewSource())
	tc := engine.newTokenContext(map[string]any{})

	spec, err := provider.composeProofSpec(tc)

	assert.NoError(t, err)
	assert.NotEqual(t, "never", spec.Title)
}

func TestRunLookupsStoresRowsForTokenResolution(t *testing.T) {
	source := inmemory.NewSource()
	source.Script("orgInfo", datasource.Result{
		Status: datasource.StatusComplete,
		Data:   map[string]any{"name": "Acme"},
	})
	engine := newTestEngine(t, testConfiguration())
	provider := newTestProvider(t, engine, source)
	tc := engine.newTokenContext(nil)
	spec := model.ProofSpec{Lookups: []model.Lookup{{Name: "org", DataSet: "orgInfo"}}}

	err := provider.runLookups(context.Background(), spec, tc)

	assert.NoError(t, err)
	out, err := engine.Resolver().Resolve("{{lookups.org.name}}", tc, ResolveOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "Acme", out)
}

func TestRunLookupsPendingIsFatal(t *testing.T) {
	source := inmemory.NewSource()
	source.Script("orgInfo", datasource.Result{Status: datasource.StatusPending, NextPage: "p2"})
	engine := newTestEngine(t, testConfiguration())
	provider := newTestProvider(t, engine, source)
	spec := model.ProofSpec{Lookups: []model.Lookup{{Name: "org", DataSet: "orgInfo"}}}

	err := provider.runLookups(context.Background(), spec, engine.newTokenContext(nil))

	var pendingErr *LookupPendingError
	assert.ErrorAs(t, err, &pendingErr)
	assert.Equal(t, "org", pendingErr.Lookup)
}

func TestGenerateProofCriteria(t *testing.T) {
	engine := newTestEngine(t, testConfiguration())
	provider := newTestProvider(t, engine, regionsSource())
	criteria := map[string]any{"region": "emea", "team": "core"}
	tc := engine.newTokenContext(criteria)

	result, err := provider.generateProofCriteria(context.Background(), provider.definition.Criteria, criteria, tc, runtime.UserContext{})

	assert.NoError(t, err)
	assert.Len(t, result, 3)
	// select value maps to the matching option's label
	assert.Equal(t, runtime.ProofCriterion{Name: "region", Label: "Region", Value: "EMEA"}, result[0])
	// text passes the raw value through
	assert.Equal(t, runtime.ProofCriterion{Name: "team", Label: "Team", Value: "core"}, result[1])
	// optional and unset falls back to the default display value
	assert.Equal(t, runtime.ProofCriterion{Name: "project", Label: "Project", Value: "All projects"}, result[2])
}

func TestGenerateProofCriteriaUnmatchedSelectValuePassesThrough(t *testing.T) {
	engine := newTestEngine(t, testConfiguration())
	provider := newTestProvider(t, engine, regionsSource())
	criteria := map[string]any{"region": "unknown", "team": "core"}
	tc := engine.newTokenContext(criteria)

	result, err := provider.generateProofCriteria(context.Background(), provider.definition.Criteria, criteria, tc, runtime.UserContext{})

	assert.NoError(t, err)
	assert.Equal(t, "unknown", result[0].Value)
}
