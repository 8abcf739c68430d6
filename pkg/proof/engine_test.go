package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/datasource/inmemory"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// testConfiguration is the declarative fixture most engine tests run against:
// a select criterion backed by the "regions" dataset, a dependent text
// criterion and one declarative proof type using both.
func testConfiguration() *model.Configuration {
	return &model.Configuration{
		CriteriaFields: map[string]model.FieldConfig{
			"region": {
				Type:          model.FieldTypeSelect,
				Property:      "region",
				Label:         "{{messages.regionLabel}}",
				IsRequired:    true,
				DataSet:       "regions",
				ValueProperty: "id",
				LabelProperty: "name",
			},
			"team": {
				Type:       model.FieldTypeText,
				Property:   "team",
				Label:      "Team",
				IsRequired: true,
			},
			"project": {
				Type:                model.FieldTypeText,
				Property:            "project",
				Label:               "Project",
				DefaultDisplayValue: "All projects",
			},
		},
		ProofTypes: map[string]model.ProofTypeEntry{
			"taskAudit": {
				Label:      "Task audit",
				Category:   "tasks",
				Definition: taskAuditDefinition(),
			},
		},
		Messages: map[string]string{
			"regionLabel": "Region",
			"noResults":   "No tasks matched the selected criteria.",
		},
		Constants: map[string]any{
			"productName": "TaskTracker",
		},
	}
}

func taskAuditDefinition() *model.Definition {
	return &model.Definition{
		Description: "Audit of tasks for a region and team",
		Criteria: []model.CriterionRef{
			{Name: "region", Page: 0},
			{Name: "team", Page: 0},
			{Name: "project", Page: 1},
		},
		ProofSpec: model.ProofSpec{
			Title:            "{{constants.productName}} task audit",
			Subtitle:         "Region {{criteria.region}}",
			SuggestedName:    "task-audit",
			Format:           "tabular",
			DataSet:          "tasks",
			DataSetParams:    map[string]any{"region": "{{criteria.region}}"},
			NoResultsMessage: "{{messages.noResults}}",
			Fields: []model.FieldSpec{
				{Property: "name", Label: "Task"},
				{Property: "dueDate", Label: "Due", Type: model.FieldValueTypeDate},
				{Property: "completion", Label: "Completion", Type: model.FieldValueTypeNumber, Format: model.FormatPercent},
			},
		},
	}
}

func newTestEngine(t *testing.T, conf *model.Configuration, options ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(conf, options...)
	assert.NoError(t, err)
	return engine
}

func newTestProvider(t *testing.T, engine *Engine, source datasource.DataSource) *declarativeProvider {
	t.Helper()
	provider, err := engine.CreateProvider("taskAudit", source)
	assert.NoError(t, err)
	return provider.(*declarativeProvider)
}

func regionsSource() *inmemory.Source {
	source := inmemory.NewSource()
	source.Script("regions", datasource.Result{
		Status: datasource.StatusComplete,
		Data: []any{
			map[string]any{"id": "emea", "name": "EMEA"},
			map[string]any{"id": "apac", "name": "APAC"},
		},
	})
	return source
}

func TestEngineDefaults(t *testing.T) {
	engine := newTestEngine(t, testConfiguration())

	assert.NotEmpty(t, engine.Name())
	assert.Equal(t, DefaultSettings().MaxFetchPages, engine.settings.MaxFetchPages)
	assert.NotNil(t, engine.Resolver())
}

func TestEngineSettingsBackfillDefaults(t *testing.T) {
	engine := newTestEngine(t, nil, EngineWithSettings(Settings{Language: "cs"}))

	assert.Equal(t, "cs", engine.settings.Language)
	assert.Equal(t, DefaultSettings().Timezone, engine.settings.Timezone)
	assert.Equal(t, DefaultSettings().MaxTokenPasses, engine.settings.MaxTokenPasses)
}

func TestEngineFieldConfigLookup(t *testing.T) {
	engine := newTestEngine(t, testConfiguration())

	cfg, ok := engine.FieldConfig("region")
	assert.True(t, ok)
	assert.Equal(t, model.FieldTypeSelect, cfg.Type)

	_, ok = engine.FieldConfig("bogus")
	assert.False(t, ok)
}

func TestEngineEnvRoutesThroughInjectedProvider(t *testing.T) {
	engine := newTestEngine(t, nil, EngineWithEnv(EnvMap{"HOST": "internal"}))
	tc := runtime.NewTokenContext(nil, nil, nil)

	out, err := engine.Resolver().Resolve("{{env.HOST}}", tc, ResolveOptions{})

	assert.NoError(t, err)
	assert.Equal(t, "internal", out)
}
