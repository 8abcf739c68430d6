package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prooflab/zenproof/pkg/datasource"
)

func TestScriptedPagesChainThroughCursors(t *testing.T) {
	source := NewSource()
	source.Script("items",
		datasource.Result{Status: datasource.StatusComplete, Data: []any{map[string]any{"id": 1}}},
		datasource.Result{Status: datasource.StatusComplete, Data: []any{map[string]any{"id": 2}}},
	)

	first, err := source.GetData(context.Background(), "items", nil, "", nil)
	assert.NoError(t, err)
	assert.Equal(t, "page-2", first.NextPage)

	second, err := source.GetData(context.Background(), "items", nil, first.NextPage, nil)
	assert.NoError(t, err)
	assert.Empty(t, second.NextPage)

	assert.Len(t, source.CallsFor("items"), 2)
}

func TestUnscriptedDatasetFails(t *testing.T) {
	source := NewSource()

	_, err := source.GetData(context.Background(), "missing", nil, "", nil)

	assert.Error(t, err)
}

func TestExplicitCursorsAreKept(t *testing.T) {
	source := NewSource()
	source.Script("items",
		datasource.Result{Status: datasource.StatusPending, NextPage: "retry"},
		datasource.Result{Status: datasource.StatusComplete, Data: []any{}},
	)

	first, err := source.GetData(context.Background(), "items", nil, "", nil)
	assert.NoError(t, err)
	assert.Equal(t, datasource.StatusPending, first.Status)
	assert.Equal(t, "retry", first.NextPage)

	second, err := source.GetData(context.Background(), "items", nil, "retry", nil)
	assert.NoError(t, err)
	assert.Equal(t, datasource.StatusComplete, second.Status)
}
