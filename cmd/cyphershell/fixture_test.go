package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherengine/pkg/engine"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/schema"
)

func TestLoadFixtureBuildsAndExecutes(t *testing.T) {
	f, err := LoadFixture("testdata/create_and_return.yaml")
	require.NoError(t, err)
	require.Len(t, f.Segments, 1)

	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	procs := procedures.NewRegistry()
	procedures.RegisterBuiltins(procs, store)

	segments := f.Build(reg)
	e := engine.New(store, procs, nil)

	plan, err := e.BuildPlan(segments)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, plan.Columns)

	result, err := e.ExecutePlan(context.Background(), plan, map[string]any{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.EqualValues(t, 1, result.Stats.NodesCreated)
}

func TestLoadFixtureMissingFileErrors(t *testing.T) {
	_, err := LoadFixture("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
