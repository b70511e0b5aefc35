package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/querygraph"
	"github.com/orneryd/cypherengine/pkg/schema"
)

func newTestEngine() (*Engine, *schema.Registry) {
	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	return New(store, procedures.NewRegistry(), nil), reg
}

// createReturnSegments builds `CREATE (n:Person) RETURN n` as a two-clause
// single segment, matching how the builder links CREATE directly into a
// trailing RETURN within one plan segment (spec §4.3).
func createReturnSegments(reg *schema.Registry) []*ast.Segment {
	person := reg.FindOrAddLabelID("Person")
	n := &querygraph.Node{Alias: "n", LabelIDs: []graph.LabelID{person}}
	pattern := &querygraph.Graph{Nodes: []*querygraph.Node{n}}

	return []*ast.Segment{{
		Clauses: []ast.Clause{
			&ast.CreateClause{Pattern: pattern},
			&ast.ReturnClause{Items: []ast.ProjectionItem{
				{Expression: &arithmetic.Variable{Alias: "n"}, Alias: "n"},
			}},
		},
	}}
}

func TestBuildPlanEmptySegmentsIsUnresolvedOrPlacement(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.BuildPlan(nil)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, InvalidFilterPlacement, engErr.Kind)
}

func TestBuildAndExecuteCreateReturn(t *testing.T) {
	e, reg := newTestEngine()
	segs := createReturnSegments(reg)

	plan, err := e.BuildPlan(segs)
	require.NoError(t, err)
	require.Equal(t, []string{"n"}, plan.Columns)

	result, err := e.ExecutePlan(context.Background(), plan, map[string]any{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"n"}, result.Columns)
	require.NotNil(t, result.Stats)
	assert.EqualValues(t, 1, result.Stats.NodesCreated)
	assert.EqualValues(t, 1, e.Store.NodeCount())
}

func TestExecutePlanTimesOutOnCancelledContext(t *testing.T) {
	e, reg := newTestEngine()
	segs := createReturnSegments(reg)
	plan, err := e.BuildPlan(segs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.ExecutePlan(ctx, plan, map[string]any{})
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, Timeout, engErr.Kind)
}

func TestExplainPlanRendersOperatorTree(t *testing.T) {
	e, reg := newTestEngine()
	segs := createReturnSegments(reg)
	plan, err := e.BuildPlan(segs)
	require.NoError(t, err)

	out := ExplainPlan(plan)
	assert.Contains(t, out, "Query Plan")
	assert.Contains(t, out, "Results")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/engine.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConfig().QueryTimeout, cfg.QueryTimeout)
}

func TestConfigValidateRejectsNegativeValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultCap = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.QueryTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}
