package engine

import (
	"context"
	"errors"

	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/concurrency"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/optimizer"
	"github.com/orneryd/cypherengine/pkg/planner"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/record"
)

// Engine ties one graph's store, procedure registry, and lock pair to
// the three entry points spec §6 names (BuildPlan, ExecutePlan,
// ExplainPlan) behind a single handle, the way the teacher's pkg/cypher
// package wraps a store + registry pair for its own Execute/Explain
// surface.
type Engine struct {
	Store  graph.Store
	Procs  *procedures.Registry
	Config *Config

	commit *concurrency.CommitCoordinator
}

// New wires an Engine over an already-constructed store and procedure
// registry, with its own graph-wide and key-space locks (spec §5). cfg
// may be nil, in which case DefaultConfig is used.
func New(store graph.Store, procs *procedures.Registry, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		Store:  store,
		Procs:  procs,
		Config: cfg,
		commit: concurrency.NewCommitCoordinator(concurrency.NewGraphLock(), concurrency.NewKeySpaceLock()),
	}
}

// BuildPlan translates an ordered list of plan segments into a physical
// plan and runs it through the optimizer's rewrite passes (spec §6:
// "BuildPlan(ast, graph_ctx) -> plan"). Planner failures are classified
// into the structured error kinds spec §7 defines; anything the planner
// didn't anticipate surfaces as a generic engine error rather than a raw
// Go error escaping to the caller.
func (e *Engine) BuildPlan(segments []*ast.Segment) (*Plan, error) {
	root, m, err := planner.BuildQuery(segments, e.Store, e.Procs)
	if err != nil {
		return nil, classifyBuildError(err)
	}
	root = optimizer.Optimize(root, e.Store)
	return &Plan{Root: root, Map: m, Columns: outputColumns(segments)}, nil
}

// classifyBuildError maps a planner sentinel error to its spec §7 error
// kind. ErrUnboundEndpoint is the one build-time validation failure the
// planner raises that corresponds directly to a named kind
// (UnresolvedReference: a pattern endpoint is referenced before it is
// ever bound); the rest don't map cleanly onto the runtime-oriented
// kinds spec §7 enumerates, so they're reported as InvalidFilterPlacement
// — the closest named "the plan as given cannot be built" kind — with
// the planner's own message preserved.
func classifyBuildError(err error) error {
	switch {
	case errors.Is(err, planner.ErrUnboundEndpoint):
		return newError(UnresolvedReference, "", err)
	default:
		return newError(InvalidFilterPlacement, "", err)
	}
}

// ExecuteResult is what ExecutePlan hands back to a caller: the result
// set's column names and rows, plus the aggregate write statistics spec
// §6 requires ("nodes created, relationships created, properties set,
// labels added, indexes created, etc.").
type ExecuteResult struct {
	Columns []string
	Rows    [][]any
	Stats   *QueryStats
}

// QueryStats mirrors operators.WriteStats's counters at the engine's
// public boundary (spec §6, teacher's pkg/cypher.QueryStats template),
// plus IndexesCreated/IndexesDropped which no write operator tracks —
// index management runs through CALL db.createIndex/db.dropIndex
// (pkg/procedures/builtins.go), entirely outside the write-operator
// stats path. Left at zero rather than threaded through the procedure
// registry's generic Cursor interface, which has no stats-reporting
// hook of its own; documented as a known gap in DESIGN.md.
type QueryStats struct {
	NodesCreated         int64
	NodesDeleted         int64
	RelationshipsCreated int64
	RelationshipsDeleted int64
	PropertiesSet        int64
	LabelsAdded          int64
	LabelsRemoved        int64
	IndexesCreated       int64
	IndexesDropped       int64
}

func statsFromWriteStats(ws operators.WriteStats) *QueryStats {
	return &QueryStats{
		NodesCreated:         ws.NodesCreated,
		NodesDeleted:         ws.NodesDeleted,
		RelationshipsCreated: ws.RelationshipsCreated,
		RelationshipsDeleted: ws.RelationshipsDeleted,
		PropertiesSet:        ws.PropertiesSet,
		LabelsAdded:          ws.LabelsAdded,
		LabelsRemoved:        ws.LabelsRemoved,
	}
}

// ExecutePlan drains a built plan to completion under the lock
// discipline spec §5 names (read-mode for a pure reader, the staged
// read-then-commit sequence for a plan containing any writer operator),
// converts the drained records into output rows, and reports aggregate
// write statistics (spec §6).
//
// ctx's deadline is checked once per drained record — the coarse,
// operator-boundary granularity spec §5 calls for ("no cooperative
// cancellation inside matrix kernels"); a cancelled context surfaces as
// a Timeout-kind Error rather than ctx.Err() directly, keeping the
// error surface uniform.
func (e *Engine) ExecutePlan(ctx context.Context, plan *Plan, params map[string]any) (*ExecuteResult, error) {
	if e.Config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.QueryTimeout)
		defer cancel()
	}
	ectx := &operators.ExecContext{
		Store:     e.Store,
		Params:    params,
		Map:       plan.Map,
		BatchSize: e.Config.BatchSize,
		ResultCap: e.Config.ResultCap,
	}

	writer := isWriter(plan.Root)
	run := e.commit.RunRead
	if writer {
		run = e.commit.RunWrite
	}

	var rows [][]any
	err := run(func() error {
		if err := plan.Root.Init(ectx); err != nil {
			return newError(OutOfMemory, "", err)
		}
		defer plan.Root.Free()

		for {
			if err := ctx.Err(); err != nil {
				return newError(Timeout, "query cancelled or deadline exceeded", err)
			}
			rec, err := plan.Root.Consume()
			if err != nil {
				return classifyRuntimeError(err)
			}
			if rec == nil {
				return nil
			}
			rows = append(rows, recordToRow(rec, plan.Columns))
		}
	})
	if err != nil {
		return nil, err
	}

	var stats *QueryStats
	if writer {
		stats = statsFromWriteStats(operators.CollectWriteStats(plan.Root))
	} else {
		stats = &QueryStats{}
	}

	return &ExecuteResult{Columns: plan.Columns, Rows: rows, Stats: stats}, nil
}

// classifyRuntimeError maps an error surfaced mid-drain to its spec §7
// kind. Operators report plain errors (fmt.Errorf) for arithmetic and
// procedure failures rather than pre-classified ones, so this inspects
// nothing structural and falls back to TypeMismatch, the most common
// runtime failure mode (an arithmetic expression evaluated against a
// record producing a value the consuming operator can't use).
func classifyRuntimeError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(TypeMismatch, "", err)
}

// isWriter reports whether any operator in the plan (root or a
// descendant) is a writer, determining whether ExecutePlan routes
// through CommitCoordinator.RunRead or RunWrite (spec §5).
func isWriter(op operators.Op) bool {
	if op.IsWriter() {
		return true
	}
	for _, c := range op.Children() {
		if isWriter(c) {
			return true
		}
	}
	return false
}

// recordToRow projects a drained record's bound columns into the plain
// []any shape a result set caller can serialize, resolving each
// projected column's current value via the shared record map. Graph
// entities (node/edge/path slots) are passed through as-is — this
// engine's result set has no JSON/wire encoding step of its own (spec
// §6: persistence and serialization are out of scope), so entity
// identity is preserved for a caller to format however it needs.
func recordToRow(rec *record.Record, columns []string) []any {
	row := make([]any, len(columns))
	for i, alias := range columns {
		slot, ok := rec.Get(alias)
		if !ok {
			continue
		}
		row[i] = slotValue(slot)
	}
	return row
}

func slotValue(s record.Slot) any {
	switch s.Type {
	case record.SlotNode:
		return s.Node
	case record.SlotEdge:
		return s.Edge
	case record.SlotPath:
		return s.Path
	case record.SlotScalar:
		return s.Scalar
	default:
		return nil
	}
}
