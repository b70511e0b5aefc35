// Package ast defines the clause-level structures the plan builder
// consumes (spec §4.3). AST parsing and validation are explicitly out of
// scope (spec §1(ii)); callers construct these structs directly — there is
// no text parser here, only the shapes the builder dispatches on.
package ast

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/querygraph"
)

// Clause is one step of a query segment.
type Clause interface {
	clause()
}

// Segment is a WITH/CALL-delimited slice of a query: an ordered list of
// clauses sharing one record map (spec §3.2's "segment" boundary).
type Segment struct {
	Clauses []Clause
}

// MatchClause binds a pattern against the stored graph. Optional makes it
// an `OPTIONAL MATCH`, which the builder wraps in Apply/Optional instead of
// a bare scan+traverse tree.
type MatchClause struct {
	Pattern  *querygraph.Graph
	Where    filtertree.Tree // nil if no WHERE
	Optional bool
}

func (*MatchClause) clause() {}

// CreateClause creates the given pattern. Aliases already bound earlier in
// the segment are matched, not re-created (spec §4.3).
type CreateClause struct {
	Pattern *querygraph.Graph
}

func (*CreateClause) clause() {}

// UpdateItem is one `SET`/`ON MATCH`/`ON CREATE` assignment: either a
// single property write or a whole-entity merge of a map expression.
type UpdateItem struct {
	Alias       string
	Property    string // empty when Expression replaces/merges the whole entity
	Expression  arithmetic.Expression
	MergeEntity bool // true for `SET n += {...}`, false for `SET n.prop = x`
}

// MergeClause implements `MERGE pattern [ON MATCH ...] [ON CREATE ...]`.
type MergeClause struct {
	Pattern      *querygraph.Graph
	OnMatchSets  []UpdateItem
	OnCreateSets []UpdateItem
}

func (*MergeClause) clause() {}

// ProjectionItem is one `expr AS alias` entry of a WITH/RETURN clause.
type ProjectionItem struct {
	Expression arithmetic.Expression
	Alias      string
}

// SortItem is one `ORDER BY` entry.
type SortItem struct {
	Expression arithmetic.Expression
	Descending bool
}

// WithClause projects/aggregates and may re-filter, sort, skip, or limit
// before the next clause (spec §4.3 "same as WITH").
type WithClause struct {
	Items    []ProjectionItem
	Distinct bool
	Where    filtertree.Tree // post-projection filter, nil if absent
	OrderBy  []SortItem
	Skip     arithmetic.Expression // nil if absent
	Limit    arithmetic.Expression // nil if absent
}

func (*WithClause) clause() {}

// ReturnClause terminates a segment with a Results root (spec §4.3).
type ReturnClause struct {
	Items    []ProjectionItem
	Distinct bool
	OrderBy  []SortItem
	Skip     arithmetic.Expression
	Limit    arithmetic.Expression
}

func (*ReturnClause) clause() {}

// UnwindClause binds each element of a list expression to Alias in turn.
type UnwindClause struct {
	Expression arithmetic.Expression
	Alias      string
}

func (*UnwindClause) clause() {}

// SetClause implements a standalone `SET`.
type SetClause struct {
	Items []UpdateItem
}

func (*SetClause) clause() {}

// RemoveClause deletes a property or a label from an entity.
type RemoveItem struct {
	Alias    string
	Property string // empty when Label is set
	Label    string // empty when Property is set
}

type RemoveClause struct {
	Items []RemoveItem
}

func (*RemoveClause) clause() {}

// DeleteClause deletes bound nodes/edges/paths. Detach also removes
// incident edges of any node being deleted.
type DeleteClause struct {
	Aliases []string
	Detach  bool
}

func (*DeleteClause) clause() {}

// CallClause invokes a registered procedure, `CALL proc(args) YIELD cols`.
type CallClause struct {
	Procedure string
	Args      []arithmetic.Expression
	Yield     []string
}

func (*CallClause) clause() {}

// SubqueryClause is `CALL { subquery }`: a nested segment chain compiled
// with its own record map and joined back via Apply (spec §4.3).
type SubqueryClause struct {
	Segments []*Segment
}

func (*SubqueryClause) clause() {}

// ForeachClause is `FOREACH (v IN expr | clauses)`.
type ForeachClause struct {
	Variable   string
	Expression arithmetic.Expression
	Segments   []*Segment
}

func (*ForeachClause) clause() {}
