package optimizer

import (
	"strings"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/record"
)

// pathExpr builds a record.Path out of a row's already-bound node/edge
// slots, in the order their aliases were listed — the value a
// `topath(...)` call collapses a matched chain into.
type pathExpr struct{ aliases []string }

func (p *pathExpr) Aliases() []string { return append([]string(nil), p.aliases...) }
func (p *pathExpr) Clone() arithmetic.Expression {
	return &pathExpr{aliases: append([]string(nil), p.aliases...)}
}

func (p *pathExpr) Eval(ctx *arithmetic.Context) (any, error) {
	path := &record.Path{}
	for _, alias := range p.aliases {
		slot, ok := ctx.Record.Get(alias)
		if !ok {
			continue
		}
		switch slot.Type {
		case record.SlotNode:
			path.Nodes = append(path.Nodes, slot.Node)
		case record.SlotEdge:
			path.Edges = append(path.Edges, slot.Edge)
		}
	}
	return path, nil
}

// firstElemExpr unwraps RollupApply's single-collected-element list back
// into a bare value, for the topath rewrite's single-path (not list)
// result.
type firstElemExpr struct{ alias string }

func (f *firstElemExpr) Aliases() []string             { return []string{f.alias} }
func (f *firstElemExpr) Clone() arithmetic.Expression   { return &firstElemExpr{alias: f.alias} }
func (f *firstElemExpr) Eval(ctx *arithmetic.Context) (any, error) {
	slot, ok := ctx.Record.Get(f.alias)
	if !ok {
		return nil, nil
	}
	list, _ := slot.Scalar.([]any)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// postBuildRollup is rule 12: rewrite `topath(...)` Project items into a
// Roll-Up-Apply feeding from a single-row Argument tap (so it collects
// from exactly the row it was pushed), followed by unwrapping the
// resulting one-element collected array back into a bare Path value.
func postBuildRollup(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		p, ok := op.(*operators.Project)
		if !ok {
			return op
		}
		cur := p.Children()[0]
		newItems := make([]operators.ProjectItem, len(p.Items))
		changed := false
		for i, it := range p.Items {
			call, ok := it.Expr.(*arithmetic.Op)
			if !ok || !strings.EqualFold(call.Name, "topath") {
				newItems[i] = it
				continue
			}
			changed = true
			var aliases []string
			for _, arg := range call.Args {
				aliases = append(aliases, arg.Aliases()...)
			}
			arg := operators.NewArgument(subtreeAliases(cur))
			cur = operators.NewRollupApply(cur, arg, arg, &pathExpr{aliases: aliases}, it.Alias)
			newItems[i] = operators.ProjectItem{Expr: &firstElemExpr{alias: it.Alias}, Alias: it.Alias}
		}
		if !changed {
			return op
		}
		return operators.NewProject(cur, newItems)
	})
}
