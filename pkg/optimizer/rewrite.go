package optimizer

import "github.com/orneryd/cypherengine/pkg/operators"

// transformChildren rewrites op's direct children with f and, if any of
// them actually changed, rebuilds op around the new set; a leaf (no
// children) is returned unchanged.
func transformChildren(op operators.Op, f func(operators.Op) operators.Op) operators.Op {
	children := op.Children()
	if len(children) == 0 {
		return op
	}
	newChildren := make([]operators.Op, len(children))
	changed := false
	for i, c := range children {
		nc := f(c)
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return op
	}
	return rebuild(op, newChildren)
}

// bottomUp applies f to every node of the tree rooted at op, children
// before parents, threading each rewrite's result back up so a rule that
// rewrites a child is visible to the rule's own application at the
// parent.
func bottomUp(op operators.Op, f func(operators.Op) operators.Op) operators.Op {
	op = transformChildren(op, func(c operators.Op) operators.Op { return bottomUp(c, f) })
	return f(op)
}

// replaceChildAt rebuilds op with its i'th child (as returned by
// Children()) swapped out for nc, leaving every other child untouched.
func replaceChildAt(op operators.Op, i int, nc operators.Op) operators.Op {
	children := op.Children()
	newChildren := make([]operators.Op, len(children))
	copy(newChildren, children)
	newChildren[i] = nc
	return rebuild(op, newChildren)
}

// rebuild reconstructs op as the same concrete kind over newChildren,
// always going through the real constructor so operator-internal fields
// that alias a child (applyBase.Left/Right, Merge.Match/Create) stay in
// sync. Operators with no children (a scan with nothing nested under it,
// Argument, ArgumentList) never reach here since transformChildren only
// calls it when len(children) > 0; the default case returns op itself so an
// unrecognized kind is left alone rather than silently dropped.
func rebuild(op operators.Op, children []operators.Op) operators.Op {
	switch v := op.(type) {
	case *operators.Filter:
		return operators.NewFilter(children[0], v.Tree)
	case *operators.AllNodeScan:
		return operators.NewAllNodeScan(v.Alias, children[0])
	case *operators.LabelScan:
		return operators.NewLabelScan(v.Alias, v.Label, children[0])
	case *operators.Unwind:
		return operators.NewUnwind(children[0], v.Expression, v.Alias)
	case *operators.ProcedureCall:
		return operators.NewProcedureCall(children[0], v.Registry, v.Name, v.Args, v.Yield)
	case *operators.ConditionalTraverse:
		return operators.NewConditionalTraverse(children[0], v.Expr, v.DestAlias, v.EdgeAlias, v.Relations, v.Dir)
	case *operators.VariableLengthTraverse:
		return operators.NewVariableLengthTraverse(children[0], v.Expr, v.DestAlias, v.MinHops, v.MaxHops)
	case *operators.ExpandInto:
		return operators.NewExpandInto(children[0], v.Expr, v.EdgeAlias, v.Relations)
	case *operators.ShortestPathTraverse:
		return operators.NewShortestPathTraverse(children[0], v.Expr, v.PathAlias, v.MinHops, v.MaxHops)
	case *operators.CartesianProduct:
		return operators.NewCartesianProduct(children...)
	case *operators.ValueHashJoin:
		return operators.NewValueHashJoin(children[0], children[1], v.LeftKey, v.RightKey)
	case *operators.UnionJoin:
		return operators.NewUnionJoin(children...)
	case *operators.Apply:
		return operators.NewApply(children[0], children[1], v.Arg)
	case *operators.Optional:
		return operators.NewOptional(children[0], children[1], v.Arg)
	case *operators.SemiApply:
		if v.NameStr == "Anti Semi Apply" {
			return operators.NewAntiSemiApply(children[0], children[1], v.Arg)
		}
		return operators.NewSemiApply(children[0], children[1], v.Arg)
	case *operators.ApplyMultiplexer:
		return operators.NewApplyMultiplexer(v.And, children...)
	case *operators.RollupApply:
		return operators.NewRollupApply(children[0], children[1], v.Arg, v.CollectExpr, v.ResultAlias)
	case *operators.Project:
		return operators.NewProject(children[0], v.Items)
	case *operators.Aggregate:
		return operators.NewAggregate(children[0], v.Keys, v.Aggs)
	case *operators.Distinct:
		return operators.NewDistinct(children[0], v.Aliases)
	case *operators.Sort:
		s := operators.NewSort(children[0], v.Items)
		s.LimitHint = v.LimitHint
		return s
	case *operators.Skip:
		return operators.NewSkip(children[0], v.N)
	case *operators.Limit:
		return operators.NewLimit(children[0], v.N)
	case *operators.Results:
		return operators.NewResults(children[0], v.Cap)
	case *operators.Create:
		return operators.NewCreate(children[0], v.Nodes, v.Edges)
	case *operators.Update:
		return operators.NewUpdate(children[0], v.Sets)
	case *operators.Merge:
		return operators.NewMerge(children[0], v.OnMatchSets, children[1], v.OnCreateSets)
	case *operators.Delete:
		return operators.NewDelete(children[0], v.Aliases, v.Detach)
	case *operators.Foreach:
		return operators.NewForeach(children[0], v.Expression, v.Variable, v.SubPlan, v.ArgList)
	default:
		return op
	}
}

// subtreeAliases returns every alias bound anywhere within op's subtree.
// Op.Modifies() only reports what an operator itself newly binds — a
// Cartesian Product or Apply sums its direct children's Modifies(), but a
// single-child operator like Conditional Traverse or Create reports just
// its own new alias, not the child's (see their constructors). Deciding
// whether a subtree can resolve a given alias therefore requires walking
// all the way down, not just checking the top node.
func subtreeAliases(op operators.Op) []string {
	aliases := append([]string(nil), op.Modifies()...)
	for _, c := range op.Children() {
		aliases = append(aliases, subtreeAliases(c)...)
	}
	return dedupe(aliases)
}

// containsAll reports whether have (as a set) contains every element of need.
func containsAll(have []string, need []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, n := range need {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
