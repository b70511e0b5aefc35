package optimizer

import "github.com/orneryd/cypherengine/pkg/operators"

// reduceCartesianProduct is rule 8: when a Filter directly above a
// Cartesian Product only references a strict subset of its streams,
// split the product so the filter runs over just that subset — the
// narrower product materializes fewer combinations before the remaining
// streams fan out across it.
func reduceCartesianProduct(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		cp, ok := f.Children()[0].(*operators.CartesianProduct)
		if !ok {
			return op
		}
		streams := cp.Children()
		required := dedupe(f.Tree.CollectModified())
		var referenced, other []operators.Op
		for _, s := range streams {
			if intersects(subtreeAliases(s), required) {
				referenced = append(referenced, s)
			} else {
				other = append(other, s)
			}
		}
		if len(referenced) == 0 || len(referenced) == len(streams) {
			return op
		}
		var sub operators.Op
		if len(referenced) == 1 {
			sub = referenced[0]
		} else {
			sub = operators.NewCartesianProduct(referenced...)
		}
		filtered := operators.NewFilter(sub, f.Tree)
		return operators.NewCartesianProduct(append([]operators.Op{filtered}, other...)...)
	})
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// migrateArguments is rule 9: drop a Cartesian Product stream that is
// nothing but a bare scan re-resolving an alias a sibling stream already
// produces — a redundant rescan left behind when two independently built
// components happen to bind the same alias (e.g. a MERGE branch spliced
// next to a MATCH branch during the apply-ops rewrite).
func migrateArguments(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		cp, ok := op.(*operators.CartesianProduct)
		if !ok {
			return op
		}
		streams := cp.Children()
		keep := make([]operators.Op, 0, len(streams))
		for i, s := range streams {
			alias, ok := scanAlias(s)
			if ok && len(s.Children()) == 0 && producedElsewhere(streams, i, alias) {
				continue
			}
			keep = append(keep, s)
		}
		if len(keep) == len(streams) {
			return op
		}
		if len(keep) == 1 {
			return keep[0]
		}
		return operators.NewCartesianProduct(keep...)
	})
}

func producedElsewhere(streams []operators.Op, skip int, alias string) bool {
	for i, s := range streams {
		if i == skip {
			continue
		}
		for _, m := range subtreeAliases(s) {
			if m == alias {
				return true
			}
		}
	}
	return false
}
