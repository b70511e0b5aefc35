package engine

import (
	"fmt"
	"strings"

	"github.com/orneryd/cypherengine/pkg/operators"
)

// ExplainPlan renders a built plan's operator tree as the pre-order
// textual representation spec §6 names ("ExplainPlan(plan) -> string
// tree"). Adapted from the teacher's formatPlan/formatOperator ASCII-box
// texture (pkg/cypher/explain.go), but walking the real operators.Op
// tree via Name()/Children()/Modifies() directly instead of a
// pre-serialized PlanOperator struct built from regexing query text —
// this engine has no separate plan-description type to keep in sync with
// the operator tree.
func ExplainPlan(plan *Plan) string {
	var sb strings.Builder
	const width = 60

	sb.WriteString(fmt.Sprintf("+-%s-+\n", strings.Repeat("-", width)))
	sb.WriteString(fmt.Sprintf("| %-*s |\n", width, "Query Plan"))
	sb.WriteString(fmt.Sprintf("+-%s-+\n", strings.Repeat("-", width)))

	if plan.Root == nil {
		sb.WriteString(fmt.Sprintf("| %-*s |\n", width, "(empty plan)"))
	} else {
		formatOperator(&sb, plan.Root, 0, width)
	}

	sb.WriteString(fmt.Sprintf("+-%s-+\n", strings.Repeat("-", width)))
	return sb.String()
}

func formatOperator(sb *strings.Builder, op operators.Op, depth, width int) {
	indent := strings.Repeat("  ", depth)
	prefix := "+-"
	if depth > 0 {
		prefix = "|" + indent + "+-"
	}

	line := fmt.Sprintf("%s %s", prefix, op.Name())
	if op.IsWriter() {
		line += " (writer)"
	}
	sb.WriteString(fmt.Sprintf("| %-*s |\n", width, truncate(line, width)))

	if mods := op.Modifies(); len(mods) > 0 {
		modsLine := fmt.Sprintf("%s|   modifies: %s", indent, strings.Join(mods, ", "))
		sb.WriteString(fmt.Sprintf("| %-*s |\n", width, truncate(modsLine, width)))
	}

	for _, child := range op.Children() {
		formatOperator(sb, child, depth+1, width)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
