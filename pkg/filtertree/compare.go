package filtertree

import (
	"fmt"
	"strings"
)

func evalCompare(op CompareOp, l, r any) (bool, error) {
	switch op {
	case Eq:
		return equal(l, r), nil
	case Neq:
		return !equal(l, r), nil
	case StartsWith:
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.HasPrefix(ls, rs), nil
	case EndsWith:
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.HasSuffix(ls, rs), nil
	case Contains:
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.Contains(ls, rs), nil
	case In:
		list, ok := r.([]any)
		if !ok {
			return false, fmt.Errorf("filtertree: IN requires a list on the right-hand side")
		}
		for _, item := range list {
			if equal(l, item) {
				return true, nil
			}
		}
		return false, nil
	case Lt, Lte, Gt, Gte:
		lf, lok := toFloat(l)
		rf, rok := toFloat(r)
		if !lok || !rok {
			return false, fmt.Errorf("filtertree: ordering comparison requires numeric operands, got %T and %T", l, r)
		}
		switch op {
		case Lt:
			return lf < rf, nil
		case Lte:
			return lf <= rf, nil
		case Gt:
			return lf > rf, nil
		default:
			return lf >= rf, nil
		}
	default:
		return false, fmt.Errorf("filtertree: unknown comparison operator %q", op)
	}
}

func equal(l, r any) bool {
	if lf, lok := toFloat(l); lok {
		if rf, rok := toFloat(r); rok {
			return lf == rf
		}
	}
	return l == r
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
