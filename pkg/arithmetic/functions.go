package arithmetic

import (
	"fmt"
	"strings"
)

// ScalarFunc is a registered scalar function: fixed arguments in, one
// value out. Grounded on the builtin names pkg/cypher/functions.go
// implements inline.
type ScalarFunc func(args []any) (any, error)

var scalarRegistry = map[string]ScalarFunc{
	"coalesce": func(args []any) (any, error) {
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	},
	"length": func(args []any) (any, error) {
		switch v := args[0].(type) {
		case string:
			return int64(len(v)), nil
		case []any:
			return int64(len(v)), nil
		case interface{ Length() int }:
			return int64(v.Length()), nil
		default:
			return nil, fmt.Errorf("arithmetic: length() requires a string, list, or path")
		}
	},
	"toupper": func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("arithmetic: toUpper() requires a string")
		}
		return strings.ToUpper(s), nil
	},
	"tolower": func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("arithmetic: toLower() requires a string")
		}
		return strings.ToLower(s), nil
	},
	"startswith": func(args []any) (any, error) {
		s, _ := args[0].(string)
		prefix, _ := args[1].(string)
		return strings.HasPrefix(s, prefix), nil
	},
	"endswith": func(args []any) (any, error) {
		s, _ := args[0].(string)
		suffix, _ := args[1].(string)
		return strings.HasSuffix(s, suffix), nil
	},
	"contains": func(args []any) (any, error) {
		s, _ := args[0].(string)
		sub, _ := args[1].(string)
		return strings.Contains(s, sub), nil
	},
}

// LookupScalar returns a registered scalar function, case-insensitively.
func LookupScalar(name string) (ScalarFunc, bool) {
	fn, ok := scalarRegistry[strings.ToLower(name)]
	return fn, ok
}

// RegisterScalar adds or overrides a scalar function, used by procedure
// setup code and by tests.
func RegisterScalar(name string, fn ScalarFunc) {
	scalarRegistry[strings.ToLower(name)] = fn
}
