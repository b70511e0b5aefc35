// Package engine wires the planner, optimizer, concurrency coordinator, and
// procedure registry behind the three entry points spec §6 names for the
// core: BuildPlan, ExecutePlan, ExplainPlan. Grounded on the teacher's
// pkg/cypher package, which plays the same "glue everything together and
// expose a result-set shape" role for the original engine.
package engine

import "fmt"

// ErrorKind enumerates the structured error surface spec §7 names. Every
// engine-visible error, however it originates, is reported to a caller as
// one of these kinds plus a message — never a bare Go error or a panic.
type ErrorKind string

const (
	// ParseError is raised by the parsing collaborator; the engine only
	// forwards it (this module owns no parser, so BuildPlan never
	// produces this kind itself — it's here so callers that do front
	// this engine with a parser have a kind to report parse failures
	// under).
	ParseError ErrorKind = "ParseError"

	// UnresolvedReference: a filter or expression references an alias
	// never bound in the plan, raised at plan-build time.
	UnresolvedReference ErrorKind = "UnresolvedReference"

	// InvalidFilterPlacement: no operator in the plan can resolve all of
	// a filter's references, raised at placement time.
	InvalidFilterPlacement ErrorKind = "InvalidFilterPlacement"

	// TypeMismatch: an arithmetic expression evaluated against a record
	// produced a value incompatible with the operator expecting it,
	// raised at runtime.
	TypeMismatch ErrorKind = "TypeMismatch"

	// OutOfMemory: any allocation failure. Plan-build aborts, execution
	// aborts, pending changes are discarded, the RW-lock is released.
	OutOfMemory ErrorKind = "OutOfMemory"

	// Timeout: the query exceeded its budget. Same unwind as OutOfMemory.
	Timeout ErrorKind = "Timeout"

	// ProcedureError: a registered procedure reported failure.
	ProcedureError ErrorKind = "ProcedureError"

	// IndexError: the fulltext or exact index reported a mismatch (e.g.
	// dropping a non-existent index).
	IndexError ErrorKind = "IndexError"
)

// Error is the {kind, message} structured error spec §7 requires flow
// upward instead of a bare error or exception. Unwrap exposes the
// underlying cause so callers can still errors.Is/As against it.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// newError wraps cause under kind, using cause's own message unless msg is
// given explicitly.
func newError(kind ErrorKind, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, cause: cause}
}
