package planner

import "errors"

// ErrEmptyQuery is returned when BuildQuery is given no segments.
var ErrEmptyQuery = errors.New("planner: query has no segments")

// ErrUnboundEndpoint is the build-time validation failure for a
// shortestPath pattern whose endpoints are not both already resolved by
// an earlier clause (original_source supplement #3 in SPEC_FULL.md: this
// is a plan-build error, not a silently empty result).
var ErrUnboundEndpoint = errors.New("planner: shortestPath requires both pattern endpoints already bound")

// ErrUnknownClause guards against an ast.Clause implementation the
// builder has no dispatch case for.
var ErrUnknownClause = errors.New("planner: unsupported clause type")

// ErrMergeEntityUnsupported is returned when a SET/ON MATCH/ON CREATE
// item is a whole-entity merge ("n += {...}") — this engine's UpdateSet
// shape only expresses single-property writes.
var ErrMergeEntityUnsupported = errors.New("planner: SET n += {...} whole-entity merge is not supported")
