package stategraph

import "github.com/randalmurphal/stategraph/pkg/stategraph/state"

// END is the terminal token.
// Use it as an edge target or router mapping target to indicate the
// thread should complete.
const END = "__end__"

// DefaultTarget is the reserved router-mapping key for an explicit
// fallback. If present, tokens outside the mapping route to its target
// instead of failing with a RouterError. Registering it is a deliberate
// choice by the graph author; without it, unmapped tokens are an error.
const DefaultTarget = "__default__"

// NodeFunc is the signature for compute node functions.
// Nodes receive the execution context and the current state record, and
// return a partial update: a record containing only the fields they
// changed. The executor merges the returned fields into the working
// state; fields the node does not mention survive unchanged.
//
// The returned record must be built on the same schema as the input.
// Returning the zero Record (or an empty one) means "no changes".
//
// Example:
//
//	func increment(ctx stategraph.Context, s state.Record) (state.Record, error) {
//	    n, _ := s.GetInt("count")
//	    delta := s.Schema().NewRecord()
//	    if err := delta.Set("count", n+1); err != nil {
//	        return delta, err
//	    }
//	    return delta, nil
//	}
type NodeFunc func(ctx Context, s state.Record) (state.Record, error)

// RouterFunc decides, from current state, which token to follow next.
// The returned token is resolved through the mapping declared with
// AddConditionalEdge; it is never interpreted as a node ID directly.
type RouterFunc func(ctx Context, s state.Record) string

// nodeKind distinguishes compute nodes from pass-through checkpoint nodes.
type nodeKind int

const (
	// kindCompute nodes run their function to completion synchronously.
	kindCompute nodeKind = iota

	// kindCheckpoint nodes are no-op placeholders whose sole purpose is
	// to be an interrupt target. They participate in the edge graph but
	// never touch state.
	kindCheckpoint
)

// node is one registered unit of work.
type node struct {
	id   string
	kind nodeKind
	fn   NodeFunc // nil for kindCheckpoint
}
