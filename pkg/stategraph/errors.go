package stategraph

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Sentinel errors for graph building and compilation.
// These are configuration errors: fatal, detected eagerly by Compile,
// never retried.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrDuplicateNode indicates the same node ID was registered twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrDuplicateEdge indicates a node was given more than one outgoing
	// edge or router. Fan-out is expressed through router tokens only.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrUnknownNode indicates an edge, router mapping, entry point, or
	// iteration fallback references a node that was never registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoPathToEnd indicates the entry point cannot reach END.
	ErrNoPathToEnd = errors.New("no path to END from entry")

	// ErrLoopWithoutLimit indicates a node sits on a cycle but has no
	// iteration ceiling configured via SetIterationLimit.
	ErrLoopWithoutLimit = errors.New("cycle node has no iteration limit")
)

// Sentinel errors for execution.
var (
	// ErrUnknownRouteToken indicates a router returned a token outside
	// its declared mapping and no DefaultTarget fallback was registered.
	ErrUnknownRouteToken = errors.New("router returned unmapped token")

	// ErrIterationBudget indicates a thread ended because a limited node
	// was entered more times than its configured ceiling allows.
	ErrIterationBudget = errors.New("iteration budget exceeded")

	// ErrMaxIterations indicates the run exceeded the global safety-net
	// step limit. Distinct from ErrIterationBudget, which is per-node.
	ErrMaxIterations = errors.New("exceeded maximum iterations")
)

// Resume-protocol errors: caller misuse, surfaced immediately with no
// state mutation. Thread existence errors share identity with the
// checkpoint package so errors.Is works across layers.
var (
	// ErrThreadExists indicates Run was called with an initial state for
	// a thread ID that already has a checkpoint.
	ErrThreadExists = checkpoint.ErrThreadExists

	// ErrUnknownThread indicates a resume, GetState, or PatchState call
	// named a thread that was never created.
	ErrUnknownThread = checkpoint.ErrNotFound

	// ErrInvalidResume indicates a resume was attempted on a thread that
	// is not paused.
	ErrInvalidResume = errors.New("thread is not paused")

	// ErrInvalidPatchState indicates PatchState was called on a thread
	// that is not paused.
	ErrInvalidPatchState = errors.New("thread is not paused for patching")
)

// FailureReason values recorded in the checkpoint when a thread fails.
const (
	// ReasonIterationBudget marks a thread that ended via the cycle
	// guard's give-up path.
	ReasonIterationBudget = "IterationBudgetExceeded"
)

// NodeError wraps an error with node context.
// It identifies which node failed and what operation was attempted.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed (e.g., "execute", "merge").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// RouterError wraps errors from conditional edge routing.
// A router returning a token outside its mapping is fatal to the run:
// the thread is marked failed, never silently routed to an arbitrary branch.
type RouterError struct {
	// FromNode is the node with the conditional edge.
	FromNode string
	// Token is the value the router returned.
	Token string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Token, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// IterationBudgetError reports that a thread ended through the cycle
// guard's give-up path. The thread's checkpoint carries status failed
// with reason ReasonIterationBudget.
type IterationBudgetError struct {
	// NodeID is the limited node whose ceiling was tripped.
	NodeID string
	// Limit is the configured ceiling.
	Limit int
}

// Error implements the error interface.
func (e *IterationBudgetError) Error() string {
	return fmt.Sprintf("node %s entered more than %d times", e.NodeID, e.Limit)
}

// Unwrap returns ErrIterationBudget for errors.Is support.
func (e *IterationBudgetError) Unwrap() error {
	return ErrIterationBudget
}

// MaxIterationsError provides context when the global step limit is exceeded.
type MaxIterationsError struct {
	// Max is the configured step limit.
	Max int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}

// CancellationError reports that the caller's context was cancelled
// between node executions. The thread's checkpoint keeps its last
// persisted snapshot; the thread can be inspected but not resumed.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// CheckpointError wraps errors from checkpoint persistence during a run.
type CheckpointError struct {
	// ThreadID is the thread whose checkpoint operation failed.
	ThreadID string
	// Op is the operation that failed ("encode", "create", "save", "load", "decode").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s for thread %s: %v", e.Op, e.ThreadID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
