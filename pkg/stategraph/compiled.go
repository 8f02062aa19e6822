package stategraph

import (
	"sort"

	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be shared by any number of
// Executors and threads. The graph structure cannot be modified after
// compilation.
//
// Use the introspection methods (NodeIDs, Successors, RouterTargets,
// etc.) to examine the graph structure for debugging or visualization.
type CompiledGraph struct {
	name   string
	schema *state.Schema
	nodes  map[string]node
	edges  map[string]edge
	entry  string
	limits map[string]iterationLimit

	// Pre-computed for efficient lookup
	successors   map[string][]string
	predecessors map[string][]string
	loopNodes    map[string]bool
}

// Name returns the graph's descriptive name.
func (cg *CompiledGraph) Name() string {
	return cg.name
}

// Schema returns the state schema the graph was compiled with.
func (cg *CompiledGraph) Schema() *state.Schema {
	return cg.schema
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entry
}

// NodeIDs returns all node identifiers in the graph, sorted.
func (cg *CompiledGraph) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// IsCheckpointNode reports whether the node is a pass-through
// checkpoint node.
func (cg *CompiledGraph) IsCheckpointNode(id string) bool {
	n, exists := cg.nodes[id]
	return exists && n.kind == kindCheckpoint
}

// Successors returns every node ID (or END) the given node can transition
// to. For conditional edges this is the declared mapping's target set.
// Returns nil for unknown nodes.
func (cg *CompiledGraph) Successors(id string) []string {
	return cg.successors[id]
}

// Predecessors returns the node IDs that can transition to the given node.
// Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node's outgoing edge is router-driven.
func (cg *CompiledGraph) IsConditional(id string) bool {
	return cg.edges[id].conditional()
}

// RouterTargets returns the declared token mapping for a conditional
// node, or nil if the node's edge is static or unknown.
func (cg *CompiledGraph) RouterTargets(id string) map[string]string {
	e := cg.edges[id]
	if !e.conditional() {
		return nil
	}
	m := make(map[string]string, len(e.mapping))
	for token, target := range e.mapping {
		m[token] = target
	}
	return m
}

// IterationLimit returns the cycle guard configuration for a node.
// ok is false if the node has no ceiling configured.
func (cg *CompiledGraph) IterationLimit(id string) (max int, fallback string, ok bool) {
	lim, exists := cg.limits[id]
	return lim.max, lim.fallback, exists
}

// LoopNodes returns the IDs of every node that sits on a cycle, sorted.
func (cg *CompiledGraph) LoopNodes() []string {
	ids := make([]string, 0, len(cg.loopNodes))
	for id := range cg.loopNodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// getNode returns the node for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph) getNode(id string) (node, bool) {
	n, exists := cg.nodes[id]
	return n, exists
}

// getEdge returns the outgoing edge for the given node.
// Used internally by the executor.
func (cg *CompiledGraph) getEdge(id string) (edge, bool) {
	e, exists := cg.edges[id]
	return e, exists
}
