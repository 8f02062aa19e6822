package stategraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// Graph is a mutable builder for creating execution graphs.
// Use New with a state schema, then chain AddNode, AddEdge, and
// SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph
// that can be safely shared.
//
// Programmer errors (empty IDs, nil functions, reserved names) panic
// immediately. Configuration errors (duplicate nodes or edges, dangling
// references) are collected and reported together by Compile.
//
// Example:
//
//	schema := state.NewSchema().String("title").String("draft")
//	graph := stategraph.New(schema).
//	    AddNode("write", writeNode).
//	    AddNode("polish", polishNode).
//	    AddEdge("write", "polish").
//	    AddEdge("polish", stategraph.END).
//	    SetEntry("write")
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu        sync.RWMutex
	name      string
	schema    *state.Schema
	nodes     *registry.Registry[string, node]
	edges     map[string]edge
	entry     string
	limits    map[string]iterationLimit
	buildErrs []error
}

// edge is a node's single outgoing transition: either a static target
// or a router with its token mapping. Exactly one of the two forms is set.
type edge struct {
	to      string
	router  RouterFunc
	mapping map[string]string
}

// conditional reports whether the edge is router-driven.
func (e edge) conditional() bool {
	return e.router != nil
}

// iterationLimit is the cycle guard configuration for one node.
type iterationLimit struct {
	max      int
	fallback string
}

// New creates a graph builder for the given state schema.
// All records flowing through the graph are typed against this schema.
// Panics if schema is nil.
func New(schema *state.Schema) *Graph {
	if schema == nil {
		panic("stategraph: schema cannot be nil")
	}
	return &Graph{
		name:   "stategraph",
		schema: schema,
		nodes:  registry.New[string, node](),
		edges:  make(map[string]edge),
		limits: make(map[string]iterationLimit),
	}
}

// SetName gives the graph a descriptive name, used in logs and trace
// spans. Defaults to "stategraph". Returns the graph for chaining.
func (g *Graph) SetName(name string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name != "" {
		g.name = name
	}
	return g
}

// Schema returns the state schema the graph was built with.
func (g *Graph) Schema() *state.Schema {
	return g.schema
}

// AddNode adds a named compute node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty, reserved, or contains whitespace
//   - fn is nil
//
// A duplicate id is a configuration error reported by Compile.
func (g *Graph) AddNode(id string, fn NodeFunc) *Graph {
	validateNodeID(id)
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	g.registerNode(node{id: id, kind: kindCompute, fn: fn})
	return g
}

// AddCheckpointNode adds a pass-through node whose only job is to be an
// interrupt target. It participates in edges normally but never touches
// state. Returns the graph for method chaining.
func (g *Graph) AddCheckpointNode(id string) *Graph {
	validateNodeID(id)
	g.registerNode(node{id: id, kind: kindCheckpoint})
	return g
}

// registerNode records a node, collecting a duplicate as a compile error.
func (g *Graph) registerNode(n node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.nodes.Register(n.id, n) {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrDuplicateNode, n.id))
	}
}

// AddEdge adds the static outgoing edge for a node.
// The target can be a node ID or stategraph.END.
// Returns the graph for method chaining.
//
// Each node has exactly one outgoing edge or router; a second
// registration for the same node is a configuration error reported
// by Compile. Target validation also happens at Compile time, so edges
// can be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: node %s already has an outgoing edge", ErrDuplicateEdge, from))
		return g
	}
	g.edges[from] = edge{to: to}
	return g
}

// AddConditionalEdge adds the router-driven outgoing edge for a node.
// The router returns a token; mapping translates tokens to target node
// IDs or END. The mapping is the router's complete legal token space:
// a token outside it fails the run with a RouterError, unless the
// author registered stategraph.DefaultTarget as an explicit fallback key.
// Returns the graph for method chaining.
//
// Panics if router is nil or mapping is empty. Mapping targets are
// validated at Compile time.
func (g *Graph) AddConditionalEdge(from string, router RouterFunc, mapping map[string]string) *Graph {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}
	if len(mapping) == 0 {
		panic("stategraph: router mapping cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: node %s already has an outgoing edge", ErrDuplicateEdge, from))
		return g
	}

	m := make(map[string]string, len(mapping))
	for token, target := range mapping {
		m[token] = target
	}
	g.edges[from] = edge{router: router, mapping: m}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile(). Returns the graph for chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph) SetEntry(id string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entry = id
	return g
}

// SetIterationLimit configures the cycle guard for a node: a ceiling on
// how many times the node may be entered within one thread, and the
// give-up target (a node ID or END) to route to when the ceiling trips.
// Every node that sits on a cycle must have a limit configured, or
// Compile fails with ErrLoopWithoutLimit.
// Returns the graph for method chaining.
//
// Panics if max is less than 1. Node and fallback references are
// validated at Compile time.
func (g *Graph) SetIterationLimit(id string, max int, fallback string) *Graph {
	if max < 1 {
		panic("stategraph: iteration limit must be at least 1")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.limits[id] = iterationLimit{max: max, fallback: fallback}
	return g
}

// validateNodeID panics on programmer errors in node naming.
func validateNodeID(id string) {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END || idLower == DefaultTarget {
		panic(fmt.Sprintf("stategraph: node ID %q is reserved", id))
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}
}
