package stategraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Errors collected while building (duplicate nodes, duplicate edges)
//  2. Entry point must be set and reference an existing node
//  3. All edge sources must reference existing nodes
//  4. All edge targets (static and router mapping) must resolve to
//     existing nodes or END
//  5. Every node must have an outgoing edge or router
//  6. A path from the entry point to END must exist
//  7. Iteration limits must name existing nodes and resolvable fallbacks
//  8. Every node on a cycle must have an iteration limit configured
//
// Router mapping targets are enumerated at build time, so reachability
// and cycle analysis are exact, not conservative.
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. Errors recorded during building
	errs = append(errs, g.buildErrs...)

	// 2. Validate entry point
	if g.entry == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if !g.nodes.Has(g.entry) {
		errs = append(errs, fmt.Errorf("%w: entry point %q", ErrUnknownNode, g.entry))
	}

	// 3 & 4. Validate edge references
	for from, e := range g.edges {
		if !g.nodes.Has(from) {
			errs = append(errs, fmt.Errorf("%w: edge source %q", ErrUnknownNode, from))
		}
		for _, to := range edgeTargets(e) {
			if to != END && !g.nodes.Has(to) {
				errs = append(errs, fmt.Errorf("%w: edge target %q from node %q", ErrUnknownNode, to, from))
			}
		}
	}

	// 5. Every node needs a way forward
	for _, id := range g.nodes.Keys() {
		if _, exists := g.edges[id]; !exists {
			errs = append(errs, fmt.Errorf("%w: node %q has no outgoing edge", ErrNoPathToEnd, id))
		}
	}

	// 6. Validate path to END from entry
	if g.entry != "" && g.nodes.Has(g.entry) {
		if !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	// 7. Validate iteration limit references
	for id, lim := range g.limits {
		if !g.nodes.Has(id) {
			errs = append(errs, fmt.Errorf("%w: iteration limit on %q", ErrUnknownNode, id))
		}
		if lim.fallback != END && !g.nodes.Has(lim.fallback) {
			errs = append(errs, fmt.Errorf("%w: iteration fallback %q for node %q", ErrUnknownNode, lim.fallback, id))
		}
	}

	// 8. Every cycle participant needs a ceiling
	loopNodes := g.findCycleNodes()
	for _, id := range loopNodes {
		if _, limited := g.limits[id]; !limited {
			errs = append(errs, fmt.Errorf("%w: %s", ErrLoopWithoutLimit, id))
		}
	}

	// Check for unreachable nodes (warning only)
	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(loopNodes), nil
}

// edgeTargets returns the complete set of targets an edge can resolve to.
// For conditional edges this is the mapping's value set; routers cannot
// reach nodes outside their declared mapping.
func edgeTargets(e edge) []string {
	if !e.conditional() {
		return []string{e.to}
	}
	seen := make(map[string]bool, len(e.mapping))
	targets := make([]string, 0, len(e.mapping))
	for _, to := range e.mapping {
		if !seen[to] {
			seen[to] = true
			targets = append(targets, to)
		}
	}
	sort.Strings(targets)
	return targets
}

// hasPathToEnd checks if a path from the entry point to END exists.
// Reverse propagation over the exact target sets.
func (g *Graph) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false
		for from, e := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range edgeTargets(e) {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entry]
}

// findCycleNodes returns every node that sits on a cycle, sorted.
// A node is a cycle participant iff it can reach itself by traversing
// at least one edge.
func (g *Graph) findCycleNodes() []string {
	var cycleNodes []string
	for _, id := range g.nodes.Keys() {
		if g.reachableFrom(id)[id] {
			cycleNodes = append(cycleNodes, id)
		}
	}
	sort.Strings(cycleNodes)
	return cycleNodes
}

// reachableFrom returns the set of nodes reachable from start's
// successors (start itself is included only if a cycle returns to it).
func (g *Graph) reachableFrom(start string) map[string]bool {
	reachable := make(map[string]bool)
	queue := []string{}

	for _, to := range edgeTargets(g.edges[start]) {
		if to != END && !reachable[to] {
			reachable[to] = true
			queue = append(queue, to)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, to := range edgeTargets(g.edges[current]) {
			if to != END && !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	return reachable
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph) warnUnreachableNodes() {
	if g.entry == "" || !g.nodes.Has(g.entry) {
		return
	}

	reachable := g.reachableFrom(g.entry)
	reachable[g.entry] = true

	for _, id := range g.nodes.Keys() {
		if !reachable[id] {
			slog.Warn("node is unreachable from entry", "node_id", id)
		}
	}
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph(loopNodes []string) *CompiledGraph {
	nodes := g.nodes.Snapshot()

	edges := make(map[string]edge, len(g.edges))
	for from, e := range g.edges {
		if e.conditional() {
			m := make(map[string]string, len(e.mapping))
			for token, target := range e.mapping {
				m[token] = target
			}
			e.mapping = m
		}
		edges[from] = e
	}

	limits := make(map[string]iterationLimit, len(g.limits))
	for id, lim := range g.limits {
		limits[id] = lim
	}

	// Pre-compute successors and predecessors over exact target sets
	successors := make(map[string][]string, len(edges))
	predecessors := make(map[string][]string)
	for from, e := range edges {
		targets := edgeTargets(e)
		successors[from] = targets
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}
	for _, preds := range predecessors {
		sort.Strings(preds)
	}

	loops := make(map[string]bool, len(loopNodes))
	for _, id := range loopNodes {
		loops[id] = true
	}

	return &CompiledGraph{
		name:         g.name,
		schema:       g.schema,
		nodes:        nodes,
		edges:        edges,
		entry:        g.entry,
		limits:       limits,
		successors:   successors,
		predecessors: predecessors,
		loopNodes:    loops,
	}
}
