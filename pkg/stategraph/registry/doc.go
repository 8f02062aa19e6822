// Package registry provides a small thread-safe keyed store used for
// engine bookkeeping: node definitions in the graph builder and node-id
// sets in the interrupt controller. First registration wins; duplicates
// are reported to the caller rather than overwritten, because a
// duplicate node id is a graph configuration error, not an update.
package registry
