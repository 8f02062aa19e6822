package stategraph

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Context provides execution context to node and router functions.
// It extends context.Context with engine metadata and a logger enriched
// with thread and node identity.
//
// Context is immutable after creation. The executor derives a fresh
// context per node with the NodeID updated.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with thread and
	// node context. Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// ThreadID returns the identifier of the thread being executed.
	ThreadID() string

	// NodeID returns the node currently being executed.
	// Empty string outside node execution.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger   *slog.Logger
	threadID string
	nodeID   string
}

// Logger returns the enriched logger.
func (c *executionContext) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// newContext wraps a standard context with engine metadata.
func newContext(ctx context.Context, logger *slog.Logger, threadID string) *executionContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &executionContext{
		Context:  ctx,
		logger:   logger,
		threadID: threadID,
	}
}

// withNodeID derives a context for one node execution, with the logger
// enriched for that node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context:  c.Context,
		logger:   observability.EnrichLogger(c.logger, c.threadID, nodeID),
		threadID: c.threadID,
		nodeID:   nodeID,
	}
}
