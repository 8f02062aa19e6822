// Package observability provides production-grade observability features
// for the engine: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds engine context to a logger.
// Returns a new logger with thread_id and node_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "thread-123", "classify")
//	enriched.Info("doing work") // includes thread_id, node_id
func EnrichLogger(logger *slog.Logger, threadID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
	)
}

// LogRunStart logs the start of a run call for a thread.
func LogRunStart(logger *slog.Logger, threadID string, resumed bool) {
	if logger == nil {
		return
	}
	logger.Info("thread run starting",
		slog.String("thread_id", threadID),
		slog.Bool("resumed", resumed),
	)
}

// LogRunComplete logs a run call that drove its thread to completion.
func LogRunComplete(logger *slog.Logger, threadID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("thread completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunPaused logs a run call that stopped at an interrupt point.
func LogRunPaused(logger *slog.Logger, threadID, nodeID, status string) {
	if logger == nil {
		return
	}
	logger.Info("thread paused",
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
		slog.String("status", status),
	)
}

// LogRunError logs a run call that failed its thread.
func LogRunError(logger *slog.Logger, threadID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("thread failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogBudgetExhausted logs an iteration ceiling trip.
func LogBudgetExhausted(logger *slog.Logger, threadID, nodeID string, limit int) {
	if logger == nil {
		return
	}
	logger.Warn("iteration budget exhausted",
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
		slog.Int("limit", limit),
	)
}

// LogPatch logs a state patch applied to a paused thread.
func LogPatch(logger *slog.Logger, threadID string, fields []string) {
	if logger == nil {
		return
	}
	logger.Info("thread state patched",
		slog.String("thread_id", threadID),
		slog.Any("fields", fields),
	)
}

// LogCheckpoint logs checkpoint persistence.
func LogCheckpoint(logger *slog.Logger, threadID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("thread_id", threadID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
