package stategraph

import (
	"log/slog"

	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// defaultMaxIterations is the global safety-net step limit per run.
// Per-node ceilings (SetIterationLimit) are the primary loop control;
// this bounds pathological graphs that slip past them.
const defaultMaxIterations = 1000

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger for execution.
// The logger is enriched with thread_id and node_id during execution.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Defaults to observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracing enables OTel span creation using the global tracer provider.
func WithTracing() Option {
	return func(e *Executor) {
		e.spans = observability.NewSpanManager()
		e.tracing = true
	}
}

// WithSpanManager sets a custom span manager and enables tracing.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(e *Executor) {
		if sm != nil {
			e.spans = sm
			e.tracing = true
		}
	}
}

// WithInterruptBefore marks nodes at which execution pauses before the
// node runs, returning control to the caller with status paused_before.
func WithInterruptBefore(ids ...string) Option {
	return func(e *Executor) {
		e.interrupts.addBefore(ids...)
	}
}

// WithInterruptAfter marks nodes at which execution pauses after the
// node runs, returning control with status paused_after and the next
// node already resolved.
func WithInterruptAfter(ids ...string) Option {
	return func(e *Executor) {
		e.interrupts.addAfter(ids...)
	}
}

// WithMaxIterations sets the global safety-net step limit per run.
// Default: 1000. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithConfig applies executor settings from a Config.
//
// Recognized keys:
//   - max_iterations (int): global safety-net step limit
//   - checkpoint_path (string): SQLite path for the default store,
//     used only when no store is passed to NewExecutor
//   - interrupt_before (string list): before-interrupt node IDs
//   - interrupt_after (string list): after-interrupt node IDs
func WithConfig(cfg config.Config) Option {
	return func(e *Executor) {
		if n := cfg.Int("max_iterations", 0); n > 0 {
			e.maxIterations = n
		}
		e.checkpointPath = cfg.String("checkpoint_path", e.checkpointPath)
		e.interrupts.addBefore(cfg.StringSlice("interrupt_before", nil)...)
		e.interrupts.addAfter(cfg.StringSlice("interrupt_after", nil)...)
	}
}
