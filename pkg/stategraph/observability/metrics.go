package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordRun records a run call completion with its terminal status
	// ("completed", "paused_before", "paused_after", "failed").
	RecordRun(ctx context.Context, status string, duration time.Duration)

	// RecordPause records a stop at an interrupt point.
	RecordPause(ctx context.Context, nodeID string, before bool)

	// RecordCheckpoint records a checkpoint save operation.
	RecordCheckpoint(ctx context.Context, threadID string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	pauses         metric.Int64Counter
	checkpointSize metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("stategraph")

	nodeExecutions, err := meter.Int64Counter("stategraph.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("stategraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("stategraph.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("stategraph.run.calls",
		metric.WithDescription("Number of run calls by terminal status"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("stategraph.run.latency_ms",
		metric.WithDescription("Run call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	pauses, err := meter.Int64Counter("stategraph.run.pauses",
		metric.WithDescription("Number of interrupt-point pauses"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("stategraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		runs:           runs,
		runLatency:     runLatency,
		pauses:         pauses,
		checkpointSize: checkpointSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_id", nodeID),
	}

	m.nodeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRun records a run call.
func (m *otelMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPause records an interrupt-point pause.
func (m *otelMetrics) RecordPause(ctx context.Context, nodeID string, before bool) {
	m.pauses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.Bool("before", before),
	))
}

// RecordCheckpoint records a checkpoint save.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, threadID string, sizeBytes int64) {
	attrs := []attribute.KeyValue{
		attribute.String("thread_id", threadID),
	}
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attrs...))
}
