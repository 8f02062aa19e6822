package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// Executor walks a compiled graph for independent, resumable threads.
// Each thread is identified by a caller-supplied ID and owns exactly one
// durable checkpoint: its current state, position, iteration counts, and
// status.
//
// Executor is safe for concurrent use. Calls on the same thread ID
// serialize; distinct threads run concurrently. Within one thread there
// is no internal parallelism: nodes execute synchronously, one at a time.
type Executor struct {
	graph          *CompiledGraph
	store          checkpoint.Store
	ownsStore      bool
	checkpointPath string

	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	tracing    bool
	interrupts *interruptController

	maxIterations int

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// ThreadState is a read-only snapshot of a thread's checkpoint.
type ThreadState struct {
	// Record is the persisted state, decoded against the graph schema.
	Record state.Record
	// NextNode is the node that executes next, or END.
	NextNode string
	// Status is the thread's lifecycle status.
	Status checkpoint.Status
	// IterationCounts holds the cycle guard's per-node entry counters.
	IterationCounts map[string]int
	// FailureReason describes why the thread failed, if it did.
	FailureReason string
	// UpdatedAt is when the checkpoint was last written.
	UpdatedAt time.Time
}

// NewExecutor creates an executor for a compiled graph.
//
// store may be nil: the executor then opens a SQLite store at the
// configured checkpoint_path (see WithConfig), or falls back to an
// in-memory store, and closes it on Close. A store passed in explicitly
// remains owned by the caller.
//
// Interrupt points named by options are validated against the graph.
func NewExecutor(graph *CompiledGraph, store checkpoint.Store, opts ...Option) (*Executor, error) {
	if graph == nil {
		return nil, errors.New("stategraph: compiled graph required")
	}

	e := &Executor{
		graph:         graph,
		store:         store,
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		interrupts:    newInterruptController(),
		maxIterations: defaultMaxIterations,
		threads:       make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.interrupts.validate(graph); err != nil {
		return nil, err
	}

	if e.store == nil {
		if e.checkpointPath != "" {
			s, err := checkpoint.NewSQLiteStore(e.checkpointPath)
			if err != nil {
				return nil, fmt.Errorf("open checkpoint store: %w", err)
			}
			e.store = s
		} else {
			e.store = checkpoint.NewMemoryStore()
		}
		e.ownsStore = true
	}

	return e, nil
}

// Graph returns the compiled graph the executor runs.
func (e *Executor) Graph() *CompiledGraph {
	return e.graph
}

// NewThreadID returns a fresh unique thread identifier.
// Convenience for callers that don't derive thread IDs from their domain.
func NewThreadID() string {
	return uuid.New().String()
}

// Close releases the checkpoint store if the executor opened it.
// Stores passed to NewExecutor are left to their owner.
func (e *Executor) Close() error {
	if e.ownsStore {
		return e.store.Close()
	}
	return nil
}

// Run executes the graph for one thread until it completes, fails, or
// pauses at an interrupt point.
//
// A non-nil initial record starts a new thread; the thread ID must be
// unused (ErrThreadExists otherwise). A nil initial record is the
// resume sentinel: the thread's checkpoint is loaded and execution
// continues from the persisted position (ErrUnknownThread if no
// checkpoint, ErrInvalidResume unless the thread is paused).
//
// Returns the working state at return time and the thread's persisted
// status. On failure the returned error carries node context; the
// checkpoint reflects the failure so GetState reports it accurately.
func (e *Executor) Run(ctx context.Context, threadID string, initial *state.Record) (state.Record, checkpoint.Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if threadID == "" {
		return state.Record{}, "", errors.New("stategraph: thread ID required")
	}

	unlock := e.lockThread(threadID)
	defer unlock()

	resumed := initial == nil
	observability.LogRunStart(e.logger, threadID, resumed)
	start := time.Now()

	var (
		rec        state.Record
		counts     map[string]int
		current    string
		resumePast string
	)

	if resumed {
		cp, loaded, err := e.loadThread(threadID)
		if err != nil {
			return state.Record{}, "", err
		}
		if !cp.Status.Paused() {
			return loaded, cp.Status, fmt.Errorf("%w: thread %s has status %s", ErrInvalidResume, threadID, cp.Status)
		}
		rec = loaded
		counts = cp.IterationCounts
		current = cp.NextNode
		if cp.Status == checkpoint.StatusPausedBefore {
			// The paused node executes once without re-pausing.
			resumePast = cp.NextNode
		}
	} else {
		if initial.Schema() != e.graph.Schema() {
			return state.Record{}, "", fmt.Errorf("stategraph: %w: initial state uses a different schema", state.ErrSchemaMismatch)
		}
		rec = initial.Clone()
		counts = make(map[string]int)
		current = e.graph.EntryPoint()

		data, err := e.encodeCheckpoint(threadID, rec, current, checkpoint.StatusRunning, counts, "")
		if err != nil {
			return rec, "", err
		}
		if err := e.store.Create(threadID, data); err != nil {
			if errors.Is(err, checkpoint.ErrThreadExists) {
				return rec, "", fmt.Errorf("thread %s: %w", threadID, ErrThreadExists)
			}
			return rec, "", &CheckpointError{ThreadID: threadID, Op: "create", Err: err}
		}
		e.metrics.RecordCheckpoint(ctx, threadID, int64(len(data)))
	}

	execCtx := newContext(ctx, e.logger, threadID)

	var tracingCtx context.Context = execCtx
	var runSpan trace.Span
	if e.tracing {
		tracingCtx, runSpan = e.spans.StartRunSpan(execCtx, e.graph.Name(), threadID)
	}

	status, nodeCount, runErr := e.runLoop(tracingCtx, execCtx, threadID, &rec, current, counts, resumePast)

	if e.tracing {
		e.spans.EndSpanWithError(runSpan, runErr)
	}

	duration := time.Since(start)
	durationMs := float64(duration.Milliseconds())
	e.metrics.RecordRun(ctx, string(status), duration)

	switch {
	case runErr != nil:
		observability.LogRunError(e.logger, threadID, runErr, durationMs, lastNode(runErr))
	case status.Paused():
		// Pause details were logged at the interrupt point.
	default:
		observability.LogRunComplete(e.logger, threadID, durationMs, nodeCount)
	}

	return rec, status, runErr
}

// Resume continues a paused thread.
// Equivalent to Run with a nil initial record.
func (e *Executor) Resume(ctx context.Context, threadID string) (state.Record, checkpoint.Status, error) {
	return e.Run(ctx, threadID, nil)
}

// GetState returns a read-only snapshot of a thread's checkpoint.
// It never mutates the thread.
func (e *Executor) GetState(ctx context.Context, threadID string) (ThreadState, error) {
	unlock := e.lockThread(threadID)
	defer unlock()

	cp, rec, err := e.loadThread(threadID)
	if err != nil {
		return ThreadState{}, err
	}

	counts := make(map[string]int, len(cp.IterationCounts))
	for id, n := range cp.IterationCounts {
		counts[id] = n
	}

	return ThreadState{
		Record:          rec,
		NextNode:        cp.NextNode,
		Status:          cp.Status,
		IterationCounts: counts,
		FailureReason:   cp.FailureReason,
		UpdatedAt:       cp.UpdatedAt,
	}, nil
}

// PatchState merges a partial record into a paused thread's persisted
// state, leaving position, status, and iteration counts untouched. This
// is the only sanctioned way to inject externally-sourced decisions
// (approvals, corrections) before resuming.
//
// Returns ErrInvalidPatchState unless the thread is paused; the patched
// fields are visible to the very next node the resumed thread executes.
func (e *Executor) PatchState(ctx context.Context, threadID string, delta state.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}

	unlock := e.lockThread(threadID)
	defer unlock()

	cp, rec, err := e.loadThread(threadID)
	if err != nil {
		return err
	}
	if !cp.Status.Paused() {
		return fmt.Errorf("%w: thread %s has status %s", ErrInvalidPatchState, threadID, cp.Status)
	}

	merged, err := state.Merge(rec, delta)
	if err != nil {
		return fmt.Errorf("patch thread %s: %w", threadID, err)
	}

	if err := e.persist(ctx, threadID, merged, cp.NextNode, cp.Status, cp.IterationCounts, cp.FailureReason); err != nil {
		return err
	}

	observability.LogPatch(e.logger, threadID, delta.SetFields())
	return nil
}

// Threads lists metadata for every stored thread, ordered by thread ID.
func (e *Executor) Threads() ([]checkpoint.Info, error) {
	return e.store.List()
}

// runLoop walks the graph from current until END, a failure, or an
// interrupt point. It mutates *rec as nodes contribute partial updates
// and persists a snapshot after every step, so the checkpoint always
// reflects the thread's true last-known state.
func (e *Executor) runLoop(tracingCtx context.Context, ec *executionContext, threadID string, rec *state.Record, current string, counts map[string]int, resumePast string) (checkpoint.Status, int, error) {
	nodeCount := 0
	steps := 0

	// Set when the cycle guard trips; the give-up path then runs to END
	// and the thread ends failed with reason ReasonIterationBudget.
	var budgetErr *IterationBudgetError

	for {
		if current == END {
			if budgetErr != nil {
				if err := e.persist(ec, threadID, *rec, END, checkpoint.StatusFailed, counts, ReasonIterationBudget); err != nil {
					return checkpoint.StatusRunning, nodeCount, err
				}
				return checkpoint.StatusFailed, nodeCount, budgetErr
			}
			if err := e.persist(ec, threadID, *rec, END, checkpoint.StatusCompleted, counts, ""); err != nil {
				return checkpoint.StatusRunning, nodeCount, err
			}
			return checkpoint.StatusCompleted, nodeCount, nil
		}

		steps++
		if steps > e.maxIterations {
			maxErr := &MaxIterationsError{Max: e.maxIterations, LastNodeID: current}
			if err := e.persist(ec, threadID, *rec, current, checkpoint.StatusFailed, counts, maxErr.Error()); err != nil {
				return checkpoint.StatusRunning, nodeCount, err
			}
			return checkpoint.StatusFailed, nodeCount, maxErr
		}

		// Cancellation check between nodes. The checkpoint keeps its
		// last persisted snapshot; the thread is not marked failed.
		select {
		case <-ec.Done():
			return checkpoint.StatusRunning, nodeCount, &CancellationError{NodeID: current, Cause: ec.Err()}
		default:
		}

		// Before-interrupt: stop without executing, position unchanged.
		// Suppressed while resuming past this exact interrupt and on the
		// cycle guard's give-up path.
		if budgetErr == nil && e.interrupts.Before(current) && current != resumePast {
			if err := e.persist(ec, threadID, *rec, current, checkpoint.StatusPausedBefore, counts, ""); err != nil {
				return checkpoint.StatusRunning, nodeCount, err
			}
			observability.LogRunPaused(e.logger, threadID, current, string(checkpoint.StatusPausedBefore))
			e.metrics.RecordPause(ec, current, true)
			return checkpoint.StatusPausedBefore, nodeCount, nil
		}
		if current == resumePast {
			resumePast = ""
		}

		// Cycle guard: entries count toward the ceiling whether or not
		// the node then fails. The (limit+1)th entry trips before
		// execution and routes to the give-up target.
		if max, fallback, limited := e.graph.IterationLimit(current); limited && budgetErr == nil {
			counts[current]++
			if counts[current] > max {
				budgetErr = &IterationBudgetError{NodeID: current, Limit: max}
				observability.LogBudgetExhausted(e.logger, threadID, current, max)
				current = fallback
				continue
			}
		}

		n, exists := e.graph.getNode(current)
		if !exists {
			// Unreachable after a successful Compile.
			err := &NodeError{NodeID: current, Op: "lookup", Err: ErrUnknownNode}
			e.persist(ec, threadID, *rec, current, checkpoint.StatusFailed, counts, err.Error())
			return checkpoint.StatusFailed, nodeCount, err
		}

		observability.LogNodeStart(e.logger, current)
		nodeCtx := ec.withNodeID(current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if e.tracing {
			nodeTracingCtx, nodeSpan = e.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()

		var delta state.Record
		var nodeErr error
		if n.kind == kindCompute {
			delta, nodeErr = e.executeNode(nodeCtx, n, *rec)
		}

		nodeDuration := time.Since(nodeStart)
		e.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if e.tracing {
			e.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			// Fatal for the thread. No engine-level retry; the failed
			// node's partial result is discarded.
			observability.LogNodeError(e.logger, current, nodeErr)
			if err := e.persist(ec, threadID, *rec, current, checkpoint.StatusFailed, counts, nodeErr.Error()); err != nil {
				return checkpoint.StatusRunning, nodeCount, errors.Join(nodeErr, err)
			}
			return checkpoint.StatusFailed, nodeCount, nodeErr
		}

		observability.LogNodeComplete(e.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		// Merge the node's partial update into the working state.
		if n.kind == kindCompute && delta.Len() > 0 {
			merged, mergeErr := state.Merge(*rec, delta)
			if mergeErr != nil {
				err := &NodeError{NodeID: current, Op: "merge", Err: mergeErr}
				if perr := e.persist(ec, threadID, *rec, current, checkpoint.StatusFailed, counts, err.Error()); perr != nil {
					return checkpoint.StatusRunning, nodeCount, errors.Join(err, perr)
				}
				return checkpoint.StatusFailed, nodeCount, err
			}
			*rec = merged
		}

		// Resolve the successor. The router sees exactly the state that
		// is persisted below, never stale data.
		next, routeErr := e.nextNode(nodeCtx, *rec, current)
		if routeErr != nil {
			if err := e.persist(ec, threadID, *rec, current, checkpoint.StatusFailed, counts, routeErr.Error()); err != nil {
				return checkpoint.StatusRunning, nodeCount, errors.Join(routeErr, err)
			}
			return checkpoint.StatusFailed, nodeCount, routeErr
		}

		// After-interrupt: the node ran and its successor is resolved;
		// resuming continues from next directly.
		if budgetErr == nil && e.interrupts.After(current) {
			if err := e.persist(ec, threadID, *rec, next, checkpoint.StatusPausedAfter, counts, ""); err != nil {
				return checkpoint.StatusRunning, nodeCount, err
			}
			observability.LogRunPaused(e.logger, threadID, current, string(checkpoint.StatusPausedAfter))
			e.metrics.RecordPause(ec, current, false)
			return checkpoint.StatusPausedAfter, nodeCount, nil
		}

		if err := e.persist(ec, threadID, *rec, next, checkpoint.StatusRunning, counts, ""); err != nil {
			return checkpoint.StatusRunning, nodeCount, err
		}
		current = next
	}
}

// executeNode runs a single compute node with panic recovery.
// The node receives a clone of the working state, so in-place mutation
// by a node function never corrupts the executor's copy.
func (e *Executor) executeNode(ctx Context, n node, rec state.Record) (delta state.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			delta = state.Record{}
			err = &PanicError{
				NodeID: n.id,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	delta, err = n.fn(ctx, rec.Clone())
	if err != nil {
		return delta, &NodeError{NodeID: n.id, Op: "execute", Err: err}
	}
	return delta, nil
}

// nextNode resolves a node's successor through its outgoing edge.
// Static edges resolve directly. Conditional edges evaluate the router
// and translate the token through the declared mapping; an unmapped
// token fails with a RouterError unless DefaultTarget is registered.
func (e *Executor) nextNode(ctx Context, rec state.Record, current string) (string, error) {
	eg, exists := e.graph.getEdge(current)
	if !exists {
		// Unreachable after a successful Compile.
		return "", &NodeError{NodeID: current, Op: "routing", Err: errors.New("no outgoing edge")}
	}

	if !eg.conditional() {
		return eg.to, nil
	}

	token := eg.router(ctx, rec.Clone())
	if token == END {
		return END, nil
	}
	if target, ok := eg.mapping[token]; ok {
		return target, nil
	}
	if target, ok := eg.mapping[DefaultTarget]; ok {
		return target, nil
	}
	return "", &RouterError{FromNode: current, Token: token, Err: ErrUnknownRouteToken}
}

// persist writes the thread's current snapshot to the store.
// Persistence failures are fatal to the run; the store owns the durable
// copy and a run must never outlive its checkpoint.
func (e *Executor) persist(ctx context.Context, threadID string, rec state.Record, next string, status checkpoint.Status, counts map[string]int, reason string) error {
	data, err := e.encodeCheckpoint(threadID, rec, next, status, counts, reason)
	if err != nil {
		return err
	}

	if err := e.store.Save(threadID, data); err != nil {
		return &CheckpointError{ThreadID: threadID, Op: "save", Err: err}
	}

	observability.LogCheckpoint(e.logger, threadID, len(data))
	e.metrics.RecordCheckpoint(ctx, threadID, int64(len(data)))
	return nil
}

// encodeCheckpoint serializes state and envelope for one snapshot.
func (e *Executor) encodeCheckpoint(threadID string, rec state.Record, next string, status checkpoint.Status, counts map[string]int, reason string) ([]byte, error) {
	stateBytes, err := json.Marshal(rec)
	if err != nil {
		return nil, &CheckpointError{ThreadID: threadID, Op: "encode", Err: err}
	}

	cp := checkpoint.New(threadID, stateBytes, next, status).
		WithIterationCounts(counts)
	if reason != "" {
		cp = cp.WithFailureReason(reason)
	}

	data, err := cp.Marshal()
	if err != nil {
		return nil, &CheckpointError{ThreadID: threadID, Op: "encode", Err: err}
	}
	return data, nil
}

// loadThread loads and decodes a thread's checkpoint.
func (e *Executor) loadThread(threadID string) (*checkpoint.Checkpoint, state.Record, error) {
	data, err := e.store.Load(threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, state.Record{}, fmt.Errorf("thread %s: %w", threadID, ErrUnknownThread)
		}
		return nil, state.Record{}, &CheckpointError{ThreadID: threadID, Op: "load", Err: err}
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, state.Record{}, &CheckpointError{ThreadID: threadID, Op: "decode", Err: err}
	}
	if cp.Version != checkpoint.Version {
		return nil, state.Record{}, &CheckpointError{
			ThreadID: threadID,
			Op:       "decode",
			Err:      fmt.Errorf("checkpoint version %d, expected %d", cp.Version, checkpoint.Version),
		}
	}

	rec, err := e.graph.Schema().Decode(cp.State)
	if err != nil {
		return nil, state.Record{}, &CheckpointError{ThreadID: threadID, Op: "decode", Err: err}
	}

	return cp, rec, nil
}

// lockThread acquires the per-thread mutex, creating it on first use.
func (e *Executor) lockThread(threadID string) func() {
	e.mu.Lock()
	m, exists := e.threads[threadID]
	if !exists {
		m = &sync.Mutex{}
		e.threads[threadID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// lastNode extracts the node context from a run error, for logging.
func lastNode(err error) string {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr.NodeID
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return panicErr.NodeID
	}
	var routerErr *RouterError
	if errors.As(err, &routerErr) {
		return routerErr.FromNode
	}
	var budget *IterationBudgetError
	if errors.As(err, &budget) {
		return budget.NodeID
	}
	var maxErr *MaxIterationsError
	if errors.As(err, &maxErr) {
		return maxErr.LastNodeID
	}
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return cancelErr.NodeID
	}
	return ""
}
