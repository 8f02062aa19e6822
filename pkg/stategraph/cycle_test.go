package stategraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// fixRetestGraph builds the canonical fix <-> retest loop whose router
// always asks for another round. fixes counts fix executions; escalated
// flips when the give-up node runs.
func fixRetestGraph(schema *state.Schema, fixes *int, escalated *bool) *Graph {
	return New(schema).
		AddNode("fix", func(_ Context, s state.Record) (state.Record, error) {
			*fixes++
			return s.Schema().NewRecord(), nil
		}).
		AddNode("retest", passNode()).
		AddNode("escalate", func(_ Context, s state.Record) (state.Record, error) {
			*escalated = true
			return s.Schema().NewRecord(), nil
		}).
		AddEdge("fix", "retest").
		AddConditionalEdge("retest",
			func(_ Context, _ state.Record) string { return "retry" },
			map[string]string{"retry": "fix", "done": END}).
		AddEdge("escalate", END).
		SetEntry("fix").
		SetIterationLimit("fix", 3, "escalate").
		SetIterationLimit("retest", 10, END)
}

// TestCycleGuard_TerminatesAtCeiling stops an always-retry loop after
// exactly k executions of the limited node: the (k+1)th entry trips the
// guard, the give-up node runs, and the thread ends failed with reason
// IterationBudgetExceeded.
func TestCycleGuard_TerminatesAtCeiling(t *testing.T) {
	schema := testSchema()
	fixes := 0
	escalated := false
	exec := newTestExecutor(t, fixRetestGraph(schema, &fixes, &escalated))
	ctx := context.Background()

	initial := schema.NewRecord()
	_, status, err := exec.Run(ctx, "thread-1", &initial)
	require.Error(t, err)
	assert.Equal(t, checkpoint.StatusFailed, status)
	assert.ErrorIs(t, err, ErrIterationBudget)

	var budgetErr *IterationBudgetError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, "fix", budgetErr.NodeID)
	assert.Equal(t, 3, budgetErr.Limit)

	assert.Equal(t, 3, fixes, "ceiling k allows exactly k executions")
	assert.True(t, escalated, "give-up node must run")

	ts, err := exec.GetState(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusFailed, ts.Status)
	assert.Equal(t, ReasonIterationBudget, ts.FailureReason)
	assert.Equal(t, 4, ts.IterationCounts["fix"], "k+1 entries recorded")
	assert.Equal(t, 3, ts.IterationCounts["retest"])
}

// TestCycleGuard_FallbackEND fails immediately when the give-up target
// is the terminal token.
func TestCycleGuard_FallbackEND(t *testing.T) {
	schema := testSchema()
	spins := 0
	g := New(schema).
		AddNode("spin", func(_ Context, s state.Record) (state.Record, error) {
			spins++
			return s.Schema().NewRecord(), nil
		}).
		AddConditionalEdge("spin",
			func(_ Context, _ state.Record) string { return "again" },
			map[string]string{"again": "spin", "done": END}).
		SetEntry("spin").
		SetIterationLimit("spin", 2, END)
	exec := newTestExecutor(t, g)

	initial := schema.NewRecord()
	_, status, err := exec.Run(context.Background(), "thread-1", &initial)
	require.Error(t, err)
	assert.Equal(t, checkpoint.StatusFailed, status)
	assert.ErrorIs(t, err, ErrIterationBudget)
	assert.Equal(t, 2, spins)
}

// TestCycleGuard_BudgetFailureIsNotNodeError keeps the give-up terminal
// distinct from node execution failures.
func TestCycleGuard_BudgetFailureIsNotNodeError(t *testing.T) {
	schema := testSchema()
	fixes := 0
	escalated := false
	exec := newTestExecutor(t, fixRetestGraph(schema, &fixes, &escalated))

	initial := schema.NewRecord()
	_, _, err := exec.Run(context.Background(), "thread-1", &initial)
	require.Error(t, err)

	var nodeErr *NodeError
	assert.False(t, errors.As(err, &nodeErr))
	var panicErr *PanicError
	assert.False(t, errors.As(err, &panicErr))
}

// TestCycleGuard_CountsPersistAcrossPauses carries entry counters
// through pause and resume, so the ceiling spans the whole thread.
func TestCycleGuard_CountsPersistAcrossPauses(t *testing.T) {
	schema := testSchema()
	fixes := 0
	escalated := false
	g := fixRetestGraph(schema, &fixes, &escalated)
	exec := newTestExecutor(t, g, WithInterruptAfter("retest"))
	ctx := context.Background()

	initial := schema.NewRecord()
	_, status, err := exec.Run(ctx, "thread-1", &initial)
	require.NoError(t, err)
	require.Equal(t, checkpoint.StatusPausedAfter, status)
	require.Equal(t, 1, fixes)

	// Resume until the ceiling trips; each round pauses after retest.
	for i := 0; i < 2; i++ {
		_, status, err = exec.Resume(ctx, "thread-1")
		require.NoError(t, err)
		require.Equal(t, checkpoint.StatusPausedAfter, status)
	}

	_, status, err = exec.Resume(ctx, "thread-1")
	require.Error(t, err)
	assert.Equal(t, checkpoint.StatusFailed, status)
	assert.ErrorIs(t, err, ErrIterationBudget)
	assert.Equal(t, 3, fixes)
	assert.True(t, escalated)
}

// TestCycleGuard_NodeErrorCountsTowardCeiling records the entry even
// when the node then fails.
func TestCycleGuard_NodeErrorCountsTowardCeiling(t *testing.T) {
	schema := testSchema()
	attempts := 0
	g := New(schema).
		AddNode("flaky", func(_ Context, s state.Record) (state.Record, error) {
			attempts++
			if attempts == 2 {
				return s.Schema().NewRecord(), errors.New("transient")
			}
			return s.Schema().NewRecord(), nil
		}).
		AddConditionalEdge("flaky",
			func(_ Context, _ state.Record) string { return "again" },
			map[string]string{"again": "flaky", "done": END}).
		SetEntry("flaky").
		SetIterationLimit("flaky", 5, END)
	exec := newTestExecutor(t, g)
	ctx := context.Background()

	initial := schema.NewRecord()
	_, status, err := exec.Run(ctx, "thread-1", &initial)
	require.Error(t, err)
	assert.Equal(t, checkpoint.StatusFailed, status)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "flaky", nodeErr.NodeID)

	ts, err := exec.GetState(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, 2, ts.IterationCounts["flaky"], "the failing entry still counts")
}
