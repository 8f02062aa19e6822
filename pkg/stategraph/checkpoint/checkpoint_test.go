package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies checkpoint construction defaults.
func TestNew(t *testing.T) {
	cp := New("thread-1", []byte(`{"x":1}`), "classify", StatusRunning)

	assert.Equal(t, Version, cp.Version)
	assert.Equal(t, "thread-1", cp.ThreadID)
	assert.Equal(t, "classify", cp.NextNode)
	assert.Equal(t, StatusRunning, cp.Status)
	assert.NotNil(t, cp.IterationCounts)
	assert.False(t, cp.UpdatedAt.IsZero())
}

// TestCheckpoint_MarshalRoundTrip verifies serialization fidelity.
func TestCheckpoint_MarshalRoundTrip(t *testing.T) {
	cp := New("thread-1", []byte(`{"x":1}`), "fix", StatusPausedBefore).
		WithIterationCounts(map[string]int{"fix": 2, "retest": 2}).
		WithFailureReason("")

	data, err := cp.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, cp.ThreadID, decoded.ThreadID)
	assert.Equal(t, cp.NextNode, decoded.NextNode)
	assert.Equal(t, cp.Status, decoded.Status)
	assert.Equal(t, map[string]int{"fix": 2, "retest": 2}, decoded.IterationCounts)
	assert.JSONEq(t, `{"x":1}`, string(decoded.State))
}

// TestCheckpoint_WithIterationCounts_Copies verifies the counter map is copied.
func TestCheckpoint_WithIterationCounts_Copies(t *testing.T) {
	counts := map[string]int{"a": 1}
	cp := New("t", nil, "a", StatusRunning).WithIterationCounts(counts)

	counts["a"] = 99
	assert.Equal(t, 1, cp.IterationCounts["a"])
}

// TestUnmarshal_Invalid rejects malformed data.
func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

// TestUnmarshal_NilCounts normalizes a missing counter map.
func TestUnmarshal_NilCounts(t *testing.T) {
	cp, err := Unmarshal([]byte(`{"version":1,"thread_id":"t","state":{},"next_node":"a","status":"running"}`))
	require.NoError(t, err)
	assert.NotNil(t, cp.IterationCounts)
}

// TestStatus_Predicates covers Paused and Terminal.
func TestStatus_Predicates(t *testing.T) {
	assert.True(t, StatusPausedBefore.Paused())
	assert.True(t, StatusPausedAfter.Paused())
	assert.False(t, StatusRunning.Paused())
	assert.False(t, StatusCompleted.Paused())

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPausedBefore.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
