package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Status is the persisted lifecycle state of a thread.
type Status string

// Thread statuses.
const (
	// StatusRunning means a run call is (or was, at crash time) executing.
	StatusRunning Status = "running"

	// StatusPausedBefore means execution stopped before the node named in
	// NextNode; that node has not run.
	StatusPausedBefore Status = "paused_before"

	// StatusPausedAfter means the interrupt node ran; NextNode names its
	// already-resolved successor.
	StatusPausedAfter Status = "paused_after"

	// StatusCompleted means the thread reached the terminal token.
	StatusCompleted Status = "completed"

	// StatusFailed means a node error, routing error, or exhausted
	// iteration budget ended the thread.
	StatusFailed Status = "failed"
)

// Paused reports whether the status is one of the two paused states,
// i.e. whether the thread may be resumed or patched.
func (s Status) Paused() bool {
	return s == StatusPausedBefore || s == StatusPausedAfter
}

// Terminal reports whether the status ends the thread's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Checkpoint is the durable snapshot of one thread: its state record,
// its position in the graph, and its lifecycle status. It contains
// everything needed to resume execution after a pause or a crash.
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version"`
	ThreadID  string    `json:"thread_id"`
	UpdatedAt time.Time `json:"updated_at"`

	// Execution state
	State    json.RawMessage `json:"state"`
	NextNode string          `json:"next_node"`
	Status   Status          `json:"status"`

	// IterationCounts tracks how many times each node has been entered
	// within this thread, for loop budget enforcement.
	IterationCounts map[string]int `json:"iteration_counts,omitempty"`

	// FailureReason describes why Status is failed, e.g. the failing
	// node's error text or "IterationBudgetExceeded".
	FailureReason string `json:"failure_reason,omitempty"`
}

// New creates a checkpoint for a thread. State must already be
// JSON-serialized.
func New(threadID string, state []byte, nextNode string, status Status) *Checkpoint {
	return &Checkpoint{
		Version:         Version,
		ThreadID:        threadID,
		UpdatedAt:       time.Now().UTC(),
		State:           state,
		NextNode:        nextNode,
		Status:          status,
		IterationCounts: make(map[string]int),
	}
}

// WithIterationCounts sets the per-node entry counters.
// The map is copied so later executor mutations don't leak in.
func (c *Checkpoint) WithIterationCounts(counts map[string]int) *Checkpoint {
	copied := make(map[string]int, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	c.IterationCounts = copied
	return c
}

// WithFailureReason records why the thread failed.
func (c *Checkpoint) WithFailureReason(reason string) *Checkpoint {
	c.FailureReason = reason
	return c
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.IterationCounts == nil {
		c.IterationCounts = make(map[string]int)
	}
	return &c, nil
}
