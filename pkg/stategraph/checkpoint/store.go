// Package checkpoint provides durable per-thread snapshot storage.
//
// Each thread has exactly one checkpoint: the latest snapshot of its
// state, position, and status. Save overwrites atomically, so a reader
// always sees either the previous snapshot or the new one, never a mix.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists one checkpoint per thread.
// Implementations must be safe for concurrent use and must make Save an
// atomic overwrite: a crash mid-write never leaves a thread readable in
// a half-updated state.
type Store interface {
	// Create stores the initial checkpoint for a new thread.
	// Returns ErrThreadExists if the thread id is already known.
	Create(threadID string, data []byte) error

	// Save atomically overwrites the checkpoint for an existing thread.
	// Returns ErrNotFound if the thread was never created.
	Save(threadID string, data []byte) error

	// Load retrieves the current checkpoint for a thread.
	// Returns ErrNotFound if the thread doesn't exist.
	Load(threadID string) ([]byte, error)

	// Delete removes a thread's checkpoint. Deleting an unknown thread
	// is not an error; retention policy is the caller's concern.
	Delete(threadID string) error

	// List returns metadata for all stored threads, ordered by thread id.
	List() ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides thread metadata without loading full state.
type Info struct {
	ThreadID  string
	Status    Status
	NextNode  string
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates no checkpoint exists for the thread.
	ErrNotFound = errors.New("thread not found")

	// ErrThreadExists indicates Create was called for a known thread id.
	ErrThreadExists = errors.New("thread already exists")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
