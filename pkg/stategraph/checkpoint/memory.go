package checkpoint

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for tests and
// single-process experiments. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]storedThread
	closed bool
}

// storedThread holds checkpoint bytes plus indexed metadata for List().
type storedThread struct {
	data      []byte
	status    Status
	nextNode  string
	updatedAt time.Time
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedThread),
	}
}

// Create implements Store.
func (m *MemoryStore) Create(threadID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, exists := m.data[threadID]; exists {
		return ErrThreadExists
	}

	m.data[threadID] = newStoredThread(data)
	return nil
}

// Save implements Store.
func (m *MemoryStore) Save(threadID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, exists := m.data[threadID]; !exists {
		return ErrNotFound
	}

	// The map assignment is the commit point: readers under the lock see
	// the old entry or the new one, never partial bytes.
	m.data[threadID] = newStoredThread(data)
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(threadID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	st, ok := m.data[threadID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(st.data))
	copy(result, st.data)
	return result, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, threadID)
	return nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for threadID, st := range m.data {
		infos = append(infos, Info{
			ThreadID:  threadID,
			Status:    st.status,
			NextNode:  st.nextNode,
			UpdatedAt: st.updatedAt,
			Size:      int64(len(st.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ThreadID < infos[j].ThreadID
	})
	return infos, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored threads. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// newStoredThread copies the caller's bytes and indexes envelope
// metadata for List. Metadata stays zero if the bytes aren't a valid
// envelope; the store itself is format-agnostic.
func newStoredThread(data []byte) storedThread {
	stored := make([]byte, len(data))
	copy(stored, data)

	st := storedThread{data: stored, updatedAt: time.Now().UTC()}
	if cp, err := Unmarshal(data); err == nil {
		st.status = cp.Status
		st.nextNode = cp.NextNode
		if !cp.UpdatedAt.IsZero() {
			st.updatedAt = cp.UpdatedAt
		}
	}
	return st
}
