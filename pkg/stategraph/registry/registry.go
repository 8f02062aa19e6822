package registry

import "sync"

// Registry is a thread-safe map of values indexed by key.
// The graph builder stores node definitions in one, and the interrupt
// controller keeps its node-id sets in another; both are read-heavy
// after graph construction, hence the RWMutex.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds a value under a key. Returns false without storing if
// the key is already present; first registration wins, so callers can
// surface duplicate registrations as configuration errors.
func (r *Registry[K, V]) Register(key K, value V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return false
	}
	r.entries[key] = value
	return true
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Len returns the number of registered entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns all keys in the registry.
// The order is not guaranteed.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn for every entry until fn returns false.
// The registry lock is held for the duration of the iteration.
func (r *Registry[K, V]) Range(fn func(key K, value V) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, v := range r.entries {
		if !fn(k, v) {
			return
		}
	}
}

// Snapshot returns a copy of the current entries.
func (r *Registry[K, V]) Snapshot() map[K]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[K]V, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}
