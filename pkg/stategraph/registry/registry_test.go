package registry

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistry_RegisterGet covers the basic round trip.
func TestRegistry_RegisterGet(t *testing.T) {
	r := New[string, int]()

	require.True(t, r.Register("a", 1))
	require.True(t, r.Register("b", 2))

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

// TestRegistry_Register_Duplicate keeps the first value and reports the clash.
func TestRegistry_Register_Duplicate(t *testing.T) {
	r := New[string, int]()

	require.True(t, r.Register("a", 1))
	assert.False(t, r.Register("a", 99))

	v, _ := r.Get("a")
	assert.Equal(t, 1, v, "first registration must win")
}

// TestRegistry_Keys returns all registered keys.
func TestRegistry_Keys(t *testing.T) {
	r := New[string, struct{}]()
	r.Register("c", struct{}{})
	r.Register("a", struct{}{})
	r.Register("b", struct{}{})

	keys := r.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

// TestRegistry_Range stops when fn returns false.
func TestRegistry_Range(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("c", 3)

	var visited int
	r.Range(func(key string, value int) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

// TestRegistry_Snapshot returns an independent copy.
func TestRegistry_Snapshot(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)

	snap := r.Snapshot()
	snap["a"] = 99
	snap["b"] = 2

	v, _ := r.Get("a")
	assert.Equal(t, 1, v)
	assert.False(t, r.Has("b"))
}

// TestRegistry_ConcurrentAccess exercises the registry under parallel use.
func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(i, i)
			r.Get(i)
			r.Has(i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}
