package stategraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// testSchema covers the fields the engine tests exercise.
func testSchema() *state.Schema {
	return state.NewSchema().
		Int("x").
		Int("y").
		Int("z").
		Bool("flag").
		Bool("approved").
		String("route").
		Int("attempts")
}

// deltaWith builds a partial record on the given schema.
func deltaWith(t *testing.T, schema *state.Schema, fields map[string]any) state.Record {
	t.Helper()
	d := schema.NewRecord()
	for name, v := range fields {
		require.NoError(t, d.Set(name, v))
	}
	return d
}

// setField returns a node function that sets a single field.
func setField(name string, value any) NodeFunc {
	return func(_ Context, s state.Record) (state.Record, error) {
		d := s.Schema().NewRecord()
		if err := d.Set(name, value); err != nil {
			return d, err
		}
		return d, nil
	}
}

// passNode returns a node function that makes no changes.
func passNode() NodeFunc {
	return func(_ Context, s state.Record) (state.Record, error) {
		return s.Schema().NewRecord(), nil
	}
}

// visitNode returns a node function that appends its id to visits.
func visitNode(id string, visits *[]string) NodeFunc {
	return func(_ Context, s state.Record) (state.Record, error) {
		*visits = append(*visits, id)
		return s.Schema().NewRecord(), nil
	}
}

// newTestExecutor compiles the graph and wraps it with an executor
// backed by an in-memory store.
func newTestExecutor(t *testing.T, g *Graph, opts ...Option) *Executor {
	t.Helper()
	compiled, err := g.Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(compiled, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })
	return exec
}

// linearGraph builds the three-node chain A -> B -> C where A sets x=1,
// B sets y=x+1, and C sets z=y*2. Returns the graph with its schema so
// callers can build records on the same instance.
func linearGraph() (*Graph, *state.Schema) {
	schema := testSchema()
	g := New(schema).
		AddNode("A", setField("x", int64(1))).
		AddNode("B", func(_ Context, s state.Record) (state.Record, error) {
			x, _ := s.GetInt("x")
			d := s.Schema().NewRecord()
			if err := d.Set("y", x+1); err != nil {
				return d, err
			}
			return d, nil
		}).
		AddNode("C", func(_ Context, s state.Record) (state.Record, error) {
			y, _ := s.GetInt("y")
			d := s.Schema().NewRecord()
			if err := d.Set("z", y*2); err != nil {
				return d, err
			}
			return d, nil
		}).
		AddEdge("A", "B").
		AddEdge("B", "C").
		AddEdge("C", END).
		SetEntry("A")
	return g, schema
}
