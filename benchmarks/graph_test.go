package benchmarks

import (
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/state"
)

// benchSchema is the minimal schema shared by the benchmarks.
func benchSchema() *state.Schema {
	return state.NewSchema().Int("value")
}

// noopNode does minimal work to measure framework overhead.
func noopNode(ctx stategraph.Context, s state.Record) (state.Record, error) {
	return s.Schema().NewRecord(), nil
}

// BenchmarkNewGraph measures graph creation overhead.
func BenchmarkNewGraph(b *testing.B) {
	schema := benchSchema()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stategraph.New(schema)
	}
}

// BenchmarkAddNode measures node addition overhead.
func BenchmarkAddNode(b *testing.B) {
	schema := benchSchema()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.New(schema)
		graph.AddNode("node", noopNode)
	}
}

// BenchmarkAddNode_10 measures adding 10 nodes.
func BenchmarkAddNode_10(b *testing.B) {
	schema := benchSchema()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.New(schema)
		for j := 0; j < 10; j++ {
			graph.AddNode(nodeID(j), noopNode)
		}
	}
}

// BenchmarkAddNode_100 measures adding 100 nodes.
func BenchmarkAddNode_100(b *testing.B) {
	schema := benchSchema()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.New(schema)
		for j := 0; j < 100; j++ {
			graph.AddNode(nodeID(j), noopNode)
		}
	}
}

// BenchmarkCompile_Linear_5 compiles a 5-node linear graph.
func BenchmarkCompile_Linear_5(b *testing.B) {
	benchCompile(b, 5)
}

// BenchmarkCompile_Linear_10 compiles a 10-node linear graph.
func BenchmarkCompile_Linear_10(b *testing.B) {
	benchCompile(b, 10)
}

// BenchmarkCompile_Linear_50 compiles a 50-node linear graph.
func BenchmarkCompile_Linear_50(b *testing.B) {
	benchCompile(b, 50)
}

// BenchmarkCompile_Linear_100 compiles a 100-node linear graph.
func BenchmarkCompile_Linear_100(b *testing.B) {
	benchCompile(b, 100)
}

// BenchmarkCompile_Branching compiles a graph with a conditional edge.
func BenchmarkCompile_Branching(b *testing.B) {
	graph := buildBranchingGraph()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Loop compiles a graph with a bounded cycle.
func BenchmarkCompile_Loop(b *testing.B) {
	graph := buildLoopGraph(3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// Helper functions

func benchCompile(b *testing.B, n int) {
	b.Helper()
	graph := buildLinearGraph(n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearGraph(n int) *stategraph.Graph {
	graph := stategraph.New(benchSchema())
	for i := 0; i < n; i++ {
		graph.AddNode(nodeID(i), noopNode)
	}
	for i := 0; i < n-1; i++ {
		graph.AddEdge(nodeID(i), nodeID(i+1))
	}
	graph.AddEdge(nodeID(n-1), stategraph.END)
	graph.SetEntry(nodeID(0))
	return graph
}

func buildBranchingGraph() *stategraph.Graph {
	router := func(ctx stategraph.Context, s state.Record) string {
		if v, _ := s.GetInt("value"); v%2 == 0 {
			return "even"
		}
		return "odd"
	}

	return stategraph.New(benchSchema()).
		AddNode("start", noopNode).
		AddNode("even", noopNode).
		AddNode("odd", noopNode).
		AddNode("merge", noopNode).
		AddConditionalEdge("start", router, map[string]string{
			"even": "even",
			"odd":  "odd",
		}).
		AddEdge("even", "merge").
		AddEdge("odd", "merge").
		AddEdge("merge", stategraph.END).
		SetEntry("start")
}

// buildLoopGraph cycles through loop until value reaches n. The
// iteration ceiling sits well above n so the router ends the loop.
func buildLoopGraph(n int) *stategraph.Graph {
	loopNode := func(ctx stategraph.Context, s state.Record) (state.Record, error) {
		v, _ := s.GetInt("value")
		d := s.Schema().NewRecord()
		if err := d.Set("value", v+1); err != nil {
			return d, err
		}
		return d, nil
	}

	router := func(ctx stategraph.Context, s state.Record) string {
		if v, _ := s.GetInt("value"); v >= int64(n) {
			return "done"
		}
		return "loop"
	}

	return stategraph.New(benchSchema()).
		AddNode("loop", loopNode).
		AddNode("done", noopNode).
		AddConditionalEdge("loop", router, map[string]string{
			"loop": "loop",
			"done": "done",
		}).
		AddEdge("done", stategraph.END).
		SetEntry("loop").
		SetIterationLimit("loop", n+10, "done")
}
