// Package stategraph is a directed state-graph execution engine: it
// threads a schema-typed state record through named processing nodes,
// chooses successors via static edges or router functions, pauses at
// configured interrupt points for external input, and bounds cycles
// with per-node iteration ceilings.
//
// Build a graph with New, register nodes and edges, then Compile for
// eager validation. An Executor runs compiled graphs for independent,
// resumable threads, persisting one durable checkpoint per thread after
// every step.
//
//	schema := state.NewSchema().String("title").Bool("approved")
//
//	graph := stategraph.New(schema).
//	    AddNode("draft", draftNode).
//	    AddNode("publish", publishNode).
//	    AddEdge("draft", "publish").
//	    AddEdge("publish", stategraph.END).
//	    SetEntry("draft")
//
//	compiled, err := graph.Compile()
//	exec, err := stategraph.NewExecutor(compiled, store,
//	    stategraph.WithInterruptBefore("publish"))
//
//	initial := schema.NewRecord().MustSet("title", "hello")
//	rec, status, err := exec.Run(ctx, "thread-1", &initial)
//	// status == paused_before: inspect, patch, resume
//	err = exec.PatchState(ctx, "thread-1", approval)
//	rec, status, err = exec.Resume(ctx, "thread-1")
//
// Node functions return partial updates: only the fields they changed.
// The executor merges them structurally into the working state, so
// unmentioned fields always survive. Node functions are opaque domain
// collaborators; the engine never interprets their contents.
package stategraph
