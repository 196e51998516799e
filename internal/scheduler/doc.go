// Package scheduler decides which node instances of an execution graph can
// run.
//
// # Why Scheduler Exists
//
// The scheduler separates "what can run" from "how to run it". The executor
// owns workers and state transitions; the scheduler only inspects the graph.
//
//   - Ready lists the pending nodes whose dependencies have all completed.
//     The executor seeds its queue with it and the planner uses it to show
//     what would start first.
//   - Levels groups every node into topological levels: level 0 has no
//     dependencies, level n depends only on lower levels. Nodes that can
//     never be levelled form a cycle and are reported as an error.
//
// Both functions return nodes sorted by ID, so plans print the same way on
// every run.
package scheduler
