// Package graph provides a unified facade for managing the execution graph,
// combining static topology (DAG structure) and dynamic state (execution status).
//
// # Why Graph Package Exists
//
// The graph package serves as a facade that simplifies interaction with the dual-store
// architecture (topology + node state). Instead of requiring components to coordinate
// between two separate stores, the Graph interface provides a single, cohesive API.
//
// This design provides several architectural benefits:
//   - **Unified API:** Executor and scheduler interact with one clean interface
//   - **Encapsulation:** Hides the dual-store implementation detail from consumers
//   - **Convenience:** Combines data from both stores (e.g., DependenciesOf returns full nodes)
//   - **Flexibility:** Future implementations can add caching, event hooks, or validation
//   - **Clarity:** Business logic doesn't know about storage implementation details
//
// # Architecture: The Facade Pattern
//
// The Graph is a thin facade over two specialized stores:
//
//	┌─────────────────────────────────────┐
//	│           Graph Facade              │
//	│  (Unified API for executor/         │
//	│   scheduler to query & update)      │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │   Store    │  │   Store    │
//	  │ (Structure)│  │  (Status)  │
//	  └────────────┘  └────────────┘
//
// **Topology Store** (topologystore.Store):
//   - Manages the immutable DAG structure (nodes and dependency edges)
//   - Write-once during graph construction, read-many during execution
//   - Queried by: AllNodes(), Node(), DependenciesOf(), DependentsOf()
//
// **Node Store** (nodestore.Store):
//   - Manages mutable execution state (status, outputs, errors)
//   - Continuously updated throughout execution
//   - Queried by: NodeStatus(), Output(), NodeError()
//   - Updated by: MarkRunning(), MarkCompleted(), MarkFailed(), MarkSkipped()
//
// # Lifecycle
//
//  1. **Creation:** The workflow builder creates a graph with in-memory stores
//  2. **Population:** The builder adds node instances and dependencies through Manager.Topology()
//  3. **Execution:** The executor, scheduler and processor use the Graph interface
//  4. **Disposal:** The graph is discarded when the plan has run
//
// # Usage Patterns
//
// **Scheduler** queries graph to find ready nodes:
//
//	for _, n := range g.AllNodes(ctx) {
//	    deps, _ := g.DependenciesOf(ctx, n.Address())
//	    status, _ := g.NodeStatus(ctx, n.Address())
//	    // Determine if node is ready to run
//	}
//
// **Executor** updates graph as nodes execute:
//
//	g.MarkRunning(ctx, id)
//	out, err := process(ctx, n)
//	if err != nil {
//	    g.MarkFailed(ctx, id, err)
//	} else {
//	    g.MarkCompleted(ctx, id, out)
//	}
//
// **Processor** reads upstream outputs while resolving inputs:
//
//	out, _ := g.Output(ctx, upstreamID)
//	value := out["out_file"]
//
// # Thread-Safety
//
// All Graph methods are thread-safe. Thread-safety is guaranteed by delegating
// to the underlying thread-safe stores (topologystore and nodestore).
//
// # Key Types
//
// **Graph** (interface.go): The main interface for interacting with the execution graph.
// Provides methods for querying structure, checking status, and updating state.
//
// **Manager** (graph.go): The reference implementation that composes a
// topologystore.Store and a nodestore.Store. Status transitions are mirrored
// onto the node's atomic state so the executor can read it without a store lookup.
package graph
