package graph

import (
	"context"

	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

// Graph is a unified interface for interacting with the execution DAG, combining
// static topology queries with dynamic state updates.
//
// **Scheduler** uses Graph to query all nodes, their dependencies and status.
//
// **Executor** uses Graph to look up dependents and update execution state.
//
// **Processor** uses Graph to read the outputs of upstream instances.
//
// Implementations MUST be thread-safe, as multiple workers execute nodes in
// parallel and simultaneously query and update the graph.
type Graph interface {
	// Node retrieves a node instance by its address.
	Node(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns every node instance, sorted by ID.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the full nodes the given node depends on, sorted by ID.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// DependentsOf returns the full nodes that depend on the given node, sorted by ID.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// NodeStatus returns the status of a node and whether the node exists.
	NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool)

	// Output returns the outputs recorded for a completed node.
	Output(ctx context.Context, id nodeid.Address) (iface.Outputs, error)

	// NodeError returns the failure recorded for a node, if any.
	NodeError(ctx context.Context, id nodeid.Address) (error, error)

	MarkRunning(ctx context.Context, id nodeid.Address) error

	MarkCompleted(ctx context.Context, id nodeid.Address, output iface.Outputs) error

	MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error

	// MarkSkipped records that the node will not run; cause is the error
	// that prevented it.
	MarkSkipped(ctx context.Context, id nodeid.Address, cause error) error
}
