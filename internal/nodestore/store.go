// Package nodestore defines the interface for storing and retrieving the
// dynamic, mutable execution state of node instances while a plan runs.
//
// # Why Node Store Exists
//
// The node store isolates **mutable execution state** (status, outputs,
// errors) from the **immutable DAG structure** managed by topologystore.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per derivation plan
//  2. **Mutated** continuously during execution as instances change state
//  3. **Queried** by the processor to resolve inputs that read the output
//     fields of upstream instances
//  4. **Discarded** when the plan has run
//
// # State Transitions
//
// Instances follow this lifecycle:
//
//	Pending → Running → Completed (with outputs) OR Failed (with error)
//	Pending → Skipped (a dependency failed or the run was cancelled)
package nodestore

import (
	"context"

	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

// Store is the interface for managing the mutable execution state of nodes.
//
// Implementations MUST be safe for concurrent use; workers update different
// instances in parallel while downstream instances read upstream outputs.
type Store interface {
	// SetStatus records the execution status of a node.
	SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error

	// GetStatus returns the status of a node, StatusPending if none was recorded.
	GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error)

	// SetOutput records the interface outputs of a completed node.
	SetOutput(ctx context.Context, id nodeid.Address, output iface.Outputs) error

	// GetOutput returns the outputs of a node, nil if none were recorded.
	GetOutput(ctx context.Context, id nodeid.Address) (iface.Outputs, error)

	// SetError records the failure of a node.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns the recorded failure of a node, nil if there is none.
	GetError(ctx context.Context, id nodeid.Address) (error, error)
}
