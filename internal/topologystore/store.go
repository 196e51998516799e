// Package topologystore defines the interface for storing and retrieving the
// static structure of the execution graph (DAG).
//
// # Why Topology Store Exists
//
// The topology store isolates the **immutable DAG structure** (node instances
// and their dependency relationships) from the **mutable execution state**
// (status, outputs, errors) managed by nodestore.
//
// The workflow builder writes the topology once while expanding a derivation
// request. After that it is read-only: the scheduler and executor query
// dependencies and dependents, and the processor looks up node instances to
// resolve their inputs.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per derivation plan (ephemeral, not persistent across runs)
//  2. **Populated** by the builder (nodes + dependencies added)
//  3. **Read-only** during execution
//  4. **Discarded** when the plan has run
package topologystore

import (
	"context"

	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

// Store is the interface for managing the static topology of a directed acyclic graph (DAG).
//
// This interface does NOT manage dynamic execution state (node status, outputs, errors).
// That responsibility belongs to nodestore.Store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes.
//
// See internal/inmemorytopology for the reference in-memory implementation.
type Store interface {
	// AddNode registers a new node in the topology.
	//
	// Adding the same node twice (by ID) is idempotent and does not return an error.
	AddNode(ctx context.Context, n *node.Node) error

	// AddDependency records that the node 'to' depends on the node 'from':
	// 'from' must complete successfully before 'to' can start.
	//
	// Both nodes must already exist in the topology.
	AddDependency(ctx context.Context, from, to nodeid.Address) error

	// GetNode retrieves a single node by its address.
	GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns all nodes sorted by ID. The returned slice is a
	// snapshot and safe for the caller to iterate.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the addresses the given node directly depends
	// on, sorted. It errors if the node does not exist.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)

	// DependentsOf returns the addresses of the nodes that directly depend on
	// the given node, sorted. It errors if the node does not exist.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)
}
