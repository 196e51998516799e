package graph

import (
	"context"
	"fmt"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
	"github.com/vk/neurogrid/internal/nodestore"
	"github.com/vk/neurogrid/internal/topologystore"
)

var _ Graph = (*Manager)(nil)

// Manager provides a high-level, thread-safe interface to the execution graph
// by composing a topology store and a node store.
type Manager struct {
	topology  topologystore.Store
	nodeState nodestore.Store
}

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) *Manager {
	return &Manager{topology: ts, nodeState: ns}
}

// Topology exposes the topology store so the builder can populate it.
func (m *Manager) Topology() topologystore.Store { return m.topology }

func (m *Manager) Node(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	return m.topology.GetNode(ctx, id)
}

func (m *Manager) AllNodes(ctx context.Context) []*node.Node {
	return m.topology.AllNodes(ctx)
}

func (m *Manager) DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependenciesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependentsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) resolve(ctx context.Context, ids []nodeid.Address) ([]*node.Node, error) {
	nodes := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := m.topology.GetNode(ctx, id)
		if !ok {
			return nil, fmt.Errorf("internal inconsistency: node '%s' missing from topology", id.String())
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (m *Manager) NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool) {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return node.StatusPending, false
	}
	status, err := m.nodeState.GetStatus(ctx, id)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to read node status.", "id", id.String(), "error", err)
		return node.StatusPending, false
	}
	return status, true
}

func (m *Manager) Output(ctx context.Context, id nodeid.Address) (iface.Outputs, error) {
	return m.nodeState.GetOutput(ctx, id)
}

func (m *Manager) NodeError(ctx context.Context, id nodeid.Address) (error, error) {
	return m.nodeState.GetError(ctx, id)
}

func (m *Manager) MarkRunning(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusRunning)
}

func (m *Manager) MarkCompleted(ctx context.Context, id nodeid.Address, output iface.Outputs) error {
	if err := m.nodeState.SetOutput(ctx, id, output); err != nil {
		return err
	}
	return m.transition(ctx, id, node.StatusCompleted)
}

func (m *Manager) MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error {
	if err := m.nodeState.SetError(ctx, id, nodeErr); err != nil {
		return err
	}
	return m.transition(ctx, id, node.StatusFailed)
}

func (m *Manager) MarkSkipped(ctx context.Context, id nodeid.Address, cause error) error {
	if cause != nil {
		if err := m.nodeState.SetError(ctx, id, cause); err != nil {
			return err
		}
	}
	return m.transition(ctx, id, node.StatusSkipped)
}

func (m *Manager) transition(ctx context.Context, id nodeid.Address, s node.Status) error {
	n, ok := m.topology.GetNode(ctx, id)
	if !ok {
		return fmt.Errorf("node '%s' not found in graph", id.String())
	}
	if err := m.nodeState.SetStatus(ctx, id, s); err != nil {
		return err
	}
	n.SetState(s)
	ctxlog.FromContext(ctx).Debug("Node status changed.", "id", id.String(), "status", s.String())
	return nil
}
