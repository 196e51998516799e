package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/graph"
	"github.com/vk/neurogrid/internal/node"
)

// CycleError reports node instances that depend on each other.
type CycleError struct {
	// IDs are the nodes that could not be ordered, sorted.
	IDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected between nodes: %s", strings.Join(e.IDs, ", "))
}

// Ready returns the pending nodes whose dependencies are all completed,
// sorted by ID.
func Ready(ctx context.Context, g graph.Graph) ([]*node.Node, error) {
	var ready []*node.Node
	for _, n := range g.AllNodes(ctx) {
		if status, _ := g.NodeStatus(ctx, n.Address()); status != node.StatusPending {
			continue
		}
		deps, err := g.DependenciesOf(ctx, n.Address())
		if err != nil {
			return nil, err
		}
		if allCompleted(ctx, g, deps) {
			ready = append(ready, n)
		}
	}
	ctxlog.FromContext(ctx).Debug("Computed ready nodes.", "count", len(ready))
	return ready, nil
}

func allCompleted(ctx context.Context, g graph.Graph, deps []*node.Node) bool {
	for _, d := range deps {
		if status, _ := g.NodeStatus(ctx, d.Address()); status != node.StatusCompleted {
			return false
		}
	}
	return true
}

// Levels groups every node into topological levels using Kahn's algorithm.
// Nodes within a level are sorted by ID. A *CycleError is returned when some
// nodes can never become ready.
func Levels(ctx context.Context, g graph.Graph) ([][]*node.Node, error) {
	all := g.AllNodes(ctx)
	remaining := make(map[string]int, len(all))
	for _, n := range all {
		deps, err := g.DependenciesOf(ctx, n.Address())
		if err != nil {
			return nil, err
		}
		remaining[n.ID()] = len(deps)
	}

	var levels [][]*node.Node
	var current []*node.Node
	for _, n := range all {
		if remaining[n.ID()] == 0 {
			current = append(current, n)
		}
	}
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)
		next := make(map[string]*node.Node)
		for _, n := range current {
			dependents, err := g.DependentsOf(ctx, n.Address())
			if err != nil {
				return nil, err
			}
			for _, d := range dependents {
				remaining[d.ID()]--
				if remaining[d.ID()] == 0 {
					next[d.ID()] = d
				}
			}
		}
		current = nil
		// all is sorted, so walking it keeps the level sorted.
		for _, n := range all {
			if nn, ok := next[n.ID()]; ok {
				current = append(current, nn)
			}
		}
	}

	if placed != len(all) {
		cyc := &CycleError{}
		for _, n := range all {
			if remaining[n.ID()] > 0 {
				cyc.IDs = append(cyc.IDs, n.ID())
			}
		}
		return nil, cyc
	}
	ctxlog.FromContext(ctx).Debug("Computed topological levels.", "levels", len(levels), "nodes", placed)
	return levels, nil
}
