// Package inmemorytopology provides a simple, thread-safe, in-memory
// implementation of the topologystore.Store interface.
package inmemorytopology

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
	"github.com/vk/neurogrid/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu         sync.RWMutex
	nodes      map[string]*node.Node
	deps       map[string]map[string]struct{} // Key: node ID, Value: set of dependency IDs
	dependents map[string]map[string]struct{} // Key: node ID, Value: set of dependent IDs
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes:      make(map[string]*node.Node),
		deps:       make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := n.ID()
	if _, exists := s.nodes[key]; exists {
		return nil
	}
	s.nodes[key] = n
	return nil
}

// AddDependency creates a dependency link from one node to another.
func (s *Store) AddDependency(ctx context.Context, from, to nodeid.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey := from.String()
	toKey := to.String()

	if _, exists := s.nodes[fromKey]; !exists {
		return fmt.Errorf("dependency source node '%s' not found in topology", fromKey)
	}
	if _, exists := s.nodes[toKey]; !exists {
		return fmt.Errorf("dependency target node '%s' not found in topology", toKey)
	}
	if fromKey == toKey {
		return fmt.Errorf("node '%s' cannot depend on itself", fromKey)
	}

	addEdge(s.deps, toKey, fromKey)
	addEdge(s.dependents, fromKey, toKey)
	return nil
}

func addEdge(m map[string]map[string]struct{}, a, b string) {
	if m[a] == nil {
		m[a] = make(map[string]struct{})
	}
	m[a][b] = struct{}{}
}

// GetNode retrieves a single node by its address.
func (s *Store) GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id.String()]
	return n, ok
}

// AllNodes returns a slice of all nodes in the topology, sorted by ID.
func (s *Store) AllNodes(ctx context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(s.nodes))
	for _, key := range slices.Sorted(maps.Keys(s.nodes)) {
		nodes = append(nodes, s.nodes[key])
	}
	return nodes
}

// DependenciesOf returns the addresses of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.edges(s.deps, id)
}

// DependentsOf returns the addresses of all nodes that depend on the given node.
func (s *Store) DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.edges(s.dependents, id)
}

func (s *Store) edges(m map[string]map[string]struct{}, id nodeid.Address) ([]nodeid.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := id.String()
	if _, exists := s.nodes[key]; !exists {
		return nil, fmt.Errorf("node '%s' not found in topology", key)
	}

	set := m[key]
	out := make([]nodeid.Address, 0, len(set))
	for _, other := range slices.Sorted(maps.Keys(set)) {
		out = append(out, s.nodes[other].Address())
	}
	return out, nil
}
