package inmemorystore

import (
	"context"
	"maps"
	"sync"

	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
	"github.com/vk/neurogrid/internal/nodestore"
)

// Store implements nodestore.Store with sync.Maps keyed by node ID.
type Store struct {
	states  sync.Map // Key: node ID string, Value: node.Status
	outputs sync.Map // Key: node ID string, Value: iface.Outputs
	errors  sync.Map // Key: node ID string, Value: error
}

// New creates an empty in-memory node store.
func New() nodestore.Store {
	return &Store{}
}

func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error {
	s.states.Store(id.String(), status)
	return nil
}

func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error) {
	status, ok := s.states.Load(id.String())
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// SetOutput stores a copy of output so later changes by the caller are not observed.
func (s *Store) SetOutput(ctx context.Context, id nodeid.Address, output iface.Outputs) error {
	s.outputs.Store(id.String(), maps.Clone(output))
	return nil
}

func (s *Store) GetOutput(ctx context.Context, id nodeid.Address) (iface.Outputs, error) {
	output, ok := s.outputs.Load(id.String())
	if !ok {
		return nil, nil
	}
	return output.(iface.Outputs), nil
}

func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	s.errors.Store(id.String(), nodeErr)
	return nil
}

func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
