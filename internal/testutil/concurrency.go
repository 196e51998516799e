package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
)

// Sleeper is a node processor for concurrency tests. It sleeps for a fixed
// duration and records when each node ran.
type Sleeper struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	running        atomic.Int32
	maxRunning     atomic.Int32
	// Fail lists node IDs whose processing returns an error.
	Fail map[string]error
}

// NewSleeper creates a sleeper processor.
func NewSleeper(sleep time.Duration) *Sleeper {
	return &Sleeper{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		Fail:           make(map[string]error),
	}
}

// Process records the run of n and returns its ID as output "id".
func (s *Sleeper) Process(ctx context.Context, n *node.Node) (iface.Outputs, error) {
	now := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		peak := s.maxRunning.Load()
		if now <= peak || s.maxRunning.CompareAndSwap(peak, now) {
			break
		}
	}

	start := time.Now()
	select {
	case <-time.After(s.sleepDuration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	end := time.Now()

	s.mu.Lock()
	s.ExecutionTimes[n.ID()] = &ExecutionRecord{Start: start, End: end}
	err := s.Fail[n.ID()]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return iface.Outputs{"id": n.ID()}, nil
}

// Record returns the execution record of a node, nil if it did not run.
func (s *Sleeper) Record(id string) *ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExecutionTimes[id]
}

// MaxConcurrency is the highest number of nodes processed at the same time.
func (s *Sleeper) MaxConcurrency() int {
	return int(s.maxRunning.Load())
}
