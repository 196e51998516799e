// Package executor runs the node instances of an execution graph on a pool of
// workers, honouring dependency order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/graph"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/scheduler"
)

// Processor does the work of one node instance.
type Processor interface {
	Process(ctx context.Context, n *node.Node) (iface.Outputs, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc func(ctx context.Context, n *node.Node) (iface.Outputs, error)

// Process implements Processor.
func (f ProcessFunc) Process(ctx context.Context, n *node.Node) (iface.Outputs, error) {
	return f(ctx, n)
}

// Options configure an executor.
type Options struct {
	// Workers is the number of nodes processed concurrently. Values below 1
	// mean one worker.
	Workers int
	// ContinueOnError keeps running nodes that do not depend on a failed
	// node. By default the first failure cancels the run.
	ContinueOnError bool
}

// Executor runs the nodes in a graph concurrently.
type Executor struct {
	graph graph.Graph
	proc  Processor
	opts  Options
	wg    sync.WaitGroup
}

// New creates a new graph executor.
func New(g graph.Graph, proc Processor, opts Options) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Executor{graph: g, proc: proc, opts: opts}
}

// Run executes the entire graph and returns an error naming the nodes that
// failed. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	nodes := e.graph.AllNodes(ctx)
	if len(nodes) == 0 {
		logger.Debug("Nothing to execute.")
		return nil
	}

	for _, n := range nodes {
		deps, err := e.graph.DependenciesOf(ctx, n.Address())
		if err != nil {
			return err
		}
		n.SetDepCount(int32(len(deps)))
	}
	roots, err := scheduler.Ready(ctx, e.graph)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return errors.New("execution graph has no runnable nodes")
	}
	logger.Debug("Found all root nodes.", "count", len(roots))

	readyChan := make(chan *node.Node, len(nodes))
	for _, n := range roots {
		readyChan <- n
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.wg.Add(len(nodes))
	logger.Debug("Starting worker pool.", "workers", e.opts.Workers)
	for i := range e.opts.Workers {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Debug("Waiting for all nodes to complete...", "nodes", len(nodes))
	e.wg.Wait()
	close(readyChan)
	return e.result(ctx, nodes)
}

// result reports the root-cause failures. Skipped nodes are symptoms, not causes.
func (e *Executor) result(ctx context.Context, nodes []*node.Node) error {
	logger := ctxlog.FromContext(ctx)
	var failed []string
	var rootCause error
	for _, n := range nodes {
		if n.GetState() != node.StatusFailed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", n.ID(), "error", n.Error)
		if errors.Is(n.Error, context.Canceled) {
			continue
		}
		failed = append(failed, n.ID())
		if rootCause == nil {
			rootCause = n.Error
		}
	}
	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	return ctx.Err()
}
