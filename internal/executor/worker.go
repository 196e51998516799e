package executor

import (
	"context"
	"fmt"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/node"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *node.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", n.ID())

		if err := ctx.Err(); err != nil {
			e.skip(ctx, n, fmt.Errorf("skipped: %w", err))
			e.skipDependents(ctx, n)
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		if err := e.graph.MarkRunning(ctx, n.Address()); err != nil {
			workerLogger.Error("Failed to mark node running.", "error", err)
		}
		workerLogger.Info("▶️ Starting node", "interface", n.Spec.Interface.Name())

		out, err := e.proc.Process(ctx, n)
		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			n.Error = err
			if markErr := e.graph.MarkFailed(ctx, n.Address(), err); markErr != nil {
				workerLogger.Error("Failed to mark node failed.", "error", markErr)
				n.SetState(node.StatusFailed)
			}
			if !e.opts.ContinueOnError {
				cancel()
			}
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		if err := e.graph.MarkCompleted(ctx, n.Address(), out); err != nil {
			workerLogger.Error("Failed to mark node completed.", "error", err)
		}
		workerLogger.Info("✅ Finished node")

		dependents, err := e.graph.DependentsOf(ctx, n.Address())
		if err != nil {
			workerLogger.Error("Failed to get dependents for completed node", "error", err)
		}
		for _, dependent := range dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID())
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skip marks n skipped exactly once and reports whether this call did it.
func (e *Executor) skip(ctx context.Context, n *node.Node, cause error) bool {
	if !n.Skip(cause, &e.wg) {
		return false
	}
	if err := e.graph.MarkSkipped(context.WithoutCancel(ctx), n.Address(), cause); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to mark node skipped.", "nodeID", n.ID(), "error", err)
	}
	return true
}

// skipDependents recursively marks all downstream nodes as skipped and decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, n *node.Node) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := e.graph.DependentsOf(ctx, n.Address())
	if err != nil {
		logger.Error("Failed to get dependents while skipping nodes", "nodeID", n.ID(), "error", err)
		return
	}
	for _, dependent := range dependents {
		cause := fmt.Errorf("skipped due to upstream failure of '%s'", n.ID())
		if e.skip(ctx, dependent, cause) {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.ID(), "dependency", n.ID())
			e.skipDependents(ctx, dependent)
		}
	}
}
