package processor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/builder"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/provstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	statusCompleted = "completed"
	statusCached    = "cached"
	statusFailed    = "failed"
)

// run processes the nodes of one plan. It implements executor.Processor.
type run struct {
	proc *Processor
	plan *builder.Plan
	id   string
}

// Process resolves the inputs of a node instance, runs its interface (or
// reuses a cached result) and sinks the bound outputs.
func (r *run) Process(ctx context.Context, n *node.Node) (iface.Outputs, error) {
	name := n.Spec.Interface.Name()
	ctx, span := r.proc.opts.Tracer.Start(ctx, n.ID(), trace.WithAttributes(
		attribute.String("neurogrid.interface", name),
		attribute.String("neurogrid.key", n.Key.String()),
		attribute.String("neurogrid.run_id", r.id),
	))
	defer span.End()

	out, status, err := r.process(ctx, n)
	r.proc.opts.Metrics.NodesTotal.WithLabelValues(name, status).Inc()
	span.SetAttributes(attribute.String("neurogrid.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (r *run) process(ctx context.Context, n *node.Node) (iface.Outputs, string, error) {
	p := r.proc
	i := n.Spec.Interface
	logger := ctxlog.FromContext(ctx).With("nodeID", n.ID())

	in, err := r.inputs(ctx, n)
	if err != nil {
		return nil, statusFailed, err
	}
	valid, err := i.InputSpec().Validate(in)
	if err != nil {
		return nil, statusFailed, fmt.Errorf("interface %s: %w", i.Name(), err)
	}
	if p.opts.CheckRequirements {
		if err := iface.CheckAll(n.Spec.Requirements, p.opts.Versions); err != nil {
			return nil, statusFailed, err
		}
	}
	hash, err := fingerprint(ctx, i, valid, p.opts.IOWorkers)
	if err != nil {
		return nil, statusFailed, fmt.Errorf("failed to fingerprint inputs: %w", err)
	}

	if !p.opts.Reprocess {
		if out, ok := r.cached(ctx, n, hash); ok {
			logger.Info("♻️ Reusing cached result", "hash", hash[:12])
			if err := r.sink(ctx, n, out); err != nil {
				return nil, statusFailed, err
			}
			return out, statusCached, nil
		}
	}

	workDir := r.workDir(n)
	started := time.Now()
	p.opts.Metrics.NodesRunning.Inc()
	var out iface.Outputs
	if p.opts.Mode == ModeSubmit {
		out, err = p.submit(ctx, n, valid, workDir)
	} else {
		out, err = iface.Execute(ctx, i, &iface.Runtime{WorkDir: workDir}, valid)
	}
	p.opts.Metrics.NodesRunning.Dec()
	p.opts.Metrics.NodeDurationSeconds.WithLabelValues(i.Name()).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, statusFailed, err
	}

	if err := r.sink(ctx, n, out); err != nil {
		return nil, statusFailed, err
	}
	rec := provstore.Record{
		RunID:      r.id,
		Analysis:   r.plan.Analysis.Name(),
		NodeID:     n.ID(),
		Interface:  i.Name(),
		Hash:       hash,
		Parameters: n.Spec.Parameters,
		Outputs:    out,
		WorkDir:    workDir,
		Started:    started,
		Finished:   time.Now(),
	}
	if err := p.opts.Provenance.Put(ctx, rec); err != nil {
		return nil, statusFailed, fmt.Errorf("failed to record provenance: %w", err)
	}
	logger.Debug("Recorded provenance.", "hash", hash)
	return out, statusCompleted, nil
}

// workDir is <workdir>/<analysis>/<pipeline>/<node>/<key>.
func (r *run) workDir(n *node.Node) string {
	return filepath.Join(r.proc.opts.WorkDir, r.plan.Analysis.Name(), n.Pipeline.Name, n.Spec.Name, n.Key.PathComponent())
}

// inputs merges the static parameters of a node with the values of its
// bound fields. Joined fields receive a list in key order.
func (r *run) inputs(ctx context.Context, n *node.Node) (iface.Inputs, error) {
	in := make(iface.Inputs, len(n.Spec.Parameters)+len(n.Inputs))
	maps.Copy(in, n.Spec.Parameters)
	for _, field := range slices.Sorted(maps.Keys(n.Inputs)) {
		b := n.Inputs[field]
		values, err := r.values(ctx, n, b)
		if err != nil {
			return nil, fmt.Errorf("input %q of %s: %w", field, n.ID(), err)
		}
		switch {
		case b.Joined:
			in[field] = values
		case len(values) == 1:
			in[field] = values[0]
		}
	}
	return in, nil
}

func (r *run) values(ctx context.Context, n *node.Node, b node.Binding) ([]any, error) {
	if !b.IsData() {
		values := make([]any, 0, len(b.Upstream))
		for _, up := range b.Upstream {
			out, err := r.plan.Graph.Output(ctx, up)
			if err != nil {
				return nil, err
			}
			v, ok := out[b.Field]
			if !ok {
				ctxlog.FromContext(ctx).Debug("Upstream produced no value.", "upstream", up.String(), "field", b.Field)
				continue
			}
			values = append(values, v)
		}
		return values, nil
	}

	a := r.plan.Analysis
	ds, _ := a.Definition().Data(b.Spec)
	items := b.Items
	if ds.Derived() {
		// Derived values are read back from the repository: upstream nodes
		// have sunk them before completing, older ones were stored earlier.
		items = make([]analysis.Item, 0, len(b.Keys))
		for _, k := range b.Keys {
			item, err := a.Resolve(ctx, b.Spec, k)
			if err != nil {
				return nil, err
			}
			if !item.Exists {
				return nil, fmt.Errorf("%s at %s has not been derived", b.Spec, item.Key)
			}
			items = append(items, item)
		}
	}

	var present []analysis.Item
	for _, it := range items {
		if it.Exists {
			present = append(present, it)
		}
	}
	values := make([]any, len(present))
	if !ds.Kind.IsFileset() {
		for i, it := range present {
			values[i] = it.Value
		}
		return values, nil
	}
	filesets := make([]*dataset.Fileset, len(present))
	for i, it := range present {
		filesets[i] = it.Fileset
	}
	paths, err := dataset.LocalizeAll(ctx, a.Repository(), filesets, r.proc.opts.IOWorkers)
	if err != nil {
		return nil, err
	}
	for i, p := range paths {
		values[i] = p
	}
	return values, nil
}

// sink stores the outputs bound to derived specs in the repository.
func (r *run) sink(ctx context.Context, n *node.Node, out iface.Outputs) error {
	a := r.plan.Analysis
	repo := a.Repository()
	logger := ctxlog.FromContext(ctx)
	for _, o := range n.Sinks {
		ds, _ := a.Definition().Data(o.Spec)
		key := n.Key.Project(ds.Frequency.Axes())
		v, ok := out[o.Field]
		if !ok {
			return fmt.Errorf("node %s did not produce %q for %s", n.ID(), o.Field, o.Spec)
		}
		if ds.Kind.IsFileset() {
			src, ok := v.(string)
			if !ok {
				return fmt.Errorf("output %q of %s is %T, not a file path", o.Field, n.ID(), v)
			}
			if _, err := repo.PutFileset(ctx, a.Name(), ds.Name, ds.Format, key, src); err != nil {
				return fmt.Errorf("failed to store %s at %s: %w", ds.Name, key, err)
			}
			r.proc.opts.Metrics.SinksTotal.WithLabelValues("fileset").Inc()
		} else {
			value, err := ds.Type.Coerce(v)
			if err != nil {
				return fmt.Errorf("output %q of %s for %s: %w", o.Field, n.ID(), ds.Name, err)
			}
			if err := repo.PutField(ctx, a.Name(), ds.Name, key, value); err != nil {
				return fmt.Errorf("failed to store %s at %s: %w", ds.Name, key, err)
			}
			r.proc.opts.Metrics.SinksTotal.WithLabelValues("field").Inc()
		}
		sig, err := a.Signature(ds.Name)
		if err != nil {
			return err
		}
		if err := repo.PutSignature(ctx, a.Name(), ds.Name, key, sig); err != nil {
			return err
		}
		logger.Debug("Stored derived value.", "spec", ds.Name, "key", key.String())
	}
	return nil
}

// cached returns the outputs of a previous execution with the same
// fingerprint whose files are still present.
func (r *run) cached(ctx context.Context, n *node.Node, hash string) (iface.Outputs, bool) {
	rec, err := r.proc.opts.Provenance.Get(ctx, r.plan.Analysis.Name(), n.ID())
	if err != nil {
		if !errors.Is(err, provstore.ErrNotFound) {
			ctxlog.FromContext(ctx).Warn("Failed to read provenance.", "nodeID", n.ID(), "error", err)
		}
		return nil, false
	}
	if rec.Hash != hash {
		return nil, false
	}
	out, err := n.Spec.Interface.OutputSpec().Coerce(rec.Outputs)
	if err != nil || !outputsExist(n.Spec.Interface.OutputSpec(), out) {
		return nil, false
	}
	return out, true
}
