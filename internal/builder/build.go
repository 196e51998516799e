package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/graph"
	"github.com/vk/neurogrid/internal/inmemorystore"
	"github.com/vk/neurogrid/internal/inmemorytopology"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/scheduler"
)

// ErrProvenanceMismatch is returned when a stored value was derived with
// other parameters than the analysis would use now.
var ErrProvenanceMismatch = errors.New("provenance mismatch")

// Build constructs the execution plan deriving the named specs.
func Build(ctx context.Context, a *analysis.Analysis, names []string, opts Options) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting plan construction.", "analysis", a.Name(), "specs", names)

	tree, err := a.Tree(ctx)
	if err != nil {
		return nil, err
	}
	b := &builder{
		analysis:  a,
		tree:      tree,
		opts:      opts,
		graph:     graph.New(inmemorytopology.New(), inmemorystore.New()),
		instances: make(map[string]*node.Node),
	}
	plan := &Plan{
		Analysis: a,
		Graph:    b.graph,
		Targets:  make(map[string][]dataset.Key),
		Existing: make(map[string][]dataset.Key),
	}

	for _, name := range names {
		ds, ok := a.Definition().Data(name)
		if !ok {
			return nil, fmt.Errorf("analysis %s has no spec %q", a.Definition().Name, name)
		}
		if !ds.Derived() {
			return nil, fmt.Errorf("%q is an input of analysis %s and cannot be derived", name, a.Definition().Name)
		}
		for _, key := range tree.Keys(ds.Frequency) {
			n, err := b.ensureSpec(ctx, name, key)
			if err != nil {
				return nil, err
			}
			if n == nil {
				plan.Existing[name] = append(plan.Existing[name], key)
				continue
			}
			plan.Targets[name] = append(plan.Targets[name], key)
		}
	}
	logger.Debug("Build: Node expansion complete.", "node_count", len(b.instances))

	if _, err := scheduler.Levels(ctx, b.graph); err != nil {
		return nil, fmt.Errorf("error validating execution graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Info("🧩 Plan built.", "analysis", a.Name(), "nodes", len(b.instances))
	return plan, nil
}

// checkSignature rejects a stored value that was derived by a pipeline
// differing from the current one. Values stored without a signature are
// trusted.
func (b *builder) checkSignature(ctx context.Context, spec string, key dataset.Key) error {
	want, err := b.analysis.Signature(spec)
	if err != nil {
		return err
	}
	got, err := b.analysis.Repository().Signature(ctx, b.analysis.Name(), spec, key)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s at %s in %s was derived with other pipeline parameters; derive again with --reprocess or store under another name",
			ErrProvenanceMismatch, spec, key, b.analysis.Name())
	}
	return nil
}

type builder struct {
	analysis  *analysis.Analysis
	tree      *dataset.Tree
	opts      Options
	graph     *graph.Manager
	instances map[string]*node.Node
	// stack holds the pipelines currently being expanded, outermost first.
	stack []string
}

// ensureSpec returns the instance storing spec at key, or nil when the value
// is already stored and does not need deriving.
func (b *builder) ensureSpec(ctx context.Context, spec string, key dataset.Key) (*node.Node, error) {
	if !b.opts.Reprocess {
		item, err := b.analysis.Resolve(ctx, spec, key)
		if err != nil {
			return nil, err
		}
		if item.Exists {
			if err := b.checkSignature(ctx, spec, item.Key); err != nil {
				return nil, err
			}
			ctxlog.FromContext(ctx).Debug("Build: Value already stored, skipping.", "spec", spec, "key", key.String())
			return nil, nil
		}
	}

	p, err := b.analysis.PipelineFor(spec)
	if err != nil {
		return nil, err
	}
	if slices.Contains(b.stack, p.Name) {
		cycle := append(slices.Clone(b.stack[slices.Index(b.stack, p.Name):]), p.Name)
		return nil, fmt.Errorf("cycle between pipelines: %s", strings.Join(cycle, " -> "))
	}
	b.stack = append(b.stack, p.Name)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()

	out, _ := p.Output(spec)
	spn, _ := p.Node(out.Node)
	axes, err := spn.Axes()
	if err != nil {
		return nil, err
	}
	n, err := b.instance(ctx, p, spn, key.Project(axes))
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(n.Sinks, func(o analysis.Output) bool { return o.Spec == out.Spec }) {
		n.Sinks = append(n.Sinks, out)
		slices.SortFunc(n.Sinks, func(x, y analysis.Output) int { return strings.Compare(x.Spec, y.Spec) })
	}
	return n, nil
}
