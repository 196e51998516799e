package builder

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

// instance returns the node instance of spn at key, creating it and its
// upstream instances on first use.
func (b *builder) instance(ctx context.Context, p *analysis.Pipeline, spn *analysis.Node, key dataset.Key) (*node.Node, error) {
	id := nodeid.Instance(p.Name, spn.Name, key.String())
	if n, ok := b.instances[id.String()]; ok {
		return n, nil
	}
	logger := ctxlog.FromContext(ctx).With("node_id", id.String())
	logger.Debug("Build: Creating node instance.")

	n := node.New(p, spn, key)
	for _, field := range slices.Sorted(maps.Keys(spn.Inputs)) {
		binding, err := b.bind(ctx, p, spn, field, key)
		if err != nil {
			return nil, fmt.Errorf("node %s input %q: %w", id.String(), field, err)
		}
		n.Inputs[field] = binding
	}

	if err := b.graph.Topology().AddNode(ctx, n); err != nil {
		return nil, err
	}
	for _, up := range n.Upstream() {
		if err := b.graph.Topology().AddDependency(ctx, up, n.Address()); err != nil {
			return nil, err
		}
	}
	b.instances[n.ID()] = n
	logger.Debug("Build: Node instance linked.", "dependencies", len(n.Upstream()))
	return n, nil
}

// bind resolves where one input field of an instance at key gets its value.
func (b *builder) bind(ctx context.Context, p *analysis.Pipeline, spn *analysis.Node, field string, key dataset.Key) (node.Binding, error) {
	src := spn.Inputs[field]
	srcAxes, err := spn.InputAxes(field)
	if err != nil {
		return node.Binding{}, err
	}
	binding := node.Binding{Spec: src.Spec, Joined: spn.IsJoined(field)}
	if binding.Joined {
		binding.Keys = b.tree.Matching(srcAxes.Frequency(), key)
	} else {
		binding.Keys = []dataset.Key{key.Project(srcAxes)}
	}

	if !src.IsData() {
		binding.Field = src.Field
		up, _ := p.Node(src.Node)
		for _, k := range binding.Keys {
			upn, err := b.instance(ctx, p, up, k)
			if err != nil {
				return binding, err
			}
			binding.Upstream = append(binding.Upstream, upn.Address())
		}
		return binding, nil
	}

	ds, _ := b.analysis.Definition().Data(src.Spec)
	for _, k := range binding.Keys {
		if ds.Derived() {
			producer, err := b.ensureSpec(ctx, src.Spec, k)
			if err != nil {
				return binding, err
			}
			if producer != nil {
				binding.Upstream = append(binding.Upstream, producer.Address())
			}
			continue
		}
		item, err := b.analysis.Resolve(ctx, src.Spec, k)
		if err != nil {
			return binding, err
		}
		binding.Items = append(binding.Items, item)
	}
	return binding, nil
}
