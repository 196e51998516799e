package builder

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/graph"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/scheduler"
)

// Options tune plan construction.
type Options struct {
	// Reprocess derives values again even when they are already stored.
	Reprocess bool
}

// Plan is the artifact of the builder: the execution graph for a set of
// requested specs.
type Plan struct {
	Analysis *analysis.Analysis
	Graph    *graph.Manager
	// Targets lists, per requested spec, the keys that will be derived.
	Targets map[string][]dataset.Key
	// Existing lists, per requested spec, the keys already stored and skipped.
	Existing map[string][]dataset.Key
}

// Empty reports whether the plan has nothing to run.
func (p *Plan) Empty(ctx context.Context) bool {
	return len(p.Graph.AllNodes(ctx)) == 0
}

// Nodes returns every node instance of the plan sorted by ID.
func (p *Plan) Nodes(ctx context.Context) []*node.Node {
	return p.Graph.AllNodes(ctx)
}

// Render draws the plan as a table of topological levels.
func (p *Plan) Render(ctx context.Context) (string, error) {
	levels, err := scheduler.Levels(ctx, p.Graph)
	if err != nil {
		return "", err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Level", "Node", "Interface", "Writes"})
	for i, level := range levels {
		for _, n := range level {
			sinks := make([]string, len(n.Sinks))
			for j, s := range n.Sinks {
				sinks[j] = s.Spec
			}
			t.AppendRow(table.Row{i, n.ID(), n.Spec.Interface.Name(), strings.Join(sinks, ", ")})
		}
	}
	var sb strings.Builder
	sb.WriteString(t.Render())
	for _, spec := range slices.Sorted(maps.Keys(p.Existing)) {
		fmt.Fprintf(&sb, "\n%s: %d value(s) already stored", spec, len(p.Existing[spec]))
	}
	return sb.String(), nil
}
