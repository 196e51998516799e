package hcl_adapter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
)

// parseInputs reads an inputs object without evaluating it. Every value must
// be a traversal: data.<spec> or node.<name>.<field>.
func parseInputs(expr hcl.Expression) (map[string]analysis.Source, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("inputs must be an object: %w", diags)
	}
	out := make(map[string]analysis.Source, len(pairs))
	for _, pair := range pairs {
		field := hcl.ExprAsKeyword(pair.Key)
		if field == "" {
			v, diags := pair.Key.Value(nil)
			if diags.HasErrors() || v.Type() != cty.String {
				return nil, fmt.Errorf("%s: input names must be identifiers or strings", pair.Key.Range())
			}
			field = v.AsString()
		}
		src, err := parseSource(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", field, err)
		}
		out[field] = src
	}
	return out, nil
}

func parseSource(expr hcl.Expression) (analysis.Source, error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return analysis.Source{}, fmt.Errorf("%s: must reference data.<spec> or node.<name>.<field>", expr.Range())
	}
	names := make([]string, 0, len(trav))
	for _, step := range trav {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			names = append(names, s.Name)
		case hcl.TraverseAttr:
			names = append(names, s.Name)
		default:
			return analysis.Source{}, fmt.Errorf("%s: index steps are not supported in references", expr.Range())
		}
	}
	switch {
	case names[0] == "data" && len(names) == 2:
		return analysis.Data(names[1]), nil
	case names[0] == "node" && len(names) == 3:
		return analysis.FromNode(names[1], names[2]), nil
	}
	return analysis.Source{}, fmt.Errorf("%s: %q must reference data.<spec> or node.<name>.<field>", expr.Range(), strings.Join(names, "."))
}

// nodePlan is a node block with its inputs parsed.
type nodePlan struct {
	block  *nodeBlock
	inputs map[string]analysis.Source
}

// planNodes parses node inputs and orders nodes so that every node comes
// after the nodes it reads from. Declaration order breaks ties. References to
// nodes outside blocks are left for the pipeline builder to resolve.
func planNodes(pipeline string, blocks []*nodeBlock) ([]nodePlan, error) {
	plans := make(map[string]nodePlan, len(blocks))
	var declared []string
	for _, nb := range blocks {
		if _, dup := plans[nb.Name]; dup {
			return nil, fmt.Errorf("pipeline %q declares node %q twice", pipeline, nb.Name)
		}
		inputs, err := parseInputs(nb.Inputs)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q, node %q: %w", pipeline, nb.Name, err)
		}
		plans[nb.Name] = nodePlan{block: nb, inputs: inputs}
		declared = append(declared, nb.Name)
	}

	deps := make(map[string][]string, len(plans))
	for name, plan := range plans {
		for _, src := range plan.inputs {
			if _, local := plans[src.Node]; !src.IsData() && local && !slices.Contains(deps[name], src.Node) {
				deps[name] = append(deps[name], src.Node)
			}
		}
	}

	var ordered []nodePlan
	placed := make(map[string]bool, len(plans))
	for len(ordered) < len(plans) {
		progressed := false
		for _, name := range declared {
			if placed[name] {
				continue
			}
			ready := true
			for _, d := range deps[name] {
				if !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, plans[name])
				placed[name] = true
				progressed = true
			}
		}
		if !progressed {
			var stuck []string
			for _, name := range declared {
				if !placed[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("dependency cycle between nodes of pipeline %q: %s", pipeline, strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}

// addNode evaluates a node block against the analysis parameters and adds it
// to the pipeline.
func addNode(p *analysis.Pipeline, plan nodePlan, ectx *hcl.EvalContext) error {
	nb := plan.block
	v, err := evalNative(nb.Interface, ectx)
	if err != nil {
		return fmt.Errorf("node %q: invalid interface: %w", nb.Name, err)
	}
	ifaceName, ok := v.(string)
	if !ok {
		return fmt.Errorf("node %q: interface must be a string, got %T", nb.Name, v)
	}
	params, err := evalMap(nb.Parameters, ectx)
	if err != nil {
		return fmt.Errorf("node %q: invalid parameters: %w", nb.Name, err)
	}
	join, err := dataset.ParseAxis(nb.JoinSource)
	if err != nil {
		return fmt.Errorf("node %q: %w", nb.Name, err)
	}
	reqs := make([]iface.Requirement, len(nb.Requirements))
	for i, r := range nb.Requirements {
		reqs[i] = iface.Requirement{Name: r.Name, Version: r.Version, Binary: r.Binary}
	}
	_, err = p.Add(nb.Name, ifaceName, analysis.NodeOptions{
		Parameters:   params,
		Inputs:       plan.inputs,
		Outputs:      nb.Outputs,
		JoinSource:   join,
		JoinFields:   nb.JoinFields,
		Requirements: reqs,
	})
	return err
}

// modifyNode applies a modify block to an inherited node.
func modifyNode(p *analysis.Pipeline, m *modifyBlock, ectx *hcl.EvalContext) error {
	n, ok := p.Node(m.Name)
	if !ok {
		return fmt.Errorf("cannot modify unknown node %q of pipeline %s", m.Name, p.Name)
	}
	for _, field := range m.Unset {
		n.Unset(field)
	}
	params, err := evalMap(m.Parameters, ectx)
	if err != nil {
		return fmt.Errorf("node %q: invalid parameters: %w", m.Name, err)
	}
	for _, field := range slices.Sorted(maps.Keys(params)) {
		if err := n.Set(field, params[field]); err != nil {
			return err
		}
	}
	inputs, err := parseInputs(m.Inputs)
	if err != nil {
		return fmt.Errorf("node %q: %w", m.Name, err)
	}
	for _, field := range slices.Sorted(maps.Keys(inputs)) {
		if err := n.Connect(field, inputs[field]); err != nil {
			return err
		}
	}
	for _, spec := range slices.Sorted(maps.Keys(m.Outputs)) {
		if err := p.ConnectOutput(spec, m.Name, m.Outputs[spec]); err != nil {
			return err
		}
	}
	return nil
}
