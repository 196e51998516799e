package analysis

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
)

// NameMaps rename a pipeline and the specs it reads and writes, so one
// constructor can serve several slots of an analysis.
type NameMaps struct {
	Prefix    string
	InputMap  map[string]string
	OutputMap map[string]string
}

func (nm NameMaps) input(name string) string {
	if mapped, ok := nm.InputMap[name]; ok {
		return mapped
	}
	return name
}

func (nm NameMaps) output(name string) string {
	if mapped, ok := nm.OutputMap[name]; ok {
		return mapped
	}
	return name
}

// Source is where a node input comes from: a data spec or an output field of
// another node in the same pipeline.
type Source struct {
	Spec  string
	Node  string
	Field string
}

// Data binds a node input to a data spec.
func Data(spec string) Source { return Source{Spec: spec} }

// FromNode binds a node input to an output field of an upstream node.
func FromNode(node, field string) Source { return Source{Node: node, Field: field} }

// IsData reports whether the source is a data spec.
func (s Source) IsData() bool { return s.Spec != "" }

// String implements fmt.Stringer.
func (s Source) String() string {
	if s.IsData() {
		return s.Spec
	}
	return s.Node + "." + s.Field
}

// NodeOptions configure a node added to a pipeline.
type NodeOptions struct {
	// Parameters are static interface inputs.
	Parameters iface.Inputs
	// Inputs bind interface input fields to sources.
	Inputs map[string]Source
	// Outputs bind spec names to interface output fields.
	Outputs map[string]string
	// JoinSource is the axis the node collapses. Join fields receive the
	// values of every key along that axis, ordered by key.
	JoinSource   dataset.Axis
	JoinFields   []string
	Requirements []iface.Requirement
}

// Output binds a derived spec to the node field producing it.
type Output struct {
	Spec  string
	Node  string
	Field string
}

// Node is an interface placed in a pipeline.
type Node struct {
	Name         string
	Interface    iface.Interface
	Parameters   iface.Inputs
	Inputs       map[string]Source
	JoinSource   dataset.Axis
	JoinFields   []string
	Requirements []iface.Requirement

	pipeline *Pipeline
}

// Pipeline is a set of connected nodes deriving one or more specs.
type Pipeline struct {
	// Name is the prefixed pipeline name.
	Name      string
	Desc      string
	Citations []string

	defName  string
	analysis *Analysis
	nameMaps NameMaps
	nodes    map[string]*Node
	order    []string
	outputs  map[string]Output
}

// NewPipeline starts a pipeline for the definition pipeline called name.
func (a *Analysis) NewPipeline(name, desc string, nm NameMaps, citations ...string) *Pipeline {
	return &Pipeline{
		Name:      nm.Prefix + name,
		Desc:      desc,
		Citations: citations,
		defName:   name,
		analysis:  a,
		nameMaps:  nm,
		nodes:     make(map[string]*Node),
		outputs:   make(map[string]Output),
	}
}

// Analysis returns the analysis the pipeline belongs to.
func (p *Pipeline) Analysis() *Analysis { return p.analysis }

// DefinitionName is the unprefixed name the pipeline is declared under.
func (p *Pipeline) DefinitionName() string { return p.defName }

// Add places a new node in the pipeline.
func (p *Pipeline) Add(name, ifaceName string, opts NodeOptions) (*Node, error) {
	if _, dup := p.nodes[name]; dup {
		return nil, fmt.Errorf("pipeline %s: node %q already exists", p.Name, name)
	}
	impl, ok := p.analysis.registry.Lookup(ifaceName)
	if !ok {
		return nil, fmt.Errorf("pipeline %s: node %q uses unknown interface %q", p.Name, name, ifaceName)
	}
	n := &Node{
		Name:         name,
		Interface:    impl,
		Parameters:   make(iface.Inputs),
		Inputs:       make(map[string]Source),
		JoinSource:   opts.JoinSource,
		JoinFields:   slices.Clone(opts.JoinFields),
		Requirements: slices.Clone(opts.Requirements),
		pipeline:     p,
	}
	for _, field := range slices.Sorted(maps.Keys(opts.Parameters)) {
		if err := n.Set(field, opts.Parameters[field]); err != nil {
			return nil, err
		}
	}
	for _, field := range slices.Sorted(maps.Keys(opts.Inputs)) {
		if err := n.Connect(field, opts.Inputs[field]); err != nil {
			return nil, err
		}
	}
	for _, field := range n.JoinFields {
		if _, ok := n.Inputs[field]; !ok {
			return nil, fmt.Errorf("pipeline %s: join field %q of node %q is not a connected input", p.Name, field, name)
		}
	}
	if len(n.JoinFields) > 0 && n.JoinSource == dataset.AxisNone {
		return nil, fmt.Errorf("pipeline %s: node %q has join fields but no join source", p.Name, name)
	}
	p.nodes[name] = n
	p.order = append(p.order, name)
	for _, spec := range slices.Sorted(maps.Keys(opts.Outputs)) {
		var err error
		if prev, dup := p.outputs[p.nameMaps.output(spec)]; dup {
			err = fmt.Errorf("pipeline %s: spec %q is already connected to %s.%s", p.Name, spec, prev.Node, prev.Field)
		} else {
			err = p.ConnectOutput(spec, name, opts.Outputs[spec])
		}
		if err != nil {
			p.remove(name)
			return nil, err
		}
	}
	return n, nil
}

func (p *Pipeline) remove(name string) {
	delete(p.nodes, name)
	p.order = slices.DeleteFunc(p.order, func(n string) bool { return n == name })
	maps.DeleteFunc(p.outputs, func(_ string, o Output) bool { return o.Node == name })
}

// Node looks up a node by name.
func (p *Pipeline) Node(name string) (*Node, bool) {
	n, ok := p.nodes[name]
	return n, ok
}

// Nodes lists the nodes in the order they were added.
func (p *Pipeline) Nodes() []*Node {
	out := make([]*Node, len(p.order))
	for i, name := range p.order {
		out[i] = p.nodes[name]
	}
	return out
}

// Outputs lists the spec bindings sorted by spec name.
func (p *Pipeline) Outputs() []Output {
	out := make([]Output, 0, len(p.outputs))
	for _, spec := range slices.Sorted(maps.Keys(p.outputs)) {
		out = append(out, p.outputs[spec])
	}
	return out
}

// Output returns the binding of a derived spec.
func (p *Pipeline) Output(spec string) (Output, bool) {
	o, ok := p.outputs[spec]
	return o, ok
}

// ConnectOutput binds a derived spec to a node output field, replacing any
// previous binding. spec is mapped through the pipeline's output name map.
func (p *Pipeline) ConnectOutput(spec, node, field string) error {
	n, ok := p.nodes[node]
	if !ok {
		return fmt.Errorf("pipeline %s: unknown node %q", p.Name, node)
	}
	spec = p.nameMaps.output(spec)
	ds, ok := p.analysis.def.Data(spec)
	if !ok {
		return fmt.Errorf("pipeline %s: unknown output spec %q", p.Name, spec)
	}
	if !ds.Derived() {
		return fmt.Errorf("pipeline %s: cannot write to input spec %q", p.Name, spec)
	}
	if ds.Pipeline != p.defName {
		return fmt.Errorf("pipeline %s: spec %q is produced by pipeline %q", p.Name, spec, ds.Pipeline)
	}
	if _, ok := n.Interface.OutputSpec().Lookup(field); !ok {
		return fmt.Errorf("pipeline %s: interface %s of node %q has no output %q", p.Name, n.Interface.Name(), node, field)
	}
	p.outputs[spec] = Output{Spec: spec, Node: node, Field: field}
	return nil
}

// ConnectInput binds a node input field to a data spec.
func (p *Pipeline) ConnectInput(spec, node, field string) error {
	n, ok := p.nodes[node]
	if !ok {
		return fmt.Errorf("pipeline %s: unknown node %q", p.Name, node)
	}
	return n.Connect(field, Data(spec))
}

// Check verifies that the pipeline produces every spec declared with it at
// the right frequency and that every mandatory interface input is bound.
func (p *Pipeline) Check() error {
	for _, ds := range p.analysis.def.SpecsOf(p.defName) {
		name := ds.Name
		out, ok := p.outputs[name]
		if !ok {
			return fmt.Errorf("pipeline %s does not produce %q", p.Name, name)
		}
		axes, err := p.nodes[out.Node].Axes()
		if err != nil {
			return err
		}
		if axes.Frequency() != ds.Frequency {
			return fmt.Errorf("pipeline %s: spec %q is %s but node %q iterates %s",
				p.Name, name, ds.Frequency, out.Node, axes.Frequency())
		}
	}
	for _, n := range p.Nodes() {
		for _, t := range n.Interface.InputSpec() {
			if !t.Mandatory || t.GenFile || t.Default != nil {
				continue
			}
			_, isParam := n.Parameters[t.Name]
			_, isInput := n.Inputs[t.Name]
			if !isParam && !isInput {
				return fmt.Errorf("pipeline %s: mandatory input %q of node %q is not set", p.Name, t.Name, n.Name)
			}
		}
	}
	return nil
}

// Pipeline returns the pipeline the node belongs to.
func (n *Node) Pipeline() *Pipeline { return n.pipeline }

// Set assigns a static interface input.
func (n *Node) Set(field string, v any) error {
	t, ok := n.Interface.InputSpec().Lookup(field)
	if !ok {
		return fmt.Errorf("pipeline %s: interface %s of node %q has no input %q", n.pipeline.Name, n.Interface.Name(), n.Name, field)
	}
	coerced, err := iface.Coerce(t.Kind, v)
	if err != nil {
		return fmt.Errorf("pipeline %s: node %q input %q: %w", n.pipeline.Name, n.Name, field, err)
	}
	n.Parameters[field] = coerced
	return nil
}

// Unset removes a static interface input so the interface default applies.
func (n *Node) Unset(field string) {
	delete(n.Parameters, field)
}

// Connect binds an input field to a source, replacing any previous binding.
func (n *Node) Connect(field string, src Source) error {
	p := n.pipeline
	if _, ok := n.Interface.InputSpec().Lookup(field); !ok {
		return fmt.Errorf("pipeline %s: interface %s of node %q has no input %q", p.Name, n.Interface.Name(), n.Name, field)
	}
	if src.IsData() {
		src.Spec = p.nameMaps.input(src.Spec)
		if _, ok := p.analysis.def.Data(src.Spec); !ok {
			return fmt.Errorf("pipeline %s: node %q reads unknown spec %q", p.Name, n.Name, src.Spec)
		}
		n.Inputs[field] = src
		return nil
	}
	up, ok := p.nodes[src.Node]
	if !ok {
		return fmt.Errorf("pipeline %s: node %q reads from unknown node %q", p.Name, n.Name, src.Node)
	}
	if _, ok := up.Interface.OutputSpec().Lookup(src.Field); !ok {
		return fmt.Errorf("pipeline %s: interface %s of node %q has no output %q", p.Name, up.Interface.Name(), up.Name, src.Field)
	}
	n.Inputs[field] = src
	return nil
}

// Upstream lists the names of the nodes this node reads from, sorted.
func (n *Node) Upstream() []string {
	seen := make(map[string]struct{})
	for _, src := range n.Inputs {
		if !src.IsData() {
			seen[src.Node] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// IsJoined reports whether the input field collects values along the join axis.
func (n *Node) IsJoined(field string) bool {
	return slices.Contains(n.JoinFields, field)
}

// InputAxes returns the axes the source of an input field iterates over.
func (n *Node) InputAxes(field string) (dataset.Axes, error) {
	src, ok := n.Inputs[field]
	if !ok {
		return dataset.Axes{}, fmt.Errorf("node %q has no input %q", n.Name, field)
	}
	if src.IsData() {
		ds, _ := n.pipeline.analysis.def.Data(src.Spec)
		return ds.Frequency.Axes(), nil
	}
	return n.pipeline.nodes[src.Node].Axes()
}

// Axes returns the axes the node iterates over: the union of its inputs'
// axes without the join source.
func (n *Node) Axes() (dataset.Axes, error) {
	var axes dataset.Axes
	for _, field := range slices.Sorted(maps.Keys(n.Inputs)) {
		a, err := n.InputAxes(field)
		if err != nil {
			return dataset.Axes{}, err
		}
		axes = axes.Union(a)
	}
	if n.JoinSource != dataset.AxisNone {
		if !axes.Has(n.JoinSource) {
			return dataset.Axes{}, fmt.Errorf("pipeline %s: node %q joins over %s but its inputs do not iterate it", n.pipeline.Name, n.Name, n.JoinSource)
		}
		axes = axes.Without(n.JoinSource)
	}
	return axes, nil
}
