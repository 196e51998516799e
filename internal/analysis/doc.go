// Package analysis holds the declarative model of an analysis and the
// pipeline builder that wires interfaces together.
//
// # Definitions and Instances
//
// A Definition is static: it declares data specs (acquired inputs and derived
// outputs), parameter specs and named pipeline constructors. Definitions can
// extend one another; re-adding a spec replaces it in place and an override
// receives the inherited constructor so it can adjust the pipeline it builds.
//
// An Analysis binds a definition to a dataset repository, parameter values and
// input filters. Constructing a pipeline requires an Analysis because
// constructors read parameters:
//
//	p := a.NewPipeline("brain_extraction", "Extract the brain", nm)
//	n, err := p.Add("bet", "bet", analysis.NodeOptions{
//	    Inputs:  map[string]analysis.Source{"in_file": analysis.Data("magnitude")},
//	    Outputs: map[string]string{"brain": "out_file"},
//	})
//
// # Iteration
//
// A node runs once per key along the axes it iterates over. Those are the
// union of the axes of its inputs, minus the JoinSource axis. Joined inputs
// receive every value along the join axis, ordered by key.
package analysis
