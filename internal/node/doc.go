// Package node defines the vertex of the execution graph.
//
// A pipeline declares nodes once; the workflow builder instantiates each of
// them at every key the node iterates over. A Node here is such an instance.
// Besides its static wiring (pipeline, key, input bindings, sinks) it carries
// the small amount of atomic state the executor uses for dependency counting
// and skip propagation. Durable state such as outputs lives in nodestore.
package node
