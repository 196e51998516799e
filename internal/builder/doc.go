// Package builder expands derivation requests into an execution graph.
//
// # Why Builder Exists
//
// An analysis declares pipelines once, in terms of data specs and
// frequencies. Running them needs concrete work items: every pipeline node
// instantiated at every dataset key it iterates over, wired to the instances
// and stored values it reads. The builder performs that expansion before
// anything runs, so missing or ambiguous inputs and cyclic pipelines are
// reported up front.
//
// # How It Works
//
// For every requested spec and every key at the spec's frequency:
//  1. **Skip** keys whose value is already stored, unless Reprocess is set.
//  2. **Construct** the pipeline producing the spec.
//  3. **Instantiate** the sink node at the key and, recursively, the
//     upstream nodes it reads from. Derived data specs read by a node pull
//     in the pipelines producing them the same way.
//  4. **Resolve** primary inputs against the repository and record them on
//     the instance's bindings.
//
// Node instances are addressed `<pipeline>.<node>[<key>]`. A node that joins
// over an axis depends on the upstream instances at every key along that
// axis, in key order.
//
// Example, with sessions s1:v1 and s1:v2 and a per-subject count of copies:
//
//	copy_pipeline.copy[s1:v1] ─┐
//	                           ├─► count_pipeline.count[s1:*]
//	copy_pipeline.copy[s1:v2] ─┘
package builder
