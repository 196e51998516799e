// Package iface defines the node wrapper contract: every processing step in
// a pipeline is an Interface with a declared input spec, a declared output
// spec and a Run method.
//
// # Why Interfaces Exist
//
// Pipelines are declared without knowing how their steps run. A step may shell
// out to an external tool (grep, FSL, MATLAB) or compute in-process (float
// statistics). The Interface contract lets the builder validate bindings
// statically against the declared specs and lets the processor run any step
// the same way, locally or on a remote worker.
//
// # Command-Line Interfaces
//
// Most wrappers are thin: they map named inputs onto a command line. The
// CommandLine type does that from per-trait argument templates (Argstr) and
// positions, generates output file names for traits marked GenFile, runs the
// command through `sh -c` in the node's working directory and hands the
// captured stdout/stderr to an output-listing hook.
//
// # Registration
//
// Interfaces are compiled in and registered by modules:
//
//	func (m *Module) Register(r *iface.Registry) {
//	    r.Register(NewGrep())
//	}
//
// Registering the same name twice is a programmer error and panics.
package iface
