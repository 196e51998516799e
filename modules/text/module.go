// Package text provides interfaces wrapping the Unix text-processing tools
// grep and awk.
package text

import "github.com/vk/neurogrid/internal/iface"

// Module implements the iface.Module interface for this package.
type Module struct{}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	r.Register(NewGrep())
	r.Register(NewAwk())
}
