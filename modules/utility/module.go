// Package utility provides generic in-process interfaces for reshaping the
// values flowing between nodes.
package utility

import "github.com/vk/neurogrid/internal/iface"

// Module implements the iface.Module interface for this package.
type Module struct{}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	r.Register(NewMerge())
}
