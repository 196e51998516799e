// Package stats provides in-process interfaces that compute summary
// statistics over scalar values stored one per file.
package stats

import "github.com/vk/neurogrid/internal/iface"

// Module implements the iface.Module interface for this package.
type Module struct{}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	r.Register(NewConcatFloats())
	r.Register(NewExtractMetrics())
}
