// Package volume provides in-process interfaces over NIfTI-1 images.
package volume

import "github.com/vk/neurogrid/internal/iface"

// Module implements the iface.Module interface for this package.
type Module struct{}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	r.Register(NewVoxelCount())
}
