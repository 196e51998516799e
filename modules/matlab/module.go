// Package matlab provides interfaces that run generated MATLAB scripts.
package matlab

import "github.com/vk/neurogrid/internal/iface"

// DefaultCommand is the MATLAB executable used when none is configured.
const DefaultCommand = "matlab"

// Module implements the iface.Module interface for this package.
type Module struct {
	// Command is the MATLAB executable, e.g. "/opt/matlab/bin/matlab".
	Command string
}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	cmd := m.Command
	if cmd == "" {
		cmd = DefaultCommand
	}
	r.Register(NewBrainVolume(cmd))
}
