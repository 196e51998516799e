package app

import (
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/modules/fsl"
	"github.com/vk/neurogrid/modules/matlab"
	"github.com/vk/neurogrid/modules/stats"
	"github.com/vk/neurogrid/modules/text"
	"github.com/vk/neurogrid/modules/utility"
	"github.com/vk/neurogrid/modules/volume"
)

// coreModules is the definitive list of the interface modules compiled into
// the neurogrid binary.
func coreModules(cfg *Config) []iface.Module {
	return []iface.Module{
		&text.Module{},
		&stats.Module{},
		&utility.Module{},
		&fsl.Module{},
		&matlab.Module{Command: cfg.MatlabCommand},
		&volume.Module{},
	}
}
