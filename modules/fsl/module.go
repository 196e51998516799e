// Package fsl provides interfaces wrapping FSL command-line tools. Every
// wrapper runs with FSLOUTPUTTYPE=NIFTI_GZ, so generated images are named
// with a .nii.gz extension.
package fsl

import (
	"fmt"
	"os"

	"github.com/vk/neurogrid/internal/iface"
)

// OutputType is the FSLOUTPUTTYPE every wrapper runs with.
const OutputType = "NIFTI_GZ"

const outputExt = ".nii.gz"

// Module implements the iface.Module interface for this package.
type Module struct{}

// Register registers the interfaces with the engine.
func (m *Module) Register(r *iface.Registry) {
	r.Register(NewBET())
	r.Register(NewIsotropicSmooth())
	r.Register(NewApplyMask())
	r.Register(NewImageStats())
}

func newCommand(name, cmd string, in, out iface.Spec) *iface.CommandLine {
	c := iface.NewCommandLine(name, cmd, in, out)
	c.Env = map[string]string{"FSLOUTPUTTYPE": OutputType}
	return c
}

// genFromInput names outputs after the in_file input with a suffix.
func genFromInput(suffix string) func(string, iface.Inputs) string {
	return func(_ string, in iface.Inputs) string {
		src, _ := in["in_file"].(string)
		if src == "" {
			return ""
		}
		base, _ := iface.SplitExt(src)
		return base + suffix + outputExt
	}
}

// withSuffix inserts a suffix before the extension of path.
func withSuffix(path, suffix string) string {
	base, ext := iface.SplitExt(path)
	dir := path[:len(path)-len(base)-len(ext)]
	return dir + base + suffix + ext
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected output file %q was not created: %w", path, err)
	}
	return nil
}
