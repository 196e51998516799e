package matlab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/neurogrid/internal/iface"
)

const scriptName = "brain_volume"

var totalPattern = regexp.MustCompile(`total =\s+([0-9]+)`)

// BrainVolume counts the voxels above zero in an image using MATLAB's
// niftiread and reports the count parsed from MATLAB's output.
type BrainVolume struct {
	cmd *iface.CommandLine
}

// NewBrainVolume creates the interface running the given MATLAB executable.
func NewBrainVolume(matlabCmd string) *BrainVolume {
	cmd := iface.NewCommandLine("matlab_brain_volume", matlabCmd,
		iface.Spec{
			{Name: "nodesktop", Kind: iface.KindBool, Argstr: "-nodesktop", Position: 1, Default: true},
			{Name: "nosplash", Kind: iface.KindBool, Argstr: "-nosplash", Position: 2, Default: true},
			{Name: "single_comp_thread", Kind: iface.KindBool, Argstr: "-singleCompThread", Position: 3, Default: true},
			{Name: "run", Kind: iface.KindString, Argstr: `-r "%s"`, Position: 4},
		},
		nil,
	)
	cmd.ListOutputs = func(_ iface.Inputs, res iface.Result) (iface.Outputs, error) {
		volume, err := ParseVolume(res.Stdout)
		if err != nil {
			return nil, err
		}
		return iface.Outputs{"volume": volume, "raw_output": res.Stdout}, nil
	}
	return &BrainVolume{cmd: cmd}
}

func (b *BrainVolume) Name() string { return "matlab_brain_volume" }

func (b *BrainVolume) InputSpec() iface.Spec {
	return iface.Spec{
		{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Desc: "Image to measure"},
	}
}

func (b *BrainVolume) OutputSpec() iface.Spec {
	return iface.Spec{
		{Name: "volume", Kind: iface.KindInt, Mandatory: true, Desc: "Number of voxels above zero"},
		{Name: "raw_output", Kind: iface.KindString, Desc: "MATLAB's standard output"},
	}
}

// Script renders the MATLAB script measuring inFile.
func Script(inFile string) string {
	return fmt.Sprintf("data = niftiread('%s');\ntotal = sum(data(:) > 0)\n", strings.ReplaceAll(inFile, "'", "''"))
}

// Run writes the script into the work dir and runs MATLAB on it.
func (b *BrainVolume) Run(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
	dir := "."
	if rt != nil && rt.WorkDir != "" {
		dir = rt.WorkDir
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	script := filepath.Join(dir, scriptName+".m")
	if err := os.WriteFile(script, []byte(Script(in["in_file"].(string))), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write MATLAB script: %w", err)
	}

	args, err := b.cmd.InputSpec().Validate(iface.Inputs{
		"run": fmt.Sprintf("addpath('%s');%s;exit", dir, scriptName),
	})
	if err != nil {
		return nil, err
	}
	return b.cmd.Run(ctx, rt, args)
}

// ParseVolume extracts the total printed by the brain volume script.
func ParseVolume(raw string) (int, error) {
	match := totalPattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, fmt.Errorf("Did not find match for 'total =\\s+([0-9]+)' in raw output:\n\n%s", raw)
	}
	return strconv.Atoi(match[1])
}
