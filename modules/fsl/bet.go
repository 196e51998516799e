package fsl

import "github.com/vk/neurogrid/internal/iface"

// NewBET wraps the FSL brain extraction tool.
func NewBET() *iface.CommandLine {
	c := newCommand("bet", "bet",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 1,
				Desc: "Input image to skull strip"},
			{Name: "out_file", Kind: iface.KindFile, Argstr: "%s", Position: 2, GenFile: true,
				Desc: "Name of the output image"},
			{Name: "mask", Kind: iface.KindBool, Argstr: "-m", Desc: "Create a binary brain mask"},
			{Name: "surfaces", Kind: iface.KindBool, Argstr: "-A", Desc: "Run bet2 and betsurf to get skull and scalp surfaces"},
			{Name: "robust", Kind: iface.KindBool, Argstr: "-R", Desc: "Robust brain centre estimation"},
			{Name: "frac", Kind: iface.KindFloat, Argstr: "-f %s", Desc: "Fractional intensity threshold"},
		},
		iface.Spec{
			{Name: "out_file", Kind: iface.KindFile, Mandatory: true, Desc: "Skull-stripped image"},
			{Name: "mask_file", Kind: iface.KindFile, Desc: "Binary brain mask"},
			{Name: "skull_mask_file", Kind: iface.KindFile, Desc: "Skull mask"},
		},
	)
	c.GenFilename = genFromInput("_brain")
	c.ListOutputs = func(in iface.Inputs, _ iface.Result) (iface.Outputs, error) {
		outFile := in["out_file"].(string)
		out := iface.Outputs{"out_file": outFile}
		if b, _ := in["mask"].(bool); b {
			out["mask_file"] = withSuffix(outFile, "_mask")
		}
		if b, _ := in["surfaces"].(bool); b {
			out["skull_mask_file"] = withSuffix(outFile, "_skull_mask")
		}
		for _, v := range out {
			if err := requireFile(v.(string)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return c
}
