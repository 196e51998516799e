package fsl

import (
	"errors"
	"math"

	"github.com/vk/neurogrid/internal/iface"
)

// FWHMToSigma converts a full width at half maximum to the sigma of a
// Gaussian kernel.
func FWHMToSigma(fwhm float64) float64 {
	return fwhm / math.Sqrt(8*math.Log(2))
}

// NewIsotropicSmooth wraps `fslmaths <in> -s <sigma> <out>`. The kernel is
// given either as fwhm or as sigma.
func NewIsotropicSmooth() *iface.CommandLine {
	c := newCommand("isotropic_smooth", "fslmaths",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 1,
				Desc: "Image to smooth"},
			{Name: "fwhm", Kind: iface.KindFloat, XOR: []string{"sigma"},
				Desc: "Full width at half maximum of the Gaussian kernel (mm)"},
			{Name: "sigma", Kind: iface.KindFloat, Argstr: "-s %s", Position: 2, XOR: []string{"fwhm"},
				Desc: "Sigma of the Gaussian kernel (mm)"},
			{Name: "out_file", Kind: iface.KindFile, Argstr: "%s", Position: 3, GenFile: true,
				Desc: "Name of the output image"},
		},
		iface.Spec{{Name: "out_file", Kind: iface.KindFile, Mandatory: true, Desc: "Smoothed image"}},
	)
	c.Prepare = func(in iface.Inputs) (iface.Inputs, error) {
		if fwhm, ok := in["fwhm"].(float64); ok {
			in["sigma"] = FWHMToSigma(fwhm)
			delete(in, "fwhm")
		}
		if _, ok := in["sigma"]; !ok {
			return nil, errors.New("one of fwhm or sigma must be set")
		}
		return in, nil
	}
	c.GenFilename = genFromInput("_smooth")
	return c
}

// NewApplyMask wraps `fslmaths <in> -mas <mask> <out>`.
func NewApplyMask() *iface.CommandLine {
	c := newCommand("apply_mask", "fslmaths",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 1,
				Desc: "Image to mask"},
			{Name: "mask_file", Kind: iface.KindFile, Mandatory: true, Argstr: "-mas %s", Position: 2,
				Desc: "Binary mask"},
			{Name: "out_file", Kind: iface.KindFile, Argstr: "%s", Position: 3, GenFile: true,
				Desc: "Name of the output image"},
		},
		iface.Spec{{Name: "out_file", Kind: iface.KindFile, Mandatory: true, Desc: "Masked image"}},
	)
	c.GenFilename = genFromInput("_masked")
	return c
}
