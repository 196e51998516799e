package volume

import (
	"context"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/nifti"
)

// NewVoxelCount counts the voxels of an image above a threshold. Like
// niftiread in matlab_brain_volume it compares stored values, so both give the
// same volume; apply_scaling compares scl_slope/scl_inter scaled values.
func NewVoxelCount() *iface.Func {
	return iface.NewFunc("voxel_count",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Desc: "Image to measure"},
			{Name: "threshold", Kind: iface.KindFloat, Default: 0.0, Desc: "Voxels strictly above this value are counted"},
			{Name: "apply_scaling", Kind: iface.KindBool, Default: false, Desc: "Compare scaled instead of stored voxel values"},
		},
		iface.Spec{
			{Name: "volume", Kind: iface.KindInt, Mandatory: true, Desc: "Number of voxels above the threshold"},
			{Name: "volume_mm3", Kind: iface.KindFloat, Desc: "Counted volume in pixdim units"},
		},
		voxelCount,
	)
}

func voxelCount(ctx context.Context, _ *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
	img, err := nifti.Open(in["in_file"].(string))
	if err != nil {
		return nil, err
	}
	if in["apply_scaling"].(bool) {
		img.ApplyScaling()
	}
	count := img.CountAbove(in["threshold"].(float64))
	ctxlog.FromContext(ctx).Debug("Counted voxels.", "file", in["in_file"], "voxels", len(img.Data), "count", count, "scaled", img.Header.Scaled())
	return iface.Outputs{
		"volume":     count,
		"volume_mm3": float64(count) * img.VoxelVolume(),
	}, nil
}
