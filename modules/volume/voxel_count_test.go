package volume

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/nifti"
)

func TestVoxelCount(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "brain_mask.nii.gz")
	data := make([]float32, 4*4*2)
	for i := 0; i < 10; i++ {
		data[i] = 1
	}
	data[20] = 0.4
	require.NoError(t, nifti.Write(path, []int{4, 4, 2}, []float32{2, 2, 2}, data))

	testCases := []struct {
		name      string
		threshold any
		volume    int
	}{
		{name: "default threshold", volume: 11},
		{name: "custom threshold", threshold: 0.5, volume: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := iface.Inputs{"in_file": path}
			if tc.threshold != nil {
				in["threshold"] = tc.threshold
			}

			// --- Act ---
			out, err := iface.Execute(context.Background(), NewVoxelCount(), nil, in)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.volume, out["volume"])
			assert.Equal(t, float64(tc.volume)*8, out["volume_mm3"])
		})
	}
}

func TestVoxelCount_IgnoresInterceptByDefault(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "ct.nii.gz")
	data := []float32{0, 10, 500, 1100, 1500, 2000, 0, 0}
	require.NoError(t, nifti.WriteScaled(path, []int{2, 2, 2}, []float32{1, 1, 1}, data, 1, -1024))

	// --- Act ---
	stored, err := iface.Execute(context.Background(), NewVoxelCount(), nil, iface.Inputs{"in_file": path})
	require.NoError(t, err)
	scaled, err := iface.Execute(context.Background(), NewVoxelCount(), nil, iface.Inputs{"in_file": path, "apply_scaling": true})
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, 5, stored["volume"], "same count as sum(niftiread(f)(:) > 0)")
	assert.Equal(t, 3, scaled["volume"])
}

func TestVoxelCount_NotNifti(t *testing.T) {
	_, err := iface.Execute(context.Background(), NewVoxelCount(), nil, iface.Inputs{"in_file": filepath.Join(t.TempDir(), "none.nii")})
	require.Error(t, err)
}
