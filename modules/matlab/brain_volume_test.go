package matlab

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/iface"
)

func TestParseVolume(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "inline", raw: "total =  1234", expected: 1234},
		{name: "matlab display format", raw: ">> \ntotal =\n\n      987654\n\n", expected: 987654},
		{name: "first match wins", raw: "total = 1\ntotal = 2", expected: 1},
		{name: "missing", raw: "Undefined function 'niftiread'", expectErr: true},
		{name: "no whitespace", raw: "total =1234", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVolume(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				assert.Equal(t, "Did not find match for 'total =\\s+([0-9]+)' in raw output:\n\n"+tc.raw, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestScript(t *testing.T) {
	assert.Equal(t, "data = niftiread('/d/it''s.nii.gz');\ntotal = sum(data(:) > 0)\n", Script("/d/it's.nii.gz"))
}

func TestBrainVolume_RunsMatlab(t *testing.T) {
	// --- Arrange ---
	bin := t.TempDir()
	fake := filepath.Join(bin, "fake-matlab")
	require.NoError(t, os.WriteFile(fake, []byte(`#!/bin/sh
echo "$@" > matlab.args
printf 'total =\n\n        1234\n\n'
`), 0o755))
	work := t.TempDir()
	b := NewBrainVolume(fake)

	// --- Act ---
	out, err := iface.Execute(context.Background(), b, &iface.Runtime{WorkDir: work}, iface.Inputs{"in_file": "/data/brain.nii.gz"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1234, out["volume"])
	assert.Contains(t, out["raw_output"], "1234")

	script, err := os.ReadFile(filepath.Join(work, "brain_volume.m"))
	require.NoError(t, err)
	assert.Equal(t, Script("/data/brain.nii.gz"), string(script))

	args, err := os.ReadFile(filepath.Join(work, "matlab.args"))
	require.NoError(t, err)
	assert.Equal(t, "-nodesktop -nosplash -singleCompThread -r addpath('"+work+"');brain_volume;exit\n", string(args))
}

func TestBrainVolume_ParseFailure(t *testing.T) {
	bin := t.TempDir()
	fake := filepath.Join(bin, "fake-matlab")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho 'License checkout failed'\n"), 0o755))

	_, err := iface.Execute(context.Background(), NewBrainVolume(fake), &iface.Runtime{WorkDir: t.TempDir()}, iface.Inputs{"in_file": "/data/brain.nii.gz"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did not find match for 'total =\\s+([0-9]+)' in raw output:\n\nLicense checkout failed")
}

func TestModule_DefaultCommand(t *testing.T) {
	r := iface.NewRegistry()
	(&Module{}).Register(r)
	_, ok := r.Lookup("matlab_brain_volume")
	assert.True(t, ok)
}
