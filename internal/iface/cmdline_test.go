package iface

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrepLike() *CommandLine {
	return NewCommandLine("grep", "grep",
		Spec{
			{Name: "match_str", Kind: KindString, Mandatory: true, Argstr: "-e %s", Position: 1},
			{Name: "in_file", Kind: KindFile, Mandatory: true, Argstr: "%s", Position: 2},
			{Name: "out_file", Kind: KindFile, Argstr: "> %s", Position: 3, GenFile: true, Default: "search_results.txt"},
			{Name: "count", Kind: KindBool, Argstr: "-c"},
			{Name: "ignore_case", Kind: KindBool, Argstr: "-i"},
		},
		Spec{{Name: "out_file", Kind: KindFile, Mandatory: true}},
	)
}

func TestCommandLine_CommandString(t *testing.T) {
	c := newGrepLike()
	rt := &Runtime{WorkDir: "/work"}

	in, err := c.InputSpec().Validate(Inputs{"match_str": "height", "in_file": "/data/metrics.txt", "ignore_case": true, "count": false})
	require.NoError(t, err)
	resolved, err := c.Resolve(rt, in)
	require.NoError(t, err)
	line, err := c.CommandString(resolved)

	require.NoError(t, err)
	assert.Equal(t, "grep -e height /data/metrics.txt > /work/search_results.txt -i", line)
}

func TestCommandLine_QuotesUnsafePaths(t *testing.T) {
	c := newGrepLike()

	line, err := c.CommandString(Inputs{"match_str": "x", "in_file": "/data/my file.txt", "out_file": "/o.txt"})

	require.NoError(t, err)
	assert.Equal(t, "grep -e x '/data/my file.txt' > /o.txt", line)
}

func TestCommandLine_QuotesStringValues(t *testing.T) {
	testCases := []struct {
		name     string
		trait    Trait
		value    string
		expected string
	}{
		{
			name:     "bare placeholder is quoted",
			trait:    Trait{Name: "s", Kind: KindString, Argstr: "-e %s"},
			value:    "weight; rm -rf x",
			expected: "tool -e 'weight; rm -rf x'",
		},
		{
			name:     "safe value stays bare",
			trait:    Trait{Name: "s", Kind: KindString, Argstr: "-e %s"},
			value:    "weight",
			expected: "tool -e weight",
		},
		{
			name:     "quoted placeholder is left alone",
			trait:    Trait{Name: "s", Kind: KindString, Argstr: "'%s'"},
			value:    "{print $2}",
			expected: "tool '{print $2}'",
		},
		{
			name:     "verbatim option string is split by the shell",
			trait:    Trait{Name: "s", Kind: KindString, Argstr: "%s", Verbatim: true},
			value:    "-k mask.nii -M",
			expected: "tool -k mask.nii -M",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			c := NewCommandLine("tool", "tool", Spec{tc.trait}, nil)

			// --- Act ---
			line, err := c.CommandString(Inputs{"s": tc.value})

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.expected, line)
		})
	}
}

func TestCommandLine_GenFilenameHook(t *testing.T) {
	c := NewCommandLine("bet", "bet",
		Spec{
			{Name: "in_file", Kind: KindFile, Argstr: "%s", Position: 1},
			{Name: "out_file", Kind: KindFile, Argstr: "%s", Position: 2, GenFile: true},
		},
		nil,
	)
	c.GenFilename = func(trait string, in Inputs) string {
		base, _ := SplitExt(in["in_file"].(string))
		return base + "_brain.nii.gz"
	}

	resolved, err := c.Resolve(&Runtime{WorkDir: "/w"}, Inputs{"in_file": "/d/T1w.nii.gz"})

	require.NoError(t, err)
	assert.Equal(t, "/w/T1w_brain.nii.gz", resolved["out_file"])
}

func TestCommandLine_RunRecordsCommandAndOutputs(t *testing.T) {
	// --- Arrange ---
	work := t.TempDir()
	input := filepath.Join(t.TempDir(), "metrics.txt")
	require.NoError(t, os.WriteFile(input, []byte("height 1.8\nweight 75\n"), 0o644))
	c := newGrepLike()

	// --- Act ---
	out, err := Execute(context.Background(), c, &Runtime{WorkDir: work}, Inputs{"match_str": "weight", "in_file": input})

	// --- Assert ---
	require.NoError(t, err)
	outFile := filepath.Join(work, "search_results.txt")
	assert.Equal(t, Outputs{"out_file": outFile}, out)
	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "weight 75\n", string(content))

	recorded, err := os.ReadFile(filepath.Join(work, CommandFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(recorded), "grep -e weight "))
}

func TestCommandLine_RunFailureCarriesStderr(t *testing.T) {
	c := NewCommandLine("fail", "sh", Spec{{Name: "script", Kind: KindString, Argstr: "-c %s", Position: 1}}, nil)

	_, err := c.Run(context.Background(), &Runtime{WorkDir: t.TempDir()}, Inputs{"script": "'echo boom >&2; exit 3'"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestCommandLine_EnvAndListOutputs(t *testing.T) {
	c := NewCommandLine("env", "printenv", Spec{{Name: "var", Kind: KindString, Argstr: "%s", Position: 1}}, Spec{{Name: "value", Kind: KindString}})
	c.Env = map[string]string{"FSLOUTPUTTYPE": "NIFTI_GZ"}
	c.ListOutputs = func(in Inputs, res Result) (Outputs, error) {
		return Outputs{"value": strings.TrimSpace(res.Stdout)}, nil
	}

	out, err := Execute(context.Background(), c, &Runtime{WorkDir: t.TempDir(), Env: []string{"EXTRA=1"}}, Inputs{"var": "FSLOUTPUTTYPE"})

	require.NoError(t, err)
	assert.Equal(t, "NIFTI_GZ", out["value"])
}

func TestExecute_MissingMandatoryOutput(t *testing.T) {
	c := NewCommandLine("true", "true", nil, Spec{{Name: "out_file", Kind: KindFile, Mandatory: true}})

	_, err := Execute(context.Background(), c, &Runtime{WorkDir: t.TempDir()}, Inputs{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `did not produce mandatory output "out_file"`)
}

func TestSplitExt(t *testing.T) {
	testCases := []struct {
		path, base, ext string
	}{
		{"/data/sub-01_T1w.nii.gz", "sub-01_T1w", ".nii.gz"},
		{"metrics.txt", "metrics", ".txt"},
		{"archive.gz", "archive", ".gz"},
		{"noext", "noext", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			base, ext := SplitExt(tc.path)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.ext, ext)
		})
	}
}
