package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
)

func TestDefinition_Validate(t *testing.T) {
	text, _ := format.Default().Lookup("text")
	testCases := []struct {
		name      string
		data      []DataSpec
		params    []ParamSpec
		expectErr string
	}{
		{
			name: "valid",
			data: []DataSpec{{Name: "in", Kind: InputFileset, Format: text}},
		},
		{
			name:      "derived without pipeline",
			data:      []DataSpec{{Name: "out", Kind: DerivedField, Type: FieldFloat}},
			expectErr: `derived spec "out" does not name a pipeline`,
		},
		{
			name:      "derived with unknown pipeline",
			data:      []DataSpec{{Name: "out", Kind: DerivedField, Type: FieldFloat, Pipeline: "nope"}},
			expectErr: `names unknown pipeline "nope"`,
		},
		{
			name:      "input naming a pipeline",
			data:      []DataSpec{{Name: "in", Kind: InputField, Type: FieldString, Pipeline: "p"}},
			expectErr: `input "in" must not name a pipeline`,
		},
		{
			name:      "fileset without format",
			data:      []DataSpec{{Name: "in", Kind: InputFileset}},
			expectErr: `fileset "in" has no format`,
		},
		{
			name:      "field without type",
			data:      []DataSpec{{Name: "in", Kind: InputField}},
			expectErr: `field "in" has no type`,
		},
		{
			name:      "param clashing with data",
			data:      []DataSpec{{Name: "x", Kind: InputFileset, Format: text}},
			params:    []ParamSpec{{Name: "x", Default: 1.0}},
			expectErr: `"x" is declared as both data spec and parameter`,
		},
		{
			name:      "switch default outside choices",
			params:    []ParamSpec{{Name: "tool", Default: "spm", Choices: []any{"fsl", "matlab"}}},
			expectErr: `default of switch "tool"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := NewDefinition("d", "")
			def.AddData(tc.data...).AddParam(tc.params...)

			err := def.Validate()

			if tc.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}

func TestDefinition_AddPipelineRejectsDuplicates(t *testing.T) {
	def := testDefinition(t)

	err := def.AddPipeline("copy_pipeline", "", func(a *Analysis, nm NameMaps) (*Pipeline, error) { return nil, nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "use an override")
	assert.Error(t, def.OverridePipeline("unknown", nil))
}

func TestDefinition_ExtendReplacesInPlace(t *testing.T) {
	// --- Arrange ---
	base := testDefinition(t)
	text, _ := format.Default().Lookup("text")

	// --- Act ---
	child := base.Extend("toy_ext", "extended")
	child.AddData(DataSpec{Name: "copied", Kind: DerivedFileset, Format: text, Frequency: dataset.PerSession, Pipeline: "copy_pipeline", Output: true})
	child.AddParam(func() ParamSpec { p, _ := base.Param("suffix"); return p.WithNewDefault("_ext") }())

	// --- Assert ---
	names := func(d *Definition) []string {
		var out []string
		for _, ds := range d.DataSpecs() {
			out = append(out, ds.Name)
		}
		return out
	}
	assert.Equal(t, names(base), names(child))
	got, _ := child.Data("copied")
	assert.True(t, got.Output)
	orig, _ := base.Data("copied")
	assert.False(t, orig.Output, "extending must not modify the parent")

	p, _ := child.Param("suffix")
	assert.Equal(t, "_ext", p.Default)
	p, _ = base.Param("suffix")
	assert.Equal(t, "_copy", p.Default)
	assert.Equal(t, "toy", child.Parent)
	assert.Equal(t, base.PipelineNames(), child.PipelineNames())
}

func TestDefinition_OverrideCallsSuper(t *testing.T) {
	// --- Arrange ---
	base := testDefinition(t)
	child := base.Extend("toy_ext", "")
	require.NoError(t, child.OverridePipeline("copy_pipeline", func(a *Analysis, nm NameMaps, super Constructor) (*Pipeline, error) {
		p, err := super(a, nm)
		if err != nil {
			return nil, err
		}
		n, _ := p.Node("copy")
		return p, n.Set("suffix", "_override")
	}))
	a, err := New(child, Options{Repository: testRepo(t), Registry: testRegistry()})
	require.NoError(t, err)
	parent, err := New(base, Options{Repository: testRepo(t), Registry: testRegistry()})
	require.NoError(t, err)

	// --- Act ---
	p, err := a.Pipeline("copy_pipeline")
	require.NoError(t, err)
	pp, err := parent.Pipeline("copy_pipeline")
	require.NoError(t, err)

	// --- Assert ---
	n, _ := p.Node("copy")
	assert.Equal(t, "_override", n.Parameters["suffix"])
	n, _ = pp.Node("copy")
	assert.Equal(t, "_copy", n.Parameters["suffix"])
}
