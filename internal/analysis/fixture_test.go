package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
	"github.com/vk/neurogrid/internal/iface"
)

func testRegistry() *iface.Registry {
	r := iface.NewRegistry()
	r.Register(iface.NewFunc("copy",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true},
			{Name: "suffix", Kind: iface.KindString, Default: "_copy"},
		},
		iface.Spec{{Name: "out_file", Kind: iface.KindFile}},
		func(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
			return iface.Outputs{"out_file": in["in_file"]}, nil
		}))
	r.Register(iface.NewFunc("count",
		iface.Spec{{Name: "items", Kind: iface.KindAny, Mandatory: true}},
		iface.Spec{{Name: "n", Kind: iface.KindInt}},
		func(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
			items, _ := in["items"].([]any)
			return iface.Outputs{"n": len(items)}, nil
		}))
	return r
}

// testDefinition declares a per-session copy of "scan" and a per-subject
// count of the copies.
func testDefinition(t *testing.T) *Definition {
	t.Helper()
	text, _ := format.Default().Lookup("text")
	def := NewDefinition("toy", "A toy analysis")
	def.AddData(
		DataSpec{Name: "scan", Kind: InputFileset, Format: text, Frequency: dataset.PerSession},
		DataSpec{Name: "age", Kind: InputField, Type: FieldInt, Frequency: dataset.PerSubject, Optional: true},
		DataSpec{Name: "copied", Kind: DerivedFileset, Format: text, Frequency: dataset.PerSession, Pipeline: "copy_pipeline", Desc: "copied scans"},
		DataSpec{Name: "n_visits", Kind: DerivedField, Type: FieldInt, Frequency: dataset.PerSubject, Pipeline: "count_pipeline", Output: true},
	)
	def.AddParam(
		ParamSpec{Name: "suffix", Default: "_copy", Desc: "suffix of copies"},
		ParamSpec{Name: "mode", Default: "fast", Choices: []any{"fast", "slow"}},
	)
	require.NoError(t, def.AddPipeline("copy_pipeline", "copies scans", func(a *Analysis, nm NameMaps) (*Pipeline, error) {
		p := a.NewPipeline("copy_pipeline", "copies scans", nm)
		suffix, err := a.Parameter("suffix")
		if err != nil {
			return nil, err
		}
		_, err = p.Add("copy", "copy", NodeOptions{
			Parameters: iface.Inputs{"suffix": suffix},
			Inputs:     map[string]Source{"in_file": Data("scan")},
			Outputs:    map[string]string{"copied": "out_file"},
		})
		return p, err
	}))
	require.NoError(t, def.AddPipeline("count_pipeline", "counts visits", func(a *Analysis, nm NameMaps) (*Pipeline, error) {
		p := a.NewPipeline("count_pipeline", "counts visits", nm)
		_, err := p.Add("count", "count", NodeOptions{
			Inputs:     map[string]Source{"items": Data("copied")},
			Outputs:    map[string]string{"n_visits": "n"},
			JoinSource: dataset.AxisVisit,
			JoinFields: []string{"items"},
		})
		return p, err
	}))
	return def
}

func testRepo(t *testing.T) *dataset.LocalRepo {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"s1/v1/scan.txt":       "a",
		"s1/v2/scan.txt":       "b",
		"s2/v1/scan.txt":       "c",
		"s1/fields.json":       `{"age": 30}`,
		"s2/v1/scan_other.txt": "d",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	repo, err := dataset.NewLocalRepo(root, 2, format.Default())
	require.NoError(t, err)
	return repo
}

func newTestAnalysis(t *testing.T, opts Options) *Analysis {
	t.Helper()
	if opts.Repository == nil {
		opts.Repository = testRepo(t)
	}
	if opts.Registry == nil {
		opts.Registry = testRegistry()
	}
	a, err := New(testDefinition(t), opts)
	require.NoError(t, err)
	return a
}
