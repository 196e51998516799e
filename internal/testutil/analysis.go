package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
	"github.com/vk/neurogrid/internal/iface"
)

// ToyCalls counts how often the toy interfaces ran.
type ToyCalls struct {
	Copy  atomic.Int32
	Count atomic.Int32
}

// ToyRegistry registers three in-process interfaces:
//
//	copy  in_file, suffix -> out_file (a copy written into the work dir)
//	count items           -> n (number of items)
//	fail  in_file         -> out (always errors)
func ToyRegistry(calls *ToyCalls) *iface.Registry {
	if calls == nil {
		calls = &ToyCalls{}
	}
	r := iface.NewRegistry()
	r.Register(iface.NewFunc("copy",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true},
			{Name: "suffix", Kind: iface.KindString, Default: "_copy"},
		},
		iface.Spec{{Name: "out_file", Kind: iface.KindFile}},
		func(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
			calls.Copy.Add(1)
			data, err := os.ReadFile(in["in_file"].(string))
			if err != nil {
				return nil, err
			}
			out := filepath.Join(rt.WorkDir, "copy"+in["suffix"].(string)+".txt")
			if err := os.WriteFile(out, append(data, in["suffix"].(string)...), 0o644); err != nil {
				return nil, err
			}
			return iface.Outputs{"out_file": out}, nil
		}))
	r.Register(iface.NewFunc("count",
		iface.Spec{{Name: "items", Kind: iface.KindAny, Mandatory: true}},
		iface.Spec{{Name: "n", Kind: iface.KindInt}},
		func(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
			calls.Count.Add(1)
			items, _ := in["items"].([]any)
			return iface.Outputs{"n": len(items)}, nil
		}))
	r.Register(iface.NewFunc("fail",
		iface.Spec{{Name: "in_file", Kind: iface.KindFile, Mandatory: true}},
		iface.Spec{{Name: "out", Kind: iface.KindString}},
		func(ctx context.Context, rt *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
			return nil, errors.New("tool crashed")
		}))
	return r
}

// ToyDefinition declares a per-session copy of "scan", a per-subject count of
// the copies ("n_visits") and a per-session spec whose pipeline always fails
// ("broken").
func ToyDefinition(t *testing.T) *analysis.Definition {
	t.Helper()
	text, _ := format.Default().Lookup("text")
	def := analysis.NewDefinition("toy", "A toy analysis")
	def.AddData(
		analysis.DataSpec{Name: "scan", Kind: analysis.InputFileset, Format: text, Frequency: dataset.PerSession},
		analysis.DataSpec{Name: "copied", Kind: analysis.DerivedFileset, Format: text, Frequency: dataset.PerSession, Pipeline: "copy_pipeline"},
		analysis.DataSpec{Name: "n_visits", Kind: analysis.DerivedField, Type: analysis.FieldInt, Frequency: dataset.PerSubject, Pipeline: "count_pipeline", Output: true},
		analysis.DataSpec{Name: "broken", Kind: analysis.DerivedField, Type: analysis.FieldString, Frequency: dataset.PerSession, Pipeline: "broken_pipeline"},
	)
	def.AddParam(analysis.ParamSpec{Name: "suffix", Default: "_copy"})
	require.NoError(t, def.AddPipeline("copy_pipeline", "copies scans", func(a *analysis.Analysis, nm analysis.NameMaps) (*analysis.Pipeline, error) {
		p := a.NewPipeline("copy_pipeline", "copies scans", nm)
		suffix, err := a.Parameter("suffix")
		if err != nil {
			return nil, err
		}
		_, err = p.Add("copy", "copy", analysis.NodeOptions{
			Parameters: iface.Inputs{"suffix": suffix},
			Inputs:     map[string]analysis.Source{"in_file": analysis.Data("scan")},
			Outputs:    map[string]string{"copied": "out_file"},
		})
		return p, err
	}))
	require.NoError(t, def.AddPipeline("count_pipeline", "counts visits", func(a *analysis.Analysis, nm analysis.NameMaps) (*analysis.Pipeline, error) {
		p := a.NewPipeline("count_pipeline", "counts visits", nm)
		_, err := p.Add("count", "count", analysis.NodeOptions{
			Inputs:     map[string]analysis.Source{"items": analysis.Data("copied")},
			Outputs:    map[string]string{"n_visits": "n"},
			JoinSource: dataset.AxisVisit,
			JoinFields: []string{"items"},
		})
		return p, err
	}))
	require.NoError(t, def.AddPipeline("broken_pipeline", "always fails", func(a *analysis.Analysis, nm analysis.NameMaps) (*analysis.Pipeline, error) {
		p := a.NewPipeline("broken_pipeline", "always fails", nm)
		_, err := p.Add("fail", "fail", analysis.NodeOptions{
			Inputs:  map[string]analysis.Source{"in_file": analysis.Data("copied")},
			Outputs: map[string]string{"broken": "out"},
		})
		return p, err
	}))
	return def
}

// ToyRepo writes a depth-2 dataset with sessions s1/v1, s1/v2 and s2/v1,
// each holding scan.txt.
func ToyRepo(t *testing.T) *dataset.LocalRepo {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, map[string]string{
		"s1/v1/scan.txt": "a",
		"s1/v2/scan.txt": "b",
		"s2/v1/scan.txt": "c",
	})
	repo, err := dataset.NewLocalRepo(root, 2, format.Default())
	require.NoError(t, err)
	return repo
}

// NewToyAnalysis instantiates ToyDefinition. Unset options fall back to
// ToyRepo and ToyRegistry.
func NewToyAnalysis(t *testing.T, opts analysis.Options) *analysis.Analysis {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "toy"
	}
	if opts.Repository == nil {
		opts.Repository = ToyRepo(t)
	}
	if opts.Registry == nil {
		opts.Registry = ToyRegistry(nil)
	}
	a, err := analysis.New(ToyDefinition(t), opts)
	require.NoError(t, err)
	return a
}

// WriteFiles creates files (slash-separated relative paths) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
