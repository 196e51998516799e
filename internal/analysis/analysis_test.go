package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/dataset"
)

func TestNew_Parameters(t *testing.T) {
	testCases := []struct {
		name      string
		params    map[string]any
		expected  map[string]any
		expectErr string
	}{
		{name: "defaults", expected: map[string]any{"suffix": "_copy", "mode": "fast"}},
		{name: "override", params: map[string]any{"mode": "slow"}, expected: map[string]any{"suffix": "_copy", "mode": "slow"}},
		{name: "unknown parameter", params: map[string]any{"speed": 1}, expectErr: `has no parameter "speed"`},
		{name: "outside choices", params: map[string]any{"mode": "medium"}, expectErr: "is not one of"},
		{name: "wrong type", params: map[string]any{"suffix": 1}, expectErr: "expects a string"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := New(testDefinition(t), Options{Repository: testRepo(t), Registry: testRegistry(), Parameters: tc.params})

			if tc.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, a.Parameters())
		})
	}
}

func TestNew_Inputs(t *testing.T) {
	scanFilter, err := dataset.NewFilter("scan", "sc.*", true)
	require.NoError(t, err)
	copiedFilter, err := dataset.NewFilter("copied", "x", false)
	require.NoError(t, err)

	_, err = New(testDefinition(t), Options{Repository: testRepo(t), Registry: testRegistry(), Inputs: map[string]dataset.Filter{"copied": copiedFilter}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is derived")

	_, err = New(testDefinition(t), Options{Repository: testRepo(t), Registry: testRegistry(), Inputs: map[string]dataset.Filter{"nope": copiedFilter}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `has no input "nope"`)

	a := newTestAnalysis(t, Options{Inputs: map[string]dataset.Filter{"scan": scanFilter}})
	f, ok := a.Filter("scan")
	require.True(t, ok)
	assert.True(t, f.IsRegex)
	f, ok = a.Filter("age")
	require.True(t, ok)
	assert.Equal(t, "age", f.Pattern)
}

func TestAnalysis_ResolveInputs(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalysis(t, Options{})

	item, err := a.Resolve(ctx, "scan", dataset.SessionKey("s1", "v2"))
	require.NoError(t, err)
	assert.True(t, item.Exists)
	assert.Contains(t, item.Path(), "s1/v2/scan.txt")

	item, err = a.Resolve(ctx, "age", dataset.SessionKey("s1", "v1"))
	require.NoError(t, err)
	assert.Equal(t, dataset.Key{Subject: "s1"}, item.Key, "key is projected onto the spec frequency")
	assert.Equal(t, 30, item.Value)

	item, err = a.Resolve(ctx, "age", dataset.Key{Subject: "s2"})
	require.NoError(t, err, "optional inputs may be missing")
	assert.False(t, item.Exists)

	item, err = a.Resolve(ctx, "copied", dataset.SessionKey("s1", "v1"))
	require.NoError(t, err)
	assert.False(t, item.Exists)
}

func TestAnalysis_ResolveAmbiguousInput(t *testing.T) {
	f, err := dataset.NewFilter("scan", "scan.*", true)
	require.NoError(t, err)
	a := newTestAnalysis(t, Options{Inputs: map[string]dataset.Filter{"scan": f}})

	_, err = a.Resolve(context.Background(), "scan", dataset.SessionKey("s2", "v1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

type stubDeriver struct {
	calls [][]string
	fn    func(a *Analysis) error
}

func (d *stubDeriver) Derive(ctx context.Context, a *Analysis, names ...string) error {
	d.calls = append(d.calls, names)
	if d.fn != nil {
		return d.fn(a)
	}
	return nil
}

func TestAnalysis_DataDerives(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	deriver := &stubDeriver{fn: func(a *Analysis) error {
		for _, s := range []string{"s1", "s2"} {
			if err := a.Repository().PutField(ctx, a.Name(), "n_visits", dataset.Key{Subject: s}, len(s)); err != nil {
				return err
			}
		}
		return nil
	}}
	a := newTestAnalysis(t, Options{Deriver: deriver, SubjectIDs: []string{"s1"}})

	// --- Act ---
	c, err := a.Data(ctx, "n_visits", true)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"n_visits"}}, deriver.calls)
	require.Equal(t, 1, c.Len(), "restricted to subject s1")
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	item, ok := c.Item(dataset.SessionKey("s1", "v1"))
	require.True(t, ok)
	assert.Equal(t, "2", item.String())
}

func TestAnalysis_DataWithoutDeriver(t *testing.T) {
	a := newTestAnalysis(t, Options{})

	_, err := a.Data(context.Background(), "n_visits", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no deriver")

	c, err := a.Data(context.Background(), "scan", false)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	_, err = c.Value()
	assert.Error(t, err)
}

func TestMenu(t *testing.T) {
	def := testDefinition(t)

	short := Menu(def, false)
	full := Menu(def, true)

	assert.Contains(t, short, "scan")
	assert.Contains(t, short, "n_visits")
	assert.NotContains(t, short, "copied", "intermediate specs are only shown in the full menu")
	assert.Contains(t, full, "copied")
	assert.Contains(t, full, "per_subject")
	assert.Contains(t, full, "count_pipeline")
	assert.Contains(t, full, "[fast slow]")
}
