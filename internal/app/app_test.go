package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/testutil"
)

func setupAppTest(t *testing.T, mutate func(*Config)) (*App, *testutil.SafeBuffer) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.WorkDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	valid, err := NewConfig(cfg)
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	testutil.DumpLogsOnCleanup(t, logs)
	a, err := NewApp(logs, valid)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a, logs
}

func TestNewApp_LoadsBundledAnalyses(t *testing.T) {
	a, _ := setupAppTest(t, nil)

	list := a.List()

	for _, name := range []string{"toy", "basic_brain", "extended_brain", "brain_stats"} {
		assert.Contains(t, list, name)
	}
	_, ok := a.Registry().Lookup("matlab_brain_volume")
	assert.True(t, ok)
	_, ok = a.Registry().Lookup("voxel_count")
	assert.True(t, ok)
}

func TestMenu(t *testing.T) {
	a, _ := setupAppTest(t, nil)

	menu, err := a.Menu("toy", false)
	require.NoError(t, err)
	_, unknownErr := a.Menu("nope", false)

	assert.Contains(t, menu, "body_metrics")
	assert.Contains(t, menu, "metric_of_interest")
	require.Error(t, unknownErr)
	assert.Contains(t, unknownErr.Error(), `unknown analysis "nope"`)
}

func writeBodyMetrics(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"s1/v1/body_metrics.txt": "height 170\nweight 70\n",
		"s1/v2/body_metrics.txt": "height 172\nweight 71\n",
		"s2/v1/body_metrics.txt": "height 180\nweight 80\n",
		"s2/v2/body_metrics.txt": "height 178\nweight 82\n",
	})
	return root
}

func TestDerive_ToyAnalysisEndToEnd(t *testing.T) {
	// --- Arrange ---
	root := writeBodyMetrics(t)
	a, logs := setupAppTest(t, func(c *Config) {
		c.Dataset = root
		c.Mode = "multi"
		c.Workers = 3
		c.ProvenanceDB = filepath.Join(t.TempDir(), "prov")
	})

	// --- Act ---
	err := a.Derive(context.Background(), Request{Analysis: "toy", Specs: []string{"average", "std_dev"}})

	// --- Assert ---
	require.NoError(t, err)
	out := logs.String()
	assert.Contains(t, out, "175")
	assert.Contains(t, out, "Derivation finished")
	assert.Contains(t, out, "4.123")

	recs, err := a.prov.List(context.Background(), "toy")
	require.NoError(t, err)
	assert.Len(t, recs, 4*2+2+1+1+1, "grep and awk per session, merge per subject, then merge, concat and extract once")
}

func TestDerive_ParameterAndInputSelection(t *testing.T) {
	// --- Arrange ---
	root := writeBodyMetrics(t)
	require.NoError(t, os.Rename(filepath.Join(root, "s2", "v2", "body_metrics.txt"), filepath.Join(root, "s2", "v2", "metrics_b.txt")))
	a, logs := setupAppTest(t, func(c *Config) { c.Dataset = root })

	// --- Act ---
	err := a.Derive(context.Background(), Request{
		Analysis:   "toy",
		Name:       "toy_weight",
		Specs:      []string{"average"},
		Parameters: map[string]string{"metric_of_interest": "weight"},
		Inputs:     []InputSelector{{Spec: "body_metrics", Pattern: "(body_)?metrics(_b)?", Regex: true}},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "75.75")
}

func TestPlan_RendersLevels(t *testing.T) {
	a, logs := setupAppTest(t, func(c *Config) { c.Dataset = writeBodyMetrics(t) })

	out, err := a.Plan(context.Background(), Request{Analysis: "toy", Specs: []string{"average"}})

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "Plan built."))
	assert.Contains(t, out, "extract_metrics_pipeline.grep[s1:v1]")
	assert.Contains(t, out, "statistics_pipeline.extract_metrics[*:*]")
	assert.Less(t, strings.Index(out, "grep[s1:v1]"), strings.Index(out, "extract_metrics[*:*]"))
}

func TestDerive_RequiresDataset(t *testing.T) {
	a, _ := setupAppTest(t, nil)

	err := a.Derive(context.Background(), Request{Analysis: "toy", Specs: []string{"average"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset given")
}

func TestHealthMux(t *testing.T) {
	// --- Arrange ---
	a, _ := setupAppTest(t, nil)
	a.metrics.NodesTotal.WithLabelValues("grep", "completed").Inc()
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	// --- Act ---
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, health.StatusCode)
	assert.Contains(t, string(body), `neurogrid_node_executions_total{interface="grep",status="completed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestStartHealthCheckServer_DisabledByDefault(t *testing.T) {
	a, _ := setupAppTest(t, nil)

	addr, err := a.startHealthCheckServer(context.Background())

	require.NoError(t, err)
	assert.Empty(t, addr)
	assert.NoError(t, a.closeHealthCheckServer(context.Background()))
}

func TestExecNode_UnknownInterface(t *testing.T) {
	// --- Arrange ---
	a, _ := setupAppTest(t, nil)
	dir := t.TempDir()
	task := filepath.Join(dir, "task.json")
	require.NoError(t, os.WriteFile(task, []byte(`{"node_id":"p.n[*:*]","interface":"nope","inputs":{},"work_dir":"`+dir+`"}`), 0o644))

	// --- Act ---
	err := a.ExecNode(context.Background(), task)

	// --- Assert ---
	require.EqualError(t, err, `interface "nope" is not registered`)
	assert.FileExists(t, filepath.Join(dir, "result.json"))
}
