package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/testutil"
)

const helperEnv = "NEUROGRID_HELPER_EXEC_TASK"

// TestHelperExecTask is not a real test: submit tests run the test binary
// itself as the worker process.
func TestHelperExecTask(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		t.Skip("helper process for submit mode")
	}
	if err := ExecTask(context.Background(), testutil.ToyRegistry(nil), os.Args[len(os.Args)-1]); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestDerive_SubmitModeRunsNodesInWorkerProcess(t *testing.T) {
	// --- Arrange ---
	t.Setenv(helperEnv, "1")
	f := newFixture(t, Options{
		Mode:          ModeSubmit,
		Workers:       2,
		Executable:    os.Args[0],
		SubmitCommand: "{exe} -test.run=TestHelperExecTask -- {task}",
	})

	// --- Act ---
	err := f.proc.Derive(context.Background(), f.a, "n_visits")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"s1:*": 2, "s2:*": 1}, fieldValues(t, f.a, "n_visits"))
	assert.EqualValues(t, 0, f.calls.Copy.Load(), "interfaces run in the worker process")

	workDir := filepath.Join(f.proc.Options().WorkDir, "toy", "copy_pipeline", "copy", dataset.SessionKey("s2", "v1").PathComponent())
	assert.FileExists(t, filepath.Join(workDir, TaskFile))
	assert.FileExists(t, filepath.Join(workDir, ResultFile))
}

func TestDerive_SubmitCommandFailure(t *testing.T) {
	f := newFixture(t, Options{Mode: ModeSubmit, Executable: "/bin/true", SubmitCommand: "exit 3"})

	err := f.proc.Derive(context.Background(), f.a, "copied")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit command failed")
}

func TestExecTask_WritesErrorResult(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	taskPath := filepath.Join(dir, TaskFile)
	require.NoError(t, writeJSON(taskPath, Task{NodeID: "p.n[*:*]", Interface: "missing", WorkDir: dir}))

	// --- Act ---
	err := ExecTask(context.Background(), iface.NewRegistry(), taskPath)

	// --- Assert ---
	require.EqualError(t, err, `interface "missing" is not registered`)
	data, rerr := os.ReadFile(filepath.Join(dir, ResultFile))
	require.NoError(t, rerr)
	assert.Contains(t, string(data), `"error": "interface \"missing\" is not registered"`)
}
