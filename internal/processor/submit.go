package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
)

// File names used in a node's work dir in submit mode.
const (
	TaskFile   = "task.json"
	ResultFile = "result.json"
)

// Task is a node instance serialised for execution in another process.
type Task struct {
	NodeID    string       `json:"node_id"`
	Interface string       `json:"interface"`
	Inputs    iface.Inputs `json:"inputs"`
	WorkDir   string       `json:"work_dir"`
}

// Result is written next to the task once it has run.
type Result struct {
	NodeID  string        `json:"node_id"`
	Outputs iface.Outputs `json:"outputs,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// submit writes the task file, runs the submit command and reads back the
// result the worker process wrote.
func (p *Processor) submit(ctx context.Context, n *node.Node, in iface.Inputs, workDir string) (iface.Outputs, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	taskPath := filepath.Join(workDir, TaskFile)
	resultPath := filepath.Join(workDir, ResultFile)
	if err := os.Remove(resultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to clear previous result: %w", err)
	}
	task := Task{NodeID: n.ID(), Interface: n.Spec.Interface.Name(), Inputs: in, WorkDir: workDir}
	if err := writeJSON(taskPath, task); err != nil {
		return nil, err
	}

	cmdline := expandSubmit(p.opts.SubmitCommand, p.opts.Executable, taskPath)
	ctxlog.FromContext(ctx).Debug("Submitting node.", "nodeID", n.ID(), "command", cmdline)
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Dir = workDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	runErr := cmd.Run()

	var res Result
	data, err := os.ReadFile(resultPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("submit command failed: %w\n%s", runErr, output.String())
		}
		return nil, fmt.Errorf("submitted node wrote no result: %w", err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", resultPath, err)
	}
	if res.Error != "" {
		return nil, errors.New(res.Error)
	}
	if runErr != nil {
		return nil, fmt.Errorf("submit command failed: %w\n%s", runErr, output.String())
	}
	return n.Spec.Interface.OutputSpec().Coerce(res.Outputs)
}

// ExecTask runs a task file written in submit mode and writes its result
// file. It is the worker side of submit mode.
func ExecTask(ctx context.Context, reg *iface.Registry, taskPath string) error {
	data, err := os.ReadFile(taskPath)
	if err != nil {
		return fmt.Errorf("failed to read task: %w", err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("failed to decode task %s: %w", taskPath, err)
	}
	logger := ctxlog.FromContext(ctx).With("nodeID", task.NodeID)
	res := Result{NodeID: task.NodeID}
	resultPath := filepath.Join(filepath.Dir(taskPath), ResultFile)

	i, ok := reg.Lookup(task.Interface)
	if !ok {
		err = fmt.Errorf("interface %q is not registered", task.Interface)
	} else {
		logger.Info("▶️ Executing task", "interface", task.Interface)
		res.Outputs, err = iface.Execute(ctx, i, &iface.Runtime{WorkDir: task.WorkDir}, task.Inputs)
	}
	if err != nil {
		res.Error = err.Error()
	}
	if werr := writeJSON(resultPath, res); werr != nil {
		return errors.Join(err, werr)
	}
	if err == nil {
		logger.Info("✅ Task finished")
	}
	return err
}

func expandSubmit(tmpl, exe, task string) string {
	return strings.NewReplacer("{exe}", shellQuote(exe), "{task}", shellQuote(task)).Replace(tmpl)
}

func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./:=+@") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
