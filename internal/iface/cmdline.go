package iface

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/neurogrid/internal/ctxlog"
)

// CommandFile is the file a command-line run records its command in.
const CommandFile = "command.txt"

// Result is the captured outcome of a command-line run.
type Result struct {
	Command string
	Stdout  string
	Stderr  string
}

// CommandLine is an Interface that runs an external program. Inputs are
// mapped onto arguments through the Argstr and Position of their traits.
type CommandLine struct {
	name string
	cmd  string
	in   Spec
	out  Spec

	// Env is added to the process environment.
	Env map[string]string
	// Prepare may rewrite validated inputs before the command is built.
	Prepare func(in Inputs) (Inputs, error)
	// GenFilename names an unset GenFile trait. Relative names are placed in
	// the work dir.
	GenFilename func(trait string, in Inputs) string
	// ListOutputs builds outputs once the command succeeded. When nil, every
	// output named like an input takes that input's value.
	ListOutputs func(in Inputs, res Result) (Outputs, error)
}

// NewCommandLine creates a command-line interface running cmd.
func NewCommandLine(name, cmd string, in, out Spec) *CommandLine {
	return &CommandLine{name: name, cmd: cmd, in: in, out: out}
}

func (c *CommandLine) Name() string     { return c.name }
func (c *CommandLine) InputSpec() Spec  { return c.in }
func (c *CommandLine) OutputSpec() Spec { return c.out }

// Resolve applies Prepare and fills generated file names, returning the
// inputs the command line is built from.
func (c *CommandLine) Resolve(rt *Runtime, in Inputs) (Inputs, error) {
	resolved := make(Inputs, len(in))
	for k, v := range in {
		resolved[k] = v
	}
	if c.Prepare != nil {
		var err error
		if resolved, err = c.Prepare(resolved); err != nil {
			return nil, err
		}
	}
	for _, t := range c.in {
		if !t.GenFile {
			continue
		}
		name, _ := resolved[t.Name].(string)
		if name == "" && c.GenFilename != nil {
			name = c.GenFilename(t.Name, resolved)
		}
		if name == "" {
			continue
		}
		if !filepath.IsAbs(name) && rt != nil && rt.WorkDir != "" {
			name = filepath.Join(rt.WorkDir, name)
		}
		resolved[t.Name] = name
	}
	return resolved, nil
}

// CommandString renders the full shell command for resolved inputs.
// Positioned arguments come first in ascending order, followed by the
// unpositioned ones sorted by name.
func (c *CommandLine) CommandString(in Inputs) (string, error) {
	traits := make([]Trait, 0, len(c.in))
	for _, t := range c.in {
		if t.Argstr != "" {
			traits = append(traits, t)
		}
	}
	sort.SliceStable(traits, func(i, j int) bool {
		pi, pj := traits[i].Position, traits[j].Position
		switch {
		case pi > 0 && pj > 0:
			return pi < pj
		case pi > 0 || pj > 0:
			return pi > 0
		}
		return traits[i].Name < traits[j].Name
	})

	args := []string{c.cmd}
	for _, t := range traits {
		v, ok := in[t.Name]
		if !ok || v == nil {
			continue
		}
		if t.Kind == KindBool {
			if b, _ := v.(bool); b {
				args = append(args, t.Argstr)
			}
			continue
		}
		formatted, err := formatArg(t, v)
		if err != nil {
			return "", fmt.Errorf("input %q: %w", t.Name, err)
		}
		args = append(args, fmt.Sprintf(t.Argstr, formatted))
	}
	return strings.Join(args, " "), nil
}

// Run implements Interface.
func (c *CommandLine) Run(ctx context.Context, rt *Runtime, in Inputs) (Outputs, error) {
	logger := ctxlog.FromContext(ctx)

	resolved, err := c.Resolve(rt, in)
	if err != nil {
		return nil, err
	}
	line, err := c.CommandString(resolved)
	if err != nil {
		return nil, err
	}

	workDir := ""
	if rt != nil {
		workDir = rt.WorkDir
	}
	if workDir != "" {
		if err := os.WriteFile(filepath.Join(workDir, CommandFile), []byte(line+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to record command: %w", err)
		}
	}

	logger.Debug("Running command.", "interface", c.name, "command", line, "workDir", workDir)
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	envKeys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		cmd.Env = append(cmd.Env, k+"="+c.Env[k])
	}
	if rt != nil {
		cmd.Env = append(cmd.Env, rt.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("command %q failed: %w: %s", line, err, strings.TrimSpace(stderr.String()))
	}

	res := Result{Command: line, Stdout: stdout.String(), Stderr: stderr.String()}
	if c.ListOutputs != nil {
		return c.ListOutputs(resolved, res)
	}
	return c.defaultOutputs(resolved)
}

func (c *CommandLine) defaultOutputs(in Inputs) (Outputs, error) {
	out := make(Outputs)
	for _, t := range c.out {
		v, ok := in[t.Name]
		if !ok {
			continue
		}
		if t.Kind == KindFile {
			path, _ := v.(string)
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("expected output file %q was not created: %w", path, err)
			}
		}
		out[t.Name] = v
	}
	return out, nil
}

// SplitExt splits the file name of path into its base and extension,
// treating compressed extensions such as ".nii.gz" as one.
func SplitExt(path string) (base, ext string) {
	name := filepath.Base(path)
	ext = filepath.Ext(name)
	if ext == ".gz" || ext == ".bz2" {
		inner := filepath.Ext(strings.TrimSuffix(name, ext))
		ext = inner + ext
	}
	return strings.TrimSuffix(name, ext), ext
}

func formatArg(t Trait, v any) (string, error) {
	switch val := v.(type) {
	case string:
		if t.Verbatim || (t.Kind != KindFile && quotesPlaceholder(t.Argstr)) {
			return val, nil
		}
		return shellQuote(val), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case []string:
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = shellQuote(s)
		}
		return strings.Join(parts, " "), nil
	case []float64:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("cannot format %T as an argument", v)
}

// quotesPlaceholder reports whether argstr wraps its %s in quotes, as in
// `'%s'` or `-r "%s"`.
func quotesPlaceholder(argstr string) bool {
	return strings.Contains(argstr, "'%s'") || strings.Contains(argstr, `"%s"`)
}

// shellQuote single-quotes s unless it only holds characters that are safe
// unquoted in sh.
func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-./:=+,@%") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
