// Package processor derives the requested specs of an analysis: it builds
// the execution plan, runs every node instance through its interface and
// stores the bound outputs back in the repository.
//
// Three modes share the same plan and executor. Single runs one node at a
// time, multi runs up to Workers nodes concurrently, and submit hands every
// node to an external command (typically a batch scheduler) that executes
// it in a separate process through ExecTask.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/builder"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/executor"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/provstore"
	"github.com/vk/neurogrid/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Mode selects how node instances are executed.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
	ModeSubmit Mode = "submit"
)

// DefaultSubmitCommand runs a node as a blocking SLURM job.
const DefaultSubmitCommand = `sbatch --wait --wrap "{exe} exec-node {task}"`

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSingle, ModeMulti, ModeSubmit:
		return m, nil
	case "":
		return ModeSingle, nil
	}
	return "", fmt.Errorf("unknown processing mode %q (want single, multi or submit)", s)
}

// Options configure a Processor.
type Options struct {
	Mode Mode
	// Workers bounds concurrent nodes in multi and submit mode.
	Workers int
	// WorkDir is the root of the per-node working directories.
	WorkDir string
	// Reprocess derives values again even when stored or cached.
	Reprocess       bool
	ContinueOnError bool
	// CheckRequirements verifies node requirements before running them,
	// using Versions as the installed software versions.
	CheckRequirements bool
	Versions          map[string]string
	// SubmitCommand is the command template of submit mode. {exe} expands
	// to Executable and {task} to the task file, both shell-quoted.
	SubmitCommand string
	Executable    string
	// IOWorkers bounds concurrent checksums and localizations per node.
	IOWorkers int

	Provenance provstore.Store
	Metrics    *telemetry.Metrics
	Tracer     trace.Tracer
}

// Processor executes derivation plans. It implements analysis.Deriver.
type Processor struct {
	opts Options
}

var _ analysis.Deriver = (*Processor)(nil)

// New validates opts and fills in defaults.
func New(opts Options) (*Processor, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Mode == ModeSingle {
		opts.Workers = 1
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "neurogrid-work")
	}
	if opts.IOWorkers < 1 {
		opts.IOWorkers = 4
	}
	if opts.Mode == ModeSubmit {
		if opts.SubmitCommand == "" {
			opts.SubmitCommand = DefaultSubmitCommand
		}
		if opts.Executable == "" {
			exe, err := os.Executable()
			if err != nil {
				return nil, fmt.Errorf("cannot locate executable for submit mode: %w", err)
			}
			opts.Executable = exe
		}
	}
	if opts.Provenance == nil {
		opts.Provenance = provstore.NewMemory()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewMetrics(nil)
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer(nil)
	}
	return &Processor{opts: opts}, nil
}

// Options returns the effective options.
func (p *Processor) Options() Options { return p.opts }

// Plan builds the execution plan deriving names without running it.
func (p *Processor) Plan(ctx context.Context, a *analysis.Analysis, names ...string) (*builder.Plan, error) {
	if len(names) == 0 {
		return nil, errors.New("no specs requested")
	}
	return builder.Build(ctx, a, names, builder.Options{Reprocess: p.opts.Reprocess})
}

// Derive builds and runs the plan for names.
func (p *Processor) Derive(ctx context.Context, a *analysis.Analysis, names ...string) error {
	plan, err := p.Plan(ctx, a, names...)
	if err != nil {
		return err
	}
	return p.Run(ctx, plan)
}

// Run executes a plan built by Plan.
func (p *Processor) Run(ctx context.Context, plan *builder.Plan) error {
	r := &run{proc: p, plan: plan, id: uuid.NewString()}
	ctx = ctxlog.With(ctx, "run_id", r.id)
	logger := ctxlog.FromContext(ctx)

	nodes := plan.Nodes(ctx)
	if len(nodes) == 0 {
		logger.Info("✔️ Nothing to derive, every requested value is stored.", "analysis", plan.Analysis.Name())
		return nil
	}
	logger.Info("🚀 Starting derivation",
		"analysis", plan.Analysis.Name(), "nodes", len(nodes), "mode", p.opts.Mode, "workers", p.opts.Workers)

	exec := executor.New(plan.Graph, r, executor.Options{
		Workers:         p.opts.Workers,
		ContinueOnError: p.opts.ContinueOnError,
	})
	err := exec.Run(ctx)

	completed := 0
	for _, n := range nodes {
		if n.GetState() == node.StatusCompleted {
			completed++
		}
	}
	logger.Info("🏁 Derivation finished", "completed", completed, "total", len(nodes), "failed", err != nil)
	return err
}
