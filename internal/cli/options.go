package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/neurogrid/internal/app"
)

// options collects flag values. Flag-bound config values only replace the
// config file's when the flag was set explicitly.
type options struct {
	configPath string
	flags      app.Config

	name        string
	inputs      []string
	regexInputs []string
	params      map[string]string
	subjects    []string
	visits      []string
	full        bool
}

func newOptions() *options {
	return &options{flags: app.DefaultConfig()}
}

// overlays copy a flag-bound value from src into dst, keyed by flag name.
var overlays = map[string]func(dst, src *app.Config){
	"log-level":          func(d, s *app.Config) { d.LogLevel = s.LogLevel },
	"log-format":         func(d, s *app.Config) { d.LogFormat = s.LogFormat },
	"healthcheck-port":   func(d, s *app.Config) { d.HealthcheckPort = s.HealthcheckPort },
	"definitions":        func(d, s *app.Config) { d.Definitions = s.Definitions },
	"matlab-command":     func(d, s *app.Config) { d.MatlabCommand = s.MatlabCommand },
	"dataset":            func(d, s *app.Config) { d.Dataset = s.Dataset },
	"depth":              func(d, s *app.Config) { d.Depth = s.Depth },
	"cache-dir":          func(d, s *app.Config) { d.CacheDir = s.CacheDir },
	"mode":               func(d, s *app.Config) { d.Mode = s.Mode },
	"workers":            func(d, s *app.Config) { d.Workers = s.Workers },
	"work-dir":           func(d, s *app.Config) { d.WorkDir = s.WorkDir },
	"submit-command":     func(d, s *app.Config) { d.SubmitCommand = s.SubmitCommand },
	"reprocess":          func(d, s *app.Config) { d.Reprocess = s.Reprocess },
	"continue-on-error":  func(d, s *app.Config) { d.ContinueOnError = s.ContinueOnError },
	"check-requirements": func(d, s *app.Config) { d.CheckRequirements = s.CheckRequirements },
	"version-of":         func(d, s *app.Config) { d.Versions = s.Versions },
	"provenance-db":      func(d, s *app.Config) { d.ProvenanceDB = s.ProvenanceDB },
	"trace":              func(d, s *app.Config) { d.TraceExporter = s.TraceExporter },
}

func (o *options) bindGlobal(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "YAML config file; explicitly set flags override it")
	f.StringVar(&o.flags.LogLevel, "log-level", o.flags.LogLevel, "Logging level: debug, info, warn or error")
	f.StringVar(&o.flags.LogFormat, "log-format", o.flags.LogFormat, "Log output format: text or json")
	f.StringSliceVar(&o.flags.Definitions, "definitions", nil, "Extra .hcl analysis files or directories")
	f.StringVar(&o.flags.MatlabCommand, "matlab-command", o.flags.MatlabCommand, "MATLAB executable")
}

func (o *options) bindDataset(f *pflag.FlagSet) {
	f.StringVarP(&o.flags.Dataset, "dataset", "d", "", "Dataset directory or gs://bucket/prefix")
	f.IntVar(&o.flags.Depth, "depth", o.flags.Depth, "Directory levels of the dataset: 0, 1 (subjects) or 2 (subjects/visits)")
	f.StringVar(&o.flags.CacheDir, "cache-dir", "", "Local cache for remote datasets")
	f.StringVar(&o.flags.WorkDir, "work-dir", o.flags.WorkDir, "Root of the per-node working directories")
	f.StringVar(&o.flags.ProvenanceDB, "provenance-db", "", "Badger directory for provenance records (default: in memory)")
	f.StringVar(&o.name, "name", "", "Store derived data under this name instead of the analysis name")
	f.StringArrayVarP(&o.inputs, "input", "i", nil, "Select an input by exact name: <spec>=<name>")
	f.StringArrayVar(&o.regexInputs, "input-regex", nil, "Select an input by regular expression: <spec>=<regex>")
	f.StringToStringVarP(&o.params, "param", "p", nil, "Set a parameter: <name>=<value>")
	f.StringSliceVar(&o.subjects, "subject", nil, "Restrict to these subject IDs")
	f.StringSliceVar(&o.visits, "visit", nil, "Restrict to these visit IDs")
	f.BoolVar(&o.flags.Reprocess, "reprocess", false, "Derive again even when values are stored or cached")
}

func (o *options) bindProcessing(f *pflag.FlagSet) {
	f.StringVarP(&o.flags.Mode, "mode", "m", o.flags.Mode, "Processing mode: single, multi or submit")
	f.IntVarP(&o.flags.Workers, "workers", "w", o.flags.Workers, "Concurrent nodes in multi and submit mode")
	f.StringVar(&o.flags.SubmitCommand, "submit-command", "", `Submit mode command template with {exe} and {task} (default: sbatch --wait --wrap "{exe} exec-node {task}")`)
	f.BoolVar(&o.flags.ContinueOnError, "continue-on-error", false, "Keep running nodes unaffected by a failure")
	f.BoolVar(&o.flags.CheckRequirements, "check-requirements", false, "Check node software requirements before running")
	f.StringToStringVar(&o.flags.Versions, "version-of", nil, "Installed software version for requirement checks: <name>=<version>")
	f.StringVar(&o.flags.TraceExporter, "trace", o.flags.TraceExporter, "Span exporter: none or stdout")
	f.IntVar(&o.flags.HealthcheckPort, "healthcheck-port", 0, "Port serving /health and /metrics while deriving; 0 disables it")
}

// config merges defaults, the config file and explicitly set flags.
func (o *options) config(cmd *cobra.Command) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = app.LoadConfigFile(o.configPath, cfg); err != nil {
			return nil, usageError(err)
		}
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if apply, ok := overlays[f.Name]; ok {
			apply(&cfg, &o.flags)
		}
	})
	valid, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return valid, nil
}

func (o *options) request(args []string) (app.Request, error) {
	req := app.Request{
		Analysis:   args[0],
		Name:       o.name,
		Specs:      args[1:],
		Parameters: o.params,
		SubjectIDs: o.subjects,
		VisitIDs:   o.visits,
	}
	for _, group := range []struct {
		flag   string
		values []string
		regex  bool
	}{{"input", o.inputs, false}, {"input-regex", o.regexInputs, true}} {
		for _, v := range group.values {
			spec, pattern, ok := strings.Cut(v, "=")
			if !ok || spec == "" || pattern == "" {
				return req, usageError(fmt.Errorf("invalid --%s %q: expected <spec>=<pattern>", group.flag, v))
			}
			req.Inputs = append(req.Inputs, app.InputSelector{Spec: spec, Pattern: pattern, Regex: group.regex})
		}
	}
	return req, nil
}
