package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/neurogrid/analyses"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
	"github.com/vk/neurogrid/internal/hcl_adapter"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/processor"
	"github.com/vk/neurogrid/internal/provstore"
	"github.com/vk/neurogrid/internal/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	formats  *format.Registry
	catalog  *hcl_adapter.Catalog
	registry *iface.Registry

	promReg        *prometheus.Registry
	metrics        *telemetry.Metrics
	tracerProvider *sdktrace.TracerProvider
	prov           provstore.Store
	httpServer     *http.Server
}

// NewApp builds an App with its own logger, formats and registry. Without
// modules the core modules are registered. Duplicate interface names panic.
func NewApp(outW io.Writer, cfg *Config, modules ...iface.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	formats := format.Default()
	catalog, err := hcl_adapter.NewLoader(formats).LoadAll(ctx, analyses.FS, cfg.Definitions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis definitions: %w", err)
	}
	logger.Debug("Analysis definitions loaded.", "analyses", catalog.Names())

	reg := iface.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules(cfg)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All interface modules registered.", "count", len(modules), "interfaces", reg.Names())

	tp, err := telemetry.NewTracerProvider(cfg.TraceExporter, outW)
	if err != nil {
		return nil, err
	}
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &App{
		outW:           outW,
		logger:         logger,
		config:         cfg,
		formats:        formats,
		catalog:        catalog,
		registry:       reg,
		promReg:        promReg,
		metrics:        telemetry.NewMetrics(promReg),
		tracerProvider: tp,
	}, nil
}

// Registry returns the application's interface registry.
func (a *App) Registry() *iface.Registry { return a.registry }

// Catalog returns the loaded analysis definitions.
func (a *App) Catalog() *hcl_adapter.Catalog { return a.catalog }

// Close stops the health check server, flushes spans and closes the
// provenance store.
func (a *App) Close(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	errs := []error{a.closeHealthCheckServer(ctx), a.tracerProvider.Shutdown(ctx)}
	if a.prov != nil {
		errs = append(errs, a.prov.Close())
	}
	return errors.Join(errs...)
}

// repository opens the configured dataset.
func (a *App) repository(ctx context.Context) (dataset.Repository, error) {
	loc := a.config.Dataset
	if loc == "" {
		return nil, errors.New("no dataset given: set --dataset or dataset in the config file")
	}
	if dataset.IsGCSURL(loc) {
		cache := a.config.CacheDir
		if cache == "" {
			cache = filepath.Join(a.config.WorkDir, ".dataset-cache")
		}
		return dataset.OpenGCS(ctx, loc, a.config.Depth, a.formats, cache)
	}
	return dataset.NewLocalRepo(loc, a.config.Depth, a.formats)
}

// provenance opens the provenance store on first use.
func (a *App) provenance() (provstore.Store, error) {
	if a.prov != nil {
		return a.prov, nil
	}
	if a.config.ProvenanceDB == "" {
		a.prov = provstore.NewMemory()
		return a.prov, nil
	}
	s, err := provstore.OpenBadger(provstore.BadgerOptions{Path: a.config.ProvenanceDB, Logger: a.logger})
	if err != nil {
		return nil, err
	}
	a.prov = s
	return s, nil
}

func (a *App) processor() (*processor.Processor, error) {
	mode, err := processor.ParseMode(a.config.Mode)
	if err != nil {
		return nil, err
	}
	prov, err := a.provenance()
	if err != nil {
		return nil, err
	}
	workDir, err := filepath.Abs(a.config.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("invalid work dir: %w", err)
	}
	return processor.New(processor.Options{
		Mode:              mode,
		Workers:           a.config.Workers,
		WorkDir:           workDir,
		Reprocess:         a.config.Reprocess,
		ContinueOnError:   a.config.ContinueOnError,
		CheckRequirements: a.config.CheckRequirements,
		Versions:          a.config.Versions,
		SubmitCommand:     a.config.SubmitCommand,
		Provenance:        prov,
		Metrics:           a.metrics,
		Tracer:            telemetry.Tracer(a.tracerProvider),
	})
}
