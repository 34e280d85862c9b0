package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/api"
	"github.com/ShayCichocki/maestro/internal/classifier"
	"github.com/ShayCichocki/maestro/internal/config"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/internal/registry"
	"github.com/ShayCichocki/maestro/internal/router"
	"github.com/ShayCichocki/maestro/internal/scheduler"
	"github.com/ShayCichocki/maestro/internal/state"
)

// eventBuffer sizes the scheduler event channel for CLI runs.
const eventBuffer = 256

// app holds the runtime wiring shared by the commands that call agents.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *registry.MemoryRegistry
	backend  agent.Executor
	agents   *registry.Resolver
	events   *scheduler.EventEmitter
	engine   *scheduler.Engine
}

// loadConfig loads --config if given, otherwise the layered config.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	switch {
	case debugFlag:
		return logging.New(os.Stderr), nil
	case cfg.Logging.File != "":
		return logging.NewFile(cfg.Logging.File)
	case cfg.Logging.Debug:
		return logging.New(os.Stderr), nil
	default:
		return logging.Nop(), nil
	}
}

// loadRegistry builds the built-in registry, overlaid with the configured
// definitions directory. With registry.watch set, the directory is
// watched until ctx is done.
func loadRegistry(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*registry.MemoryRegistry, error) {
	reg := registry.NewDefault()
	if cfg.Registry.Dir == "" {
		return reg, nil
	}

	reloader := registry.NewReloader(cfg.Registry.Dir, reg, registry.Defaults(), logger)
	if err := reloader.Reload(); err != nil {
		return nil, fmt.Errorf("load agent definitions: %w", err)
	}
	if cfg.Registry.Watch {
		go func() {
			if err := reloader.Watch(ctx); err != nil {
				logger.Log("registry watch stopped: %v", err)
			}
		}()
	}
	return reg, nil
}

// newApp wires config, provider, registry and scheduler together.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	reg, err := loadRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	backend, err := api.NewExecutor(ctx, cfg.Provider)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("create %s executor: %w", cfg.Provider.Name, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		backend:  backend,
		agents:   registry.NewResolver(reg, backend),
		events:   scheduler.NewEventEmitter(eventBuffer, logger),
	}
	a.engine = scheduler.New(a.agents,
		scheduler.WithLogger(logger),
		scheduler.WithEvents(a.events),
	)
	return a, nil
}

// classifier returns a classifier backed by the registered classifier
// agent, or a keyword-only one if it is not registered.
func (a *app) classifier() *classifier.Classifier {
	opts := []classifier.Option{classifier.WithLogger(a.logger)}
	if exec, err := a.agents.Resolve(registry.AgentClassifier); err == nil {
		opts = append(opts, classifier.WithExecutor(exec))
	}
	return classifier.New(opts...)
}

func (a *app) router(cls *classifier.Classifier) *router.Router {
	return router.New(cls, a.registry, a.engine, router.WithLogger(a.logger))
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	cls := a.classifier()
	return orchestrator.New(
		orchestrator.RequiredConfig{Agents: a.agents, Router: a.router(cls)},
		orchestrator.WithClassifier(cls),
		orchestrator.WithMaxPapers(a.cfg.Execution.MaxPapers),
		orchestrator.WithAnalysisConcurrency(a.cfg.Execution.MaxConcurrent),
		orchestrator.WithStageTimeout(a.cfg.Execution.TaskTimeout),
		orchestrator.WithLogger(a.logger),
	)
}

// tokenUsage reports the backend's accumulated usage, if it tracks any.
func (a *app) tokenUsage() (*api.TokenTracker, bool) {
	t, ok := a.backend.(api.Tracked)
	if !ok {
		return nil, false
	}
	return t.Tracker(), true
}

// Close releases the backend and the log file.
func (a *app) Close() {
	a.events.Close()
	if c, ok := a.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Log("close backend: %v", err)
		}
	}
	a.logger.Close()
}

// openArchive opens the configured state database.
func openArchive(cfg *config.Config) (state.Archive, error) {
	db, err := state.OpenMigrated(cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	return db, nil
}
