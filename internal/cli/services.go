package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/agent"
	"github.com/mrz1836/gamesmith/internal/ai"
	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/config"
	"github.com/mrz1836/gamesmith/internal/domain"
	"github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/execution"
	"github.com/mrz1836/gamesmith/internal/generator"
	"github.com/mrz1836/gamesmith/internal/planning"
	"github.com/mrz1836/gamesmith/internal/project"
)

// services holds the long-lived components built from configuration.
// serve and run share it; only serve mounts them behind the HTTP API.
type services struct {
	cfg       *config.Config
	logger    zerolog.Logger
	bus       *events.Bus
	artifacts *artifact.FSStore
	templates *generator.Registry
	projects  project.Store
	updater   *project.Updater
	text      *ai.Generator
	metrics   agent.Metrics
}

// newServices builds every component in dependency order. On error the
// components built so far are closed.
func newServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	root, err := cfg.ArtifactRoot()
	if err != nil {
		return nil, err
	}
	store, err := artifact.NewFSStore(root, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open artifact store")
	}

	templates, err := generator.NewDefaultRegistry(cfg.Generator.TemplatesDir)
	if err != nil {
		return nil, err
	}

	text, err := ai.New(&cfg.AI, logger)
	if err != nil {
		return nil, err
	}

	storePath, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	projects, err := project.Open(cfg.Store.Driver, storePath, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open project store")
	}

	logger.Debug().
		Str("artifact_root", store.Root()).
		Str("store_driver", cfg.Store.Driver).
		Str("store_path", storePath).
		Int("templates", templates.Len()).
		Str("ai_provider", text.Provider()).
		Bool("ai_available", text.IsAvailable()).
		Msg("services ready")

	if err := ctx.Err(); err != nil {
		_ = projects.Close()
		return nil, err
	}

	return &services{
		cfg:       cfg,
		logger:    logger,
		bus:       events.NewBus(logger, events.WithBufferSize(cfg.Events.BufferSize)),
		artifacts: store,
		templates: templates,
		projects:  projects,
		updater:   project.NewUpdater(projects),
		text:      text,
		metrics:   agent.NewLogMetrics(logger),
	}, nil
}

// stages returns the builder wiring planning, execution and generation to pub.
func (s *services) stages() agent.StageBuilder {
	exec := s.cfg.Execution
	gen := s.cfg.Generator
	return func(pub events.Publisher) agent.Stages {
		return agent.Stages{
			Planner: planning.New(s.text, pub, s.logger),
			Runner: execution.New(s.artifacts, pub, s.logger,
				execution.WithStepDelay(exec.MinStepDelay, exec.MaxStepDelay)),
			Generator: generator.New(s.templates, s.artifacts, pub, s.logger,
				generator.WithStrict(gen.StrictTemplates),
				generator.WithPreviewImage(gen.PreviewImage)),
		}
	}
}

// newController creates a controller for p that mirrors status into the project store.
func (s *services) newController(p *domain.Project, pub events.Publisher) *agent.Controller {
	return agent.New(p, s.stages(), pub, s.logger,
		agent.WithProjectUpdater(s.updater),
		agent.WithMetrics(s.metrics),
		agent.WithPreviewImage(s.cfg.Generator.PreviewImage),
	)
}

// Close releases the project store.
func (s *services) Close() error {
	return s.projects.Close()
}
