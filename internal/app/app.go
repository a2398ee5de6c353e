package app

import (
	"context"
	"errors"
	"fmt"

	httpapp "github.com/tumbleweedd/fulfillment_pipeline/internal/app/http"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/config"
	pipeline_http "github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/logs"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/orders/generate"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/stats"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/workers"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/jobs"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type App struct {
	log logger.Logger
	cfg *config.Config

	Pipeline   *Pipeline
	HTTPServer *httpapp.App
	Jobs       *jobs.Manager
}

func NewApp(log logger.Logger, cfg *config.Config) (*App, error) {
	pipeline := NewPipeline(log, cfg)

	handler := pipeline_http.NewHandler(log,
		generate.NewHandler(log, pipeline.Generator),
		workers.NewHandler(log, pipeline.Runner),
		stats.NewHandler(log, pipeline.Stats),
		logs.NewHandler(log, pipeline.Events),
	)

	a := &App{
		log:      log,
		cfg:      cfg,
		Pipeline: pipeline,
		HTTPServer: httpapp.NewApp(log, handler, cfg.HTTP.Port, httpapp.Timeouts{
			Read:  cfg.HTTP.ReadTimeout,
			Write: cfg.HTTP.WriteTimeout,
		}),
	}

	if cfg.Scheduler.Enabled {
		manager, err := setupJobs(log, cfg, pipeline)
		if err != nil {
			_ = pipeline.Close()
			return nil, err
		}
		a.Jobs = manager
	}

	return a, nil
}

func setupJobs(log logger.Logger, cfg *config.Config, pipeline *Pipeline) (*jobs.Manager, error) {
	const op = "app.setupJobs"

	manager := jobs.NewManager(log)

	processors := make([]jobs.StageProcessor, 0, len(pipeline.Workers))
	for _, w := range pipeline.Workers {
		processors = append(processors, w)
	}

	err := manager.Register(jobs.Schedule{
		Generator: cfg.Scheduler.Generator,
		Stages: map[stage.Name]string{
			stage.Prepare: cfg.Scheduler.Prepare,
			stage.Ship:    cfg.Scheduler.Ship,
			stage.Invoice: cfg.Scheduler.Invoice,
		},
		Simulate: cfg.Scheduler.Simulate,
	}, pipeline.Generator, processors...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return manager, nil
}

// Start runs the scheduler when it is enabled. The HTTP server is started by
// the caller.
func (a *App) Start() {
	if a.Jobs != nil {
		a.Jobs.Start()
	}
}

func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if err := a.HTTPServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}

	if a.Jobs != nil {
		a.Jobs.Stop()
	}

	if err := a.Pipeline.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backends: %w", err))
	}

	return errors.Join(errs...)
}
