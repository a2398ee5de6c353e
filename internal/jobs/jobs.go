// Package jobs drives the pipeline on a schedule: one cron entry places new
// orders, one entry per stage processes the next message of its queue.
// Every entry skips its tick while the previous run is still in progress.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context) (models.Order, error)
}

type StageProcessor interface {
	ProcessOne(ctx context.Context, simulate bool) (stage.Result, error)
	Definition() stage.Definition
}

type Schedule struct {
	Generator string
	Stages    map[stage.Name]string
	Simulate  bool
}

type Manager struct {
	log  logger.Logger
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	log = log.With("component", "jobs")
	cronLog := cronLogger{log: log}

	return &Manager{
		log: log,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *Manager) AddGenerator(spec string, generator orderCreator) error {
	const op = "jobs.generator"

	_, err := m.cron.AddFunc(spec, func() {
		order, err := generator.Create(m.ctx)
		if err != nil {
			m.log.ErrorContext(m.ctx, op, logger.Err(err))
			return
		}
		m.log.DebugContext(m.ctx, op, logger.String("order_id", order.ID.String()))
	})
	if err != nil {
		return fmt.Errorf("%s: schedule %q: %w", op, spec, err)
	}

	return nil
}

func (m *Manager) AddStage(spec string, worker StageProcessor, simulate bool) error {
	op := "jobs.stage." + string(worker.Definition().Name)

	_, err := m.cron.AddFunc(spec, func() {
		result, err := worker.ProcessOne(m.ctx, simulate)
		if err != nil {
			m.log.ErrorContext(m.ctx, op, logger.Err(err))
			return
		}
		if result.Processed {
			m.log.DebugContext(m.ctx, op, logger.String("order_id", result.Order.ID))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: schedule %q: %w", op, spec, err)
	}

	return nil
}

// Register adds the generator and every worker that has a spec in s.
func (m *Manager) Register(s Schedule, generator orderCreator, workers ...StageProcessor) error {
	if s.Generator != "" {
		if err := m.AddGenerator(s.Generator, generator); err != nil {
			return err
		}
	}

	for _, w := range workers {
		spec := s.Stages[w.Definition().Name]
		if spec == "" {
			continue
		}
		if err := m.AddStage(spec, w, s.Simulate); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) Start() {
	m.cron.Start()
	m.log.Info("jobs started", logger.Int("entries", len(m.cron.Entries())))
}

// Stop cancels running invocations and waits for them to return.
func (m *Manager) Stop() {
	m.cancel()
	<-m.cron.Stop().Done()
	m.log.Info("jobs stopped")
}

// cronLogger routes the scheduler's own messages, recovered panics included,
// to the application logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("jobs.cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("jobs.cron: "+msg, append(keysAndValues, logger.Err(err))...)
}
