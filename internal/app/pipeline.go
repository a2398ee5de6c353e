package app

import (
	"errors"
	"math/rand"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/cache_impl"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/config"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	kafkaQueue "github.com/tumbleweedd/fulfillment_pipeline/internal/queue/kafka"
	memoryQueue "github.com/tumbleweedd/fulfillment_pipeline/internal/queue/memory"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/repository"
	eventMemory "github.com/tumbleweedd/fulfillment_pipeline/internal/repository/event/memory"
	eventPostgres "github.com/tumbleweedd/fulfillment_pipeline/internal/repository/event/postgres"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/events"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/generator"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stats"
	"github.com/tumbleweedd/fulfillment_pipeline/migrations"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/databases/postgres"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

// Pipeline is every service of the process built on the backends the
// configuration selects. Backends connect lazily, building it never blocks.
type Pipeline struct {
	Queue     queue.Queue
	EventLog  *events.InvalidatingLog
	Generator *generator.Generator
	Workers   []*stage.Worker
	Runner    *stage.Runner
	Events    *events.Service
	Stats     *stats.Service

	closers []func() error
}

func NewPipeline(log logger.Logger, cfg *config.Config) *Pipeline {
	p := &Pipeline{}

	p.Queue = p.setupQueue(log, cfg)

	cache := cache_impl.NewExpirableTimelineCache(cfg.EventLog.TimelineCacheSize, cfg.EventLog.TimelineCacheTTL, log)
	p.EventLog = events.NewInvalidatingLog(p.setupEventLog(log, cfg), cache)

	p.Generator = generator.New(log, p.Queue, p.EventLog, cfg.Queues.Orders)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, def := range stage.Definitions(cfg.Queues, cfg.Workers) {
		p.Workers = append(p.Workers, stage.NewWorker(log, def, p.Queue, p.EventLog, rand.New(rand.NewSource(rnd.Int63()))))
	}
	p.Runner = stage.NewRunner(p.Workers...)

	p.Events = events.New(log, p.EventLog, cache)
	p.Stats = stats.New(p.Queue, p.EventLog, cfg.Queues, cfg.UsingMockStorage())

	log.Info("pipeline backends",
		logger.String("queue", string(cfg.QueueBackend())),
		logger.String("event_log", string(cfg.EventLogBackend())),
		logger.String("delivery", string(p.Queue.Guarantee())),
	)

	return p
}

func (p *Pipeline) setupQueue(log logger.Logger, cfg *config.Config) queue.Queue {
	if cfg.QueueBackend() == config.BackendMock {
		return memoryQueue.New(log, cfg.Queues.All()...)
	}

	q := kafkaQueue.New(log, kafkaQueue.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		ClientID:      cfg.Kafka.ClientID,
		ReceiveWait:   cfg.Kafka.ReceiveWait,
		LockDuration:  cfg.Kafka.LockDuration,
	})
	p.closers = append(p.closers, q.Close)

	return q
}

func (p *Pipeline) setupEventLog(log logger.Logger, cfg *config.Config) repository.EventLog {
	if cfg.EventLogBackend() == config.BackendMock {
		return eventMemory.New(log)
	}

	db := postgres.NewLazy(log, cfg.Postgres.ConnectionString(), migrations.FS)
	p.closers = append(p.closers, db.Close)

	return eventPostgres.New(log, db)
}

func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}

	return errors.Join(errs...)
}
