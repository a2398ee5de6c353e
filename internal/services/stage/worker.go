package stage

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type messageQueue interface {
	Send(ctx context.Context, queueName string, order models.Order) error
	Receive(ctx context.Context, queueName string) (queue.Message, bool, error)
}

type eventAppender interface {
	Append(ctx context.Context, orderID string, eventType models.EventType, message string, serviceName models.ServiceName) (models.OrderEvent, error)
}

type OrderSummary struct {
	ID           string             `json:"id"`
	CustomerName string             `json:"customer_name"`
	Status       models.OrderStatus `json:"status"`
	// seconds of simulated work
	ProcessingTime float64 `json:"processing_time"`
}

type Result struct {
	Processed      bool          `json:"processed"`
	QueueEmpty     bool          `json:"queue_empty"`
	Order          *OrderSummary `json:"order,omitempty"`
	ProcessingTime time.Duration `json:"-"`
}

type Worker struct {
	log    logger.Logger
	def    Definition
	queue  messageQueue
	events eventAppender

	rndMu sync.Mutex
	rnd   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

func NewWorker(log logger.Logger, def Definition, queue messageQueue, events eventAppender, rnd *rand.Rand) *Worker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Worker{
		log:    log.With("stage", string(def.Name)),
		def:    def,
		queue:  queue,
		events: events,
		rnd:    rnd,
		sleep:  sleepContext,
	}
}

func (w *Worker) Definition() Definition {
	return w.def
}

// ProcessOne moves at most one order through the stage. An empty input queue
// is reported in the result, not as an error. On any error the message is
// left uncompleted.
func (w *Worker) ProcessOne(ctx context.Context, simulate bool) (Result, error) {
	const op = "services.stage.Worker.ProcessOne"

	msg, ok, err := w.queue.Receive(ctx, w.def.InputQueue)
	if err != nil {
		return Result{}, fmt.Errorf("%s: receive from %s: %w", op, w.def.InputQueue, err)
	}
	if !ok {
		return Result{QueueEmpty: true}, nil
	}

	order := msg.Order()

	var delay time.Duration
	if simulate {
		delay = w.pickDelay()
		if err = w.sleep(ctx, delay); err != nil {
			return Result{}, fmt.Errorf("%s: simulate order %s: %w", op, order.ID, err)
		}
	}

	next, err := order.Advance(w.def.Target)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if !w.def.Terminal() {
		if err = w.queue.Send(ctx, w.def.OutputQueue, next); err != nil {
			w.log.ErrorContext(ctx, op, logger.String("order_id", order.ID.String()), logger.Err(err))
			return Result{}, fmt.Errorf("%s: forward to %s: %w", op, w.def.OutputQueue, err)
		}
	}

	if _, err = w.events.Append(ctx, next.ID.String(), w.def.EventType, w.def.Describe(next), w.def.Service); err != nil {
		w.log.ErrorContext(ctx, op, logger.String("order_id", order.ID.String()), logger.Err(err))
		return Result{}, fmt.Errorf("%s: log event: %w", op, err)
	}

	if err = msg.Complete(ctx); err != nil {
		return Result{}, fmt.Errorf("%s: complete message %s: %w", op, msg.ID(), err)
	}

	w.log.InfoContext(ctx, op,
		logger.String("order_id", next.ID.String()),
		logger.String("status", string(next.Status)),
		logger.Duration("simulated", delay),
	)

	return Result{
		Processed: true,
		Order: &OrderSummary{
			ID:             next.ID.String(),
			CustomerName:   next.CustomerName,
			Status:         next.Status,
			ProcessingTime: delay.Seconds(),
		},
		ProcessingTime: delay,
	}, nil
}

func (w *Worker) pickDelay() time.Duration {
	w.rndMu.Lock()
	defer w.rndMu.Unlock()

	return w.def.Delay.Pick(w.rnd)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
