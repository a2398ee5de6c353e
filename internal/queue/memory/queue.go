// Package memory is the in-process queue backend. One Queue holds every named
// queue of the process; it is created at startup and only emptied by Reset.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type envelope struct {
	id    string
	order models.Order
}

type Queue struct {
	log logger.Logger

	mu     sync.Mutex
	queues map[string][]envelope
}

func New(log logger.Logger, queueNames ...string) *Queue {
	q := &Queue{
		log:    log,
		queues: make(map[string][]envelope, len(queueNames)),
	}

	for _, name := range queueNames {
		q.queues[name] = nil
	}

	return q
}

func (q *Queue) Send(ctx context.Context, queueName string, order models.Order) error {
	const op = "queue.memory.Send"

	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.queues[queueName] = append(q.queues[queueName], envelope{id: uuid.NewString(), order: order.Clone()})
	q.mu.Unlock()

	q.log.DebugContext(ctx, op, logger.String("queue", queueName), logger.String("order_id", order.ID.String()))

	return nil
}

// Receive removes the head of the queue. The returned message cannot be
// redelivered, Complete is a no-op.
func (q *Queue) Receive(ctx context.Context, queueName string) (queue.Message, bool, error) {
	const op = "queue.memory.Receive"

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	q.mu.Lock()
	pending := q.queues[queueName]
	if len(pending) == 0 {
		q.mu.Unlock()
		return nil, false, nil
	}

	head := pending[0]
	pending[0] = envelope{}
	q.queues[queueName] = pending[1:]
	q.mu.Unlock()

	q.log.DebugContext(ctx, op, logger.String("queue", queueName), logger.String("order_id", head.order.ID.String()))

	return &message{envelope: head}, true, nil
}

func (q *Queue) Depth(ctx context.Context, queueName string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queues[queueName]), nil
}

func (q *Queue) Guarantee() queue.DeliveryGuarantee {
	return queue.AtMostOnce
}

// Peek returns up to count orders from the head without removing them.
func (q *Queue) Peek(queueName string, count int) []models.Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.queues[queueName]
	count = max(0, min(count, len(pending)))

	orders := make([]models.Order, 0, count)
	for _, env := range pending[:count] {
		orders = append(orders, env.order.Clone())
	}

	return orders
}

// Reset drops every pending message. Test-only.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for name := range q.queues {
		q.queues[name] = nil
	}
}

type message struct {
	envelope
}

func (m *message) ID() string {
	return m.id
}

func (m *message) Order() models.Order {
	return m.order
}

func (m *message) Complete(context.Context) error {
	return nil
}
