// Package kafka is the broker-backed queue backend. Every named queue is a
// topic; every topic is read by its own consumer group, offsets are committed
// only when a message is completed.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	brokers "github.com/tumbleweedd/fulfillment_pipeline/pkg/brokers/kafka"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/brokers/kafka/consumer"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/brokers/kafka/producer"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const (
	DefaultReceiveWait  = 5 * time.Second
	DefaultLockDuration = 30 * time.Second
)

type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
	ReceiveWait   time.Duration
	LockDuration  time.Duration
}

type sender interface {
	SendJSON(ctx context.Context, topic, key, messageID string, value any) error
	Close() error
}

type groupRunner interface {
	Run(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler)
	Close() error
}

// connection is everything the queue needs from the cluster.
type connection struct {
	producer sender
	offsets  offsetReader
	admin    groupOffsetReader
	newGroup func(groupID string) (groupRunner, error)
	close    func() error
}

type topicConsumer struct {
	group      groupRunner
	deliveries chan *delivery
	done       chan struct{}
}

type Queue struct {
	log logger.Logger
	cfg Config

	dial func(cfg Config) (*connection, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	conn      *connection
	consumers map[string]*topicConsumer
}

// New does not touch the network. The connection is opened by the first
// operation that needs it.
func New(log logger.Logger, cfg Config) *Queue {
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = DefaultReceiveWait
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		log:       log,
		cfg:       cfg,
		dial:      dialer(log),
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]*topicConsumer),
	}
}

func dialer(log logger.Logger) func(cfg Config) (*connection, error) {
	return func(cfg Config) (*connection, error) {
		client, err := sarama.NewClient(cfg.Brokers, brokers.NewConfig(cfg.ClientID))
		if err != nil {
			return nil, err
		}

		prod, err := producer.NewFromClient(log, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}

		admin, err := sarama.NewClusterAdminFromClient(client)
		if err != nil {
			_ = prod.Close()
			_ = client.Close()
			return nil, err
		}

		return &connection{
			producer: prod,
			offsets:  client,
			admin:    admin,
			newGroup: func(groupID string) (groupRunner, error) {
				return consumer.NewFromClient(log, groupID, client)
			},
			close: func() error {
				_ = prod.Close()
				// closes the underlying client too
				return admin.Close()
			},
		}, nil
	}
}

func (q *Queue) connect() (*connection, error) {
	const op = "queue.kafka.connect"

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn != nil {
		return q.conn, nil
	}

	if err := brokers.ValidateBrokers(q.cfg.Brokers); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrInvalidConnectionDescriptor, err)
	}
	if q.cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("%s: %w: empty consumer group", op, internalErrors.ErrInvalidConnectionDescriptor)
	}

	conn, err := q.dial(q.cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	q.conn = conn
	q.log.Info(op, logger.Any("brokers", q.cfg.Brokers))

	return conn, nil
}

func (q *Queue) groupID(queueName string) string {
	return q.cfg.ConsumerGroup + "." + queueName
}

func (q *Queue) Send(ctx context.Context, queueName string, order models.Order) error {
	const op = "queue.kafka.Send"

	conn, err := q.connect()
	if err != nil {
		return err
	}

	if err = conn.producer.SendJSON(ctx, queueName, order.ID.String(), uuid.NewString(), order); err != nil {
		return fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	return nil
}

func (q *Queue) consumerFor(conn *connection, queueName string) (*topicConsumer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if tc, ok := q.consumers[queueName]; ok {
		return tc, nil
	}

	group, err := conn.newGroup(q.groupID(queueName))
	if err != nil {
		return nil, err
	}

	tc := &topicConsumer{
		group:      group,
		deliveries: make(chan *delivery),
		done:       make(chan struct{}),
	}
	handler := &claimHandler{
		log:          q.log,
		deliveries:   tc.deliveries,
		lockDuration: q.cfg.LockDuration,
	}

	go func() {
		defer close(tc.done)
		group.Run(q.ctx, []string{queueName}, handler)
	}()

	q.consumers[queueName] = tc

	return tc, nil
}

// Receive waits up to ReceiveWait for a message. The partition the message
// came from is held until Complete or until the lock expires.
func (q *Queue) Receive(ctx context.Context, queueName string) (queue.Message, bool, error) {
	const op = "queue.kafka.Receive"

	conn, err := q.connect()
	if err != nil {
		return nil, false, err
	}

	tc, err := q.consumerFor(conn, queueName)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	wait := time.NewTimer(q.cfg.ReceiveWait)
	defer wait.Stop()

	var d *delivery
	select {
	case d = <-tc.deliveries:
	case <-wait.C:
		return nil, false, nil
	case <-tc.done:
		return nil, false, fmt.Errorf("%s: %w: consumer stopped", op, internalErrors.ErrBackendUnavailable)
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}

	var order models.Order
	if err = json.Unmarshal(d.msg.Value, &order); err != nil {
		// a record that can never be decoded would block its partition forever
		_ = d.complete(ctx)
		return nil, false, fmt.Errorf("%s: decode offset %d of %s: %w", op, d.msg.Offset, queueName, err)
	}

	q.log.DebugContext(ctx, op,
		logger.String("queue", queueName),
		logger.String("order_id", order.ID.String()),
		logger.Int("attempt", d.attempt),
	)

	return &message{id: messageID(d.msg), order: order, delivery: d}, true, nil
}

func (q *Queue) Depth(ctx context.Context, queueName string) (int, error) {
	const op = "queue.kafka.Depth"

	conn, err := q.connect()
	if err != nil {
		return 0, err
	}
	if err = ctx.Err(); err != nil {
		return 0, err
	}

	depth, err := backlog(conn.offsets, conn.admin, q.groupID(queueName), queueName)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	return depth, nil
}

func (q *Queue) Guarantee() queue.DeliveryGuarantee {
	return queue.AtLeastOnce
}

// Close stops every consumer group and releases the connection.
func (q *Queue) Close() error {
	q.cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	for name, tc := range q.consumers {
		if err := tc.group.Close(); err != nil {
			q.log.Warn("queue.kafka.Close", logger.String("queue", name), logger.Err(err))
		}
		<-tc.done
	}
	q.consumers = make(map[string]*topicConsumer)

	if q.conn == nil {
		return nil
	}

	err := q.conn.close()
	q.conn = nil

	return err
}

type message struct {
	id       string
	order    models.Order
	delivery *delivery
}

func (m *message) ID() string {
	return m.id
}

func (m *message) Order() models.Order {
	return m.order
}

func (m *message) Complete(ctx context.Context) error {
	const op = "queue.kafka.message.Complete"

	if err := m.delivery.complete(ctx); err != nil {
		return fmt.Errorf("%s: %s: %w", op, m.id, err)
	}

	return nil
}

func messageID(msg *sarama.ConsumerMessage) string {
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == producer.MessageIDHeader {
			return string(header.Value)
		}
	}

	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
