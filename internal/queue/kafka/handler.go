package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"

	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

// delivery is one attempt to hand a consumed record to a receiver. The
// partition does not move on until the attempt is acknowledged; an attempt
// that is not acknowledged within the lock duration expires and the record is
// offered again.
type delivery struct {
	msg     *sarama.ConsumerMessage
	attempt int

	ack      chan chan struct{}
	expired  chan struct{}
	finished chan struct{}

	expireOnce sync.Once
}

func newDelivery(msg *sarama.ConsumerMessage, attempt int) *delivery {
	return &delivery{
		msg:      msg,
		attempt:  attempt,
		ack:      make(chan chan struct{}),
		expired:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (d *delivery) expire() {
	d.expireOnce.Do(func() { close(d.expired) })
}

// complete blocks until the handler committed the offset.
func (d *delivery) complete(ctx context.Context) error {
	confirmed := make(chan struct{})

	select {
	case d.ack <- confirmed:
		<-confirmed
		return nil
	case <-d.finished:
		return nil
	case <-d.expired:
		return internalErrors.ErrMessageLockLost
	case <-ctx.Done():
		return ctx.Err()
	}
}

type claimHandler struct {
	log          logger.Logger
	deliveries   chan *delivery
	lockDuration time.Duration
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.deliver(session, msg) {
				return nil
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// deliver offers msg until a receiver completes it. It returns false when the
// session ended first.
func (h *claimHandler) deliver(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) bool {
	const op = "queue.kafka.claimHandler.deliver"

	ctx := session.Context()

	for attempt := 1; ; attempt++ {
		d := newDelivery(msg, attempt)

		select {
		case h.deliveries <- d:
		case <-ctx.Done():
			return false
		}

		lock := time.NewTimer(h.lockDuration)

		select {
		case confirmed := <-d.ack:
			lock.Stop()
			session.MarkMessage(msg, "")
			session.Commit()
			close(confirmed)
			close(d.finished)
			return true
		case <-lock.C:
			d.expire()
			h.log.WarnContext(ctx, op,
				logger.String("topic", msg.Topic),
				logger.Int("partition", int(msg.Partition)),
				logger.Int("offset", int(msg.Offset)),
				logger.Int("attempt", attempt),
				logger.String("reason", "lock expired, redelivering"),
			)
		case <-ctx.Done():
			lock.Stop()
			d.expire()
			return false
		}
	}
}
