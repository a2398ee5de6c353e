package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const rejoinDelay = time.Second

type Group struct {
	log   logger.Logger
	group sarama.ConsumerGroup
}

func New(log logger.Logger, group sarama.ConsumerGroup) *Group {
	return &Group{
		log:   log,
		group: group,
	}
}

func NewFromClient(log logger.Logger, groupID string, client sarama.Client) (*Group, error) {
	group, err := sarama.NewConsumerGroupFromClient(groupID, client)
	if err != nil {
		return nil, err
	}

	return New(log, group), nil
}

// Run joins the group and keeps rejoining after every rebalance until ctx is
// done or the group is closed.
func (g *Group) Run(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) {
	const op = "brokers.kafka.consumer.Run"

	go g.drainErrors(ctx)

	for {
		err := g.group.Consume(ctx, topics, handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}
		if err != nil {
			g.log.WarnContext(ctx, op, logger.Err(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(rejoinDelay):
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (g *Group) drainErrors(ctx context.Context) {
	const op = "brokers.kafka.consumer.drainErrors"

	for {
		select {
		case err, ok := <-g.group.Errors():
			if !ok {
				return
			}
			g.log.WarnContext(ctx, op, logger.Err(err))
		case <-ctx.Done():
			return
		}
	}
}

func (g *Group) Close() error {
	return g.group.Close()
}
