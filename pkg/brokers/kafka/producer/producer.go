package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const MessageIDHeader = "message-id"

type Producer struct {
	log logger.Logger

	// the caller forwards an order only after the broker acknowledged it,
	// so the producer is synchronous
	producer sarama.SyncProducer
}

func New(log logger.Logger, producer sarama.SyncProducer) *Producer {
	return &Producer{
		log:      log,
		producer: producer,
	}
}

func NewFromClient(log logger.Logger, client sarama.Client) (*Producer, error) {
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, err
	}

	return New(log, producer), nil
}

// SendJSON marshals value and blocks until the broker acknowledged the write.
func (p *Producer) SendJSON(ctx context.Context, topic, key, messageID string, value any) error {
	const op = "brokers.kafka.producer.SendJSON"

	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte(MessageIDHeader), Value: []byte(messageID)},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("%s: send message: %w", op, err)
	}

	p.log.DebugContext(ctx, op,
		logger.String("topic", topic),
		logger.String("key", key),
		logger.Int("partition", int(partition)),
		logger.Int("offset", int(offset)),
	)

	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
