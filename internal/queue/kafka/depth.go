package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

type offsetReader interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partitionID int32, time int64) (int64, error)
}

type groupOffsetReader interface {
	ListConsumerGroupOffsets(group string, topicPartitions map[string][]int32) (*sarama.OffsetFetchResponse, error)
}

// backlog sums, over every partition of topic, the records the group has not
// committed yet. It is read from broker metadata and may lag behind.
func backlog(client offsetReader, admin groupOffsetReader, group, topic string) (int, error) {
	partitions, err := client.Partitions(topic)
	if err != nil {
		if errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return 0, nil
		}
		return 0, fmt.Errorf("partitions: %w", err)
	}
	if len(partitions) == 0 {
		return 0, nil
	}

	committed, err := admin.ListConsumerGroupOffsets(group, map[string][]int32{topic: partitions})
	if err != nil {
		return 0, fmt.Errorf("group offsets: %w", err)
	}

	var total int64
	for _, partition := range partitions {
		newest, err := client.GetOffset(topic, partition, sarama.OffsetNewest)
		if err != nil {
			return 0, fmt.Errorf("newest offset of partition %d: %w", partition, err)
		}

		start := int64(-1)
		if block := committed.GetBlock(topic, partition); block != nil && block.Err == sarama.ErrNoError {
			start = block.Offset
		}
		if start < 0 {
			if start, err = client.GetOffset(topic, partition, sarama.OffsetOldest); err != nil {
				return 0, fmt.Errorf("oldest offset of partition %d: %w", partition, err)
			}
		}

		if newest > start {
			total += newest - start
		}
	}

	return int(total), nil
}
