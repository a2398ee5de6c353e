package kafka

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
)

type fakeSession struct {
	ctx context.Context

	mu      sync.Mutex
	marked  []int64
	commits int
}

func newFakeSession(ctx context.Context) *fakeSession {
	return &fakeSession{ctx: ctx}
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "member" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) Context() context.Context   { return s.ctx }

func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func (s *fakeSession) snapshot() ([]int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...), s.commits
}

type fakeClaim struct {
	topic    string
	messages chan *sarama.ConsumerMessage
}

func newFakeClaim(topic string, msgs ...*sarama.ConsumerMessage) *fakeClaim {
	c := &fakeClaim{topic: topic, messages: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, msg := range msgs {
		c.messages <- msg
	}
	return c
}

func (c *fakeClaim) Topic() string                            { return c.topic }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

// fakeGroup feeds one claim to the handler, the way a consumer group does
// after joining.
type fakeGroup struct {
	session *fakeSession
	claim   *fakeClaim
	closed  chan struct{}
	once    sync.Once
}

func newFakeGroup(claim *fakeClaim) *fakeGroup {
	return &fakeGroup{claim: claim, closed: make(chan struct{})}
}

func (g *fakeGroup) Run(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-g.closed:
			cancel()
		case <-sessionCtx.Done():
		}
	}()

	g.session = newFakeSession(sessionCtx)
	_ = handler.ConsumeClaim(g.session, g.claim)
	<-sessionCtx.Done()
}

func (g *fakeGroup) Close() error {
	g.once.Do(func() { close(g.closed) })
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentRecord
	err  error
}

type sentRecord struct {
	topic string
	key   string
	value any
}

func (s *fakeSender) SendJSON(_ context.Context, topic, key, _ string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentRecord{topic: topic, key: key, value: value})
	return nil
}

func (s *fakeSender) Close() error { return nil }

type fakeOffsets struct {
	partitions map[string][]int32
	newest     map[int32]int64
	oldest     map[int32]int64
	err        error
}

func (f *fakeOffsets) Partitions(topic string) ([]int32, error) {
	if f.err != nil {
		return nil, f.err
	}
	partitions, ok := f.partitions[topic]
	if !ok {
		return nil, sarama.ErrUnknownTopicOrPartition
	}
	return partitions, nil
}

func (f *fakeOffsets) GetOffset(_ string, partition int32, when int64) (int64, error) {
	if when == sarama.OffsetNewest {
		return f.newest[partition], nil
	}
	return f.oldest[partition], nil
}

type fakeGroupOffsets struct {
	committed map[int32]int64
}

func (f *fakeGroupOffsets) ListConsumerGroupOffsets(_ string, topicPartitions map[string][]int32) (*sarama.OffsetFetchResponse, error) {
	resp := &sarama.OffsetFetchResponse{}
	for topic, partitions := range topicPartitions {
		for _, partition := range partitions {
			offset, ok := f.committed[partition]
			if !ok {
				offset = -1
			}
			resp.AddBlock(topic, partition, &sarama.OffsetFetchResponseBlock{Offset: offset, Err: sarama.ErrNoError})
		}
	}
	return resp, nil
}
