// Package memory is the in-process event log. Events live as long as the
// process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type Log struct {
	log logger.Logger
	now func() time.Time

	mu     sync.RWMutex
	events []models.OrderEvent
}

func New(log logger.Logger) *Log {
	return NewWithClock(log, time.Now)
}

func NewWithClock(log logger.Logger, now func() time.Time) *Log {
	return &Log{
		log: log,
		now: now,
	}
}

func (l *Log) Append(
	ctx context.Context,
	orderID string,
	eventType models.EventType,
	message string,
	serviceName models.ServiceName,
) (models.OrderEvent, error) {
	const op = "repository.event.memory.Append"

	if err := ctx.Err(); err != nil {
		return models.OrderEvent{}, err
	}

	event := models.OrderEvent{
		EventID:     uuid.New(),
		OrderID:     orderID,
		EventType:   eventType,
		Message:     message,
		Timestamp:   l.now().UTC(),
		ServiceName: serviceName,
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	l.log.DebugContext(ctx, op,
		logger.String("order_id", orderID),
		logger.String("event_type", string(eventType)),
		logger.String("service", string(serviceName)),
	)

	return event, nil
}

// Query sorts newest first. Events with the same timestamp come in reverse
// insertion order, the same tie-break the database uses.
func (l *Log) Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter = filter.WithDefaults()

	l.mu.RLock()
	matched := make([]models.OrderEvent, 0)
	for i := len(l.events) - 1; i >= 0; i-- {
		if filter.Match(l.events[i]) {
			matched = append(matched, l.events[i])
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset >= len(matched) {
		return []models.OrderEvent{}, nil
	}

	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[filter.Offset:end], nil
}

func (l *Log) RecentCount(ctx context.Context, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	since := l.now().Add(-window)

	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, event := range l.events {
		if !event.Timestamp.Before(since) {
			count++
		}
	}

	return count, nil
}

func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.events)
}

func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
