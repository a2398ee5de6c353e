package events

import (
	"context"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
)

type fullEventLog interface {
	eventLog
	RecentCount(ctx context.Context, window time.Duration) (int, error)
}

// InvalidatingLog is the event log handed to the pipeline writers. Every
// append drops the cached timeline of its order.
type InvalidatingLog struct {
	next  fullEventLog
	cache timelineCache
}

func NewInvalidatingLog(next fullEventLog, cache timelineCache) *InvalidatingLog {
	return &InvalidatingLog{next: next, cache: cache}
}

func (l *InvalidatingLog) Append(
	ctx context.Context,
	orderID string,
	eventType models.EventType,
	message string,
	serviceName models.ServiceName,
) (models.OrderEvent, error) {
	event, err := l.next.Append(ctx, orderID, eventType, message, serviceName)
	if err != nil {
		return models.OrderEvent{}, err
	}

	l.cache.Invalidate(orderID)

	return event, nil
}

func (l *InvalidatingLog) Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error) {
	return l.next.Query(ctx, filter)
}

func (l *InvalidatingLog) RecentCount(ctx context.Context, window time.Duration) (int, error) {
	return l.next.RecentCount(ctx, window)
}
