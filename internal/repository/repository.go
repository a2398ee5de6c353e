// Package repository holds the storage contracts of the pipeline.
package repository

import (
	"context"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
)

//go:generate mockgen -source=repository.go -destination=mocks/event_log.go -package=mocks

// EventLog is the append-only audit log of order transitions.
type EventLog interface {
	// Append assigns the event id and the timestamp.
	Append(ctx context.Context, orderID string, eventType models.EventType, message string, serviceName models.ServiceName) (models.OrderEvent, error)
	// Query returns the matching events, newest first.
	Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error)
	RecentCount(ctx context.Context, window time.Duration) (int, error)
}
