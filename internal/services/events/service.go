// Package events is the read and manual-write side of the event log.
package events

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const (
	MaxLimit         = 1000
	MaxMessageLength = 1024
	// a single order never has more events than this in practice
	timelineLimit = MaxLimit
)

type eventLog interface {
	Append(ctx context.Context, orderID string, eventType models.EventType, message string, serviceName models.ServiceName) (models.OrderEvent, error)
	Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error)
}

type timelineCache interface {
	Get(orderID string) ([]models.OrderEvent, bool)
	Generation() uint64
	AddIfCurrent(orderID string, generation uint64, events []models.OrderEvent) bool
	Invalidate(orderID string)
}

type AppendInput struct {
	OrderID     string `json:"order_id" validate:"required,max=64"`
	EventType   string `json:"event_type" validate:"required,oneof=OrderCreated OrderPrepared OrderShipped InvoiceSent"`
	Message     string `json:"message" validate:"required,max=1024"`
	ServiceName string `json:"service_name" validate:"required,oneof=generator prepare ship invoice"`
}

type filterInput struct {
	EventType   string `validate:"omitempty,oneof=OrderCreated OrderPrepared OrderShipped InvoiceSent"`
	ServiceName string `validate:"omitempty,oneof=generator prepare ship invoice"`
	Offset      int    `validate:"min=0"`
	Limit       int    `validate:"min=0,max=1000"`
}

type Service struct {
	log      logger.Logger
	events   eventLog
	cache    timelineCache
	validate *validator.Validate
}

func New(log logger.Logger, events eventLog, cache timelineCache) *Service {
	return &Service{
		log:      log,
		events:   events,
		cache:    cache,
		validate: validator.New(),
	}
}

// Append records an event that did not come from a pipeline stage.
func (s *Service) Append(ctx context.Context, in AppendInput) (models.OrderEvent, error) {
	const op = "services.events.Append"

	if err := s.validate.Struct(in); err != nil {
		return models.OrderEvent{}, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrInvalidEvent, err)
	}

	event, err := s.events.Append(ctx, in.OrderID, models.EventType(in.EventType), in.Message, models.ServiceName(in.ServiceName))
	if err != nil {
		return models.OrderEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Invalidate(in.OrderID)
	s.log.InfoContext(ctx, op, logger.String("order_id", in.OrderID), logger.String("event_type", in.EventType))

	return event, nil
}

func (s *Service) Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error) {
	const op = "services.events.Query"

	if err := s.validateFilter(filter); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events, err := s.events.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

func (s *Service) validateFilter(filter models.EventFilter) error {
	err := s.validate.Struct(filterInput{
		EventType:   string(filter.EventType),
		ServiceName: string(filter.ServiceName),
		Offset:      filter.Offset,
		Limit:       filter.Limit,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", internalErrors.ErrInvalidFilter, err)
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return fmt.Errorf("%w: end date before start date", internalErrors.ErrInvalidFilter)
	}

	return nil
}

// Timeline returns every event of one order, newest first. Histories are
// cached until this process appends to them again or they expire.
func (s *Service) Timeline(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	const op = "services.events.Timeline"

	if orderID == "" {
		return nil, fmt.Errorf("%s: %w: empty order id", op, internalErrors.ErrInvalidFilter)
	}

	if cached, ok := s.cache.Get(orderID); ok {
		return cached, nil
	}

	generation := s.cache.Generation()

	events, err := s.events.Query(ctx, models.EventFilter{OrderID: orderID, Limit: timelineLimit})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(events) > 0 {
		s.cache.AddIfCurrent(orderID, generation, events)
	}

	return events, nil
}
