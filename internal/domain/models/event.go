package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated  EventType = "OrderCreated"
	EventOrderPrepared EventType = "OrderPrepared"
	EventOrderShipped  EventType = "OrderShipped"
	EventInvoiceSent   EventType = "InvoiceSent"
)

type ServiceName string

const (
	ServiceGenerator ServiceName = "generator"
	ServicePrepare   ServiceName = "prepare"
	ServiceShip      ServiceName = "ship"
	ServiceInvoice   ServiceName = "invoice"
)

// OrderEvent is one immutable entry of the audit log.
type OrderEvent struct {
	EventID     uuid.UUID   `json:"event_id" db:"event_id"`
	OrderID     string      `json:"order_id" db:"order_id"`
	EventType   EventType   `json:"event_type" db:"event_type"`
	Message     string      `json:"message" db:"message"`
	Timestamp   time.Time   `json:"timestamp" db:"created_at"`
	ServiceName ServiceName `json:"service_name" db:"service_name"`
}

const (
	DefaultEventLimit = 100
)

// EventFilter is a conjunction of the non-zero fields. Offset and Limit are
// applied after filtering and sorting.
type EventFilter struct {
	OrderID     string
	EventType   EventType
	ServiceName ServiceName
	StartDate   *time.Time
	EndDate     *time.Time
	Offset      int
	Limit       int
}

func (f EventFilter) WithDefaults() EventFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultEventLimit
	}
	return f
}

// Match reports whether e satisfies every criteria of f. Pagination is ignored.
func (f EventFilter) Match(e OrderEvent) bool {
	if f.OrderID != "" && e.OrderID != f.OrderID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.ServiceName != "" && e.ServiceName != f.ServiceName {
		return false
	}
	if f.StartDate != nil && e.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}
