// Package queue defines the named-queue capability shared by the in-process
// and the broker-backed implementations.
package queue

import (
	"context"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
)

//go:generate mockgen -source=queue.go -destination=mocks/queue.go -package=mocks

// DeliveryGuarantee describes what happens to a received message that is
// never completed.
type DeliveryGuarantee string

const (
	// AtMostOnce: the message left the queue on receive, it is lost if
	// processing fails.
	AtMostOnce DeliveryGuarantee = "at-most-once"
	// AtLeastOnce: the message stays locked until Complete, it is delivered
	// again if processing fails.
	AtLeastOnce DeliveryGuarantee = "at-least-once"
)

type Queue interface {
	Send(ctx context.Context, queueName string, order models.Order) error
	// Receive returns ok == false when the queue had nothing to deliver. That
	// is not an error.
	Receive(ctx context.Context, queueName string) (msg Message, ok bool, err error)
	Depth(ctx context.Context, queueName string) (int, error)
	Guarantee() DeliveryGuarantee
}

// Message is borrowed by the receiver until Complete is called.
type Message interface {
	ID() string
	Order() models.Order
	Complete(ctx context.Context) error
}
