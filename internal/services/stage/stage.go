// Package stage runs one step of the fulfillment pipeline: take one order off
// the stage's input queue, advance it, hand it to the next queue and record
// the transition.
package stage

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/money"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
)

type Name string

const (
	Prepare Name = "prepare"
	Ship    Name = "ship"
	Invoice Name = "invoice"
)

var Names = []Name{Prepare, Ship, Invoice}

func ParseName(s string) (Name, error) {
	for _, name := range Names {
		if string(name) == s {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: %q", internalErrors.ErrUnknownStage, s)
}

const (
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 5 * time.Second
)

// DelayRange bounds the simulated processing time, both ends inclusive.
type DelayRange struct {
	Min time.Duration `yaml:"min" env-default:"2s"`
	Max time.Duration `yaml:"max" env-default:"5s"`
}

func DefaultDelayRange() DelayRange {
	return DelayRange{Min: DefaultMinDelay, Max: DefaultMaxDelay}
}

// Pick draws a delay with millisecond resolution.
func (r DelayRange) Pick(rnd *rand.Rand) time.Duration {
	lo, hi := r.Min, r.Max
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}

	span := int64((hi - lo) / time.Millisecond)
	if span <= 0 {
		return lo
	}

	return lo + time.Duration(rnd.Int63n(span+1))*time.Millisecond
}

// Definition wires a stage to its queues and to the event it emits.
type Definition struct {
	Name        Name
	InputQueue  string
	OutputQueue string // empty for the terminal stage
	Target      models.OrderStatus
	EventType   models.EventType
	Service     models.ServiceName
	Delay       DelayRange

	describe func(order models.Order) string
}

func (d Definition) Terminal() bool {
	return d.OutputQueue == ""
}

func (d Definition) Describe(order models.Order) string {
	return d.describe(order)
}

type Delays struct {
	Prepare DelayRange `yaml:"prepare"`
	Ship    DelayRange `yaml:"ship"`
	Invoice DelayRange `yaml:"invoice"`
}

func DefaultDelays() Delays {
	return Delays{Prepare: DefaultDelayRange(), Ship: DefaultDelayRange(), Invoice: DefaultDelayRange()}
}

// Definitions returns the three stages in pipeline order.
func Definitions(names queue.Names, delays Delays) []Definition {
	return []Definition{
		{
			Name:        Prepare,
			InputQueue:  names.Orders,
			OutputQueue: names.Prepared,
			Target:      models.OrderStatusPrepared,
			EventType:   models.EventOrderPrepared,
			Service:     models.ServicePrepare,
			Delay:       delays.Prepare,
			describe: func(o models.Order) string {
				return fmt.Sprintf("Order #%s was prepared for shipping (%s)", o.ShortID(), money.FormatPLN(o.TotalAmount))
			},
		},
		{
			Name:        Ship,
			InputQueue:  names.Prepared,
			OutputQueue: names.Shipped,
			Target:      models.OrderStatusShipped,
			EventType:   models.EventOrderShipped,
			Service:     models.ServiceShip,
			Delay:       delays.Ship,
			describe: func(o models.Order) string {
				return fmt.Sprintf("Order #%s was shipped to the customer (%s)", o.ShortID(), money.FormatPLN(o.TotalAmount))
			},
		},
		{
			Name:       Invoice,
			InputQueue: names.Shipped,
			Target:     models.OrderStatusInvoiced,
			EventType:  models.EventInvoiceSent,
			Service:    models.ServiceInvoice,
			Delay:      delays.Invoice,
			describe: func(o models.Order) string {
				return fmt.Sprintf("Invoice for order #%s was issued and sent to the customer (%s)", o.ShortID(), money.FormatPLN(o.TotalAmount))
			},
		},
	}
}

func Lookup(definitions []Definition, name Name) (Definition, error) {
	for _, d := range definitions {
		if d.Name == name {
			return d, nil
		}
	}

	return Definition{}, fmt.Errorf("%w: %q", internalErrors.ErrUnknownStage, name)
}
