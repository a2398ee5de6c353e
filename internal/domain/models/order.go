package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
)

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "created"
	OrderStatusPrepared OrderStatus = "prepared"
	OrderStatusShipped  OrderStatus = "shipped"
	OrderStatusInvoiced OrderStatus = "invoiced"
)

var statusSequence = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPrepared,
	OrderStatusShipped,
	OrderStatusInvoiced,
}

func (s OrderStatus) rank() int {
	for i, status := range statusSequence {
		if status == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.rank() >= 0
}

// Next returns the status that follows s. ok is false for the terminal status
// and for unknown values.
func (s OrderStatus) Next() (next OrderStatus, ok bool) {
	r := s.rank()
	if r < 0 || r == len(statusSequence)-1 {
		return "", false
	}
	return statusSequence[r+1], true
}

type Order struct {
	ID            uuid.UUID       `json:"id"`
	Products      []Product       `json:"products"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        OrderStatus     `json:"status"`
}

type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (p Product) Subtotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// NewOrder builds an order in the created status. The total is computed here
// and never recomputed afterwards.
func NewOrder(customerName, customerEmail string, products []Product, createdAt time.Time) (Order, error) {
	if len(products) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one product", internalErrors.ErrInvalidOrder)
	}

	total := decimal.Zero
	for _, p := range products {
		if p.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: product %q has quantity %d", internalErrors.ErrInvalidOrder, p.Name, p.Quantity)
		}
		if p.UnitPrice.IsNegative() {
			return Order{}, fmt.Errorf("%w: product %q has negative price", internalErrors.ErrInvalidOrder, p.Name)
		}
		total = total.Add(p.Subtotal())
	}

	return Order{
		ID:            uuid.New(),
		Products:      append([]Product(nil), products...),
		TotalAmount:   total,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		CreatedAt:     createdAt.UTC(),
		Status:        OrderStatusCreated,
	}, nil
}

// Advance returns a copy of the order carrying the target status. Only the
// direct successor of the current status is accepted.
func (o Order) Advance(target OrderStatus) (Order, error) {
	next, ok := o.Status.Next()
	if !ok || next != target {
		return Order{}, fmt.Errorf("%w: %s -> %s", internalErrors.ErrInvalidStatusTransition, o.Status, target)
	}

	advanced := o.Clone()
	advanced.Status = target

	return advanced, nil
}

// Clone returns a copy that shares no memory with o.
func (o Order) Clone() Order {
	c := o
	c.Products = append([]Product(nil), o.Products...)

	return c
}

// ShortID is the id prefix used in human readable messages.
func (o Order) ShortID() string {
	return o.ID.String()[:8]
}
