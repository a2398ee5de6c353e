// Package generator produces synthetic orders and feeds them into the first
// queue of the pipeline.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/money"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/slug"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const (
	EmailDomain = "example.com"

	MinProducts = 1
	MaxProducts = 5
	MinPrice    = 50
	MaxPrice    = 5000
	MinQuantity = 1
	MaxQuantity = 3
)

var ProductCatalogue = []string{
	"Laptop Gaming Pro",
	"Wireless Mouse",
	"Mechanical Keyboard",
	`Monitor 27"`,
	"USB-C Hub",
	"Webcam HD",
	"Headphones Bluetooth",
	"SSD 1TB",
	"RAM 16GB DDR5",
	"Graphics Card RTX",
	"Power Supply 750W",
	"PC Case ATX",
	"CPU Cooler",
	"Motherboard Z790",
	"Network Card WiFi 6",
}

var CustomerNames = []string{
	"Jan Kowalski",
	"Anna Nowak",
	"Piotr Wiśniewski",
	"Maria Wójcik",
	"Tomasz Kamiński",
	"Katarzyna Lewandowska",
	"Michał Zieliński",
	"Agnieszka Szymańska",
	"Krzysztof Woźniak",
	"Małgorzata Dąbrowska",
}

type orderSender interface {
	Send(ctx context.Context, queueName string, order models.Order) error
}

type eventAppender interface {
	Append(ctx context.Context, orderID string, eventType models.EventType, message string, serviceName models.ServiceName) (models.OrderEvent, error)
}

type Generator struct {
	log       logger.Logger
	queue     orderSender
	events    eventAppender
	queueName string

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func New(log logger.Logger, queue orderSender, events eventAppender, queueName string) *Generator {
	return NewWithSource(log, queue, events, queueName, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

func NewWithSource(
	log logger.Logger,
	queue orderSender,
	events eventAppender,
	queueName string,
	rnd *rand.Rand,
	now func() time.Time,
) *Generator {
	return &Generator{
		log:       log,
		queue:     queue,
		events:    events,
		queueName: queueName,
		rnd:       rnd,
		now:       now,
	}
}

// Generate builds a random order in the created status. Nothing is sent.
func (g *Generator) Generate() models.Order {
	g.mu.Lock()
	count := g.intn(MinProducts, MaxProducts)
	products := make([]models.Product, 0, count)
	for i := 0; i < count; i++ {
		products = append(products, models.Product{
			ID:        uuid.New(),
			Name:      ProductCatalogue[g.rnd.Intn(len(ProductCatalogue))],
			UnitPrice: decimal.NewFromInt(int64(g.intn(MinPrice, MaxPrice))),
			Quantity:  g.intn(MinQuantity, MaxQuantity),
		})
	}
	customer := CustomerNames[g.rnd.Intn(len(CustomerNames))]
	g.mu.Unlock()

	order, err := models.NewOrder(customer, slug.Email(customer, EmailDomain), products, g.now())
	if err != nil {
		// products are built within the catalogue bounds above
		panic(fmt.Sprintf("generator: %v", err))
	}

	return order
}

// intn returns a value in [lo, hi]. g.mu must be held.
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

// Place sends the order to the orders queue and records OrderCreated. The
// event is not written when the send fails.
func (g *Generator) Place(ctx context.Context, order models.Order) error {
	const op = "services.generator.Place"

	if err := g.queue.Send(ctx, g.queueName, order); err != nil {
		g.log.ErrorContext(ctx, op, logger.String("order_id", order.ID.String()), logger.Err(err))
		return fmt.Errorf("%s: send to %s: %w", op, g.queueName, err)
	}

	if _, err := g.events.Append(ctx, order.ID.String(), models.EventOrderCreated, Describe(order), models.ServiceGenerator); err != nil {
		g.log.ErrorContext(ctx, op, logger.String("order_id", order.ID.String()), logger.Err(err))
		return fmt.Errorf("%s: log event: %w", op, err)
	}

	g.log.InfoContext(ctx, op,
		logger.String("order_id", order.ID.String()),
		logger.String("total", order.TotalAmount.StringFixed(2)),
		logger.Int("products", len(order.Products)),
	)

	return nil
}

func (g *Generator) Create(ctx context.Context) (models.Order, error) {
	order := g.Generate()
	if err := g.Place(ctx, order); err != nil {
		return models.Order{}, err
	}

	return order, nil
}

func Describe(order models.Order) string {
	return fmt.Sprintf("Order #%s created for %s, total %s", order.ShortID(), order.CustomerName, money.FormatPLN(order.TotalAmount))
}
