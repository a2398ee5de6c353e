package queue

const (
	DefaultOrdersQueue   = "orders-queue"
	DefaultPreparedQueue = "prepared-orders-queue"
	DefaultShippedQueue  = "shipped-orders-queue"
)

// Names are the three queues between the pipeline stages.
type Names struct {
	Orders   string `yaml:"orders" env:"ORDERS_QUEUE_NAME" env-default:"orders-queue"`
	Prepared string `yaml:"prepared" env:"PREPARED_QUEUE_NAME" env-default:"prepared-orders-queue"`
	Shipped  string `yaml:"shipped" env:"SHIPPED_QUEUE_NAME" env-default:"shipped-orders-queue"`
}

func DefaultNames() Names {
	return Names{
		Orders:   DefaultOrdersQueue,
		Prepared: DefaultPreparedQueue,
		Shipped:  DefaultShippedQueue,
	}
}

func (n Names) All() []string {
	return []string{n.Orders, n.Prepared, n.Shipped}
}
