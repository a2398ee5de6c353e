package cache_impl

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type CacheI[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Add(key K, value V) (evicted bool)
	Remove(key K) (present bool)
}

// TimelineCache keeps the event history of recently viewed orders, newest
// event first. Every Invalidate bumps the generation; a history read before
// the bump is refused by AddIfCurrent.
type TimelineCache struct {
	cache CacheI[string, []models.OrderEvent]
	log   logger.Logger

	mu         sync.Mutex
	generation uint64
}

func NewTimelineCache(cache CacheI[string, []models.OrderEvent], log logger.Logger) *TimelineCache {
	return &TimelineCache{
		cache: cache,
		log:   log,
	}
}

func NewExpirableTimelineCache(size int, ttl time.Duration, log logger.Logger) *TimelineCache {
	return NewTimelineCache(expirable.NewLRU[string, []models.OrderEvent](size, nil, ttl), log)
}

func (c *TimelineCache) Get(orderID string) ([]models.OrderEvent, bool) {
	events, ok := c.cache.Get(orderID)
	if !ok {
		return nil, false
	}

	return append([]models.OrderEvent(nil), events...), true
}

func (c *TimelineCache) Add(orderID string, events []models.OrderEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.add(orderID, events)
}

// Generation must be read before querying the history that is later passed
// to AddIfCurrent.
func (c *TimelineCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// AddIfCurrent stores events only when nothing was invalidated since
// generation was read.
func (c *TimelineCache) AddIfCurrent(orderID string, generation uint64, events []models.OrderEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		c.log.Debug("cache_impl.TimelineCache.AddIfCurrent",
			logger.String("order_id", orderID), logger.String("reason", "stale read"))
		return false
	}

	c.add(orderID, events)

	return true
}

func (c *TimelineCache) Invalidate(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.cache.Remove(orderID)
}

func (c *TimelineCache) add(orderID string, events []models.OrderEvent) {
	if evicted := c.cache.Add(orderID, append([]models.OrderEvent(nil), events...)); evicted {
		c.log.Debug("cache_impl.TimelineCache.Add", logger.String("reason", "evicted oldest timeline"))
	}
}
