// Package stats aggregates queue depths and event throughput for the
// dashboard.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
)

const RecentWindow = time.Minute

type depthReader interface {
	Depth(ctx context.Context, queueName string) (int, error)
	Guarantee() queue.DeliveryGuarantee
}

type recentCounter interface {
	RecentCount(ctx context.Context, window time.Duration) (int, error)
}

type Service struct {
	queue            depthReader
	events           recentCounter
	names            queue.Names
	usingMockStorage bool
}

// New takes usingMockStorage from the backend selection: true when either the
// queue or the event log runs on the in-process backend.
func New(queue depthReader, events recentCounter, names queue.Names, usingMockStorage bool) *Service {
	return &Service{
		queue:            queue,
		events:           events,
		names:            names,
		usingMockStorage: usingMockStorage,
	}
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	const op = "services.stats.Stats"

	var stats models.Stats

	g, gCtx := errgroup.WithContext(ctx)

	depth := func(name string, dst *int) func() error {
		return func() error {
			n, err := s.queue.Depth(gCtx, name)
			if err != nil {
				return fmt.Errorf("depth of %s: %w", name, err)
			}
			*dst = n
			return nil
		}
	}

	g.Go(depth(s.names.Orders, &stats.OrdersQueue))
	g.Go(depth(s.names.Prepared, &stats.PreparedQueue))
	g.Go(depth(s.names.Shipped, &stats.ShippedQueue))
	g.Go(func() error {
		n, err := s.events.RecentCount(gCtx, RecentWindow)
		if err != nil {
			return fmt.Errorf("recent events: %w", err)
		}
		stats.EventsLastMinute = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	stats.UsingMockStorage = s.usingMockStorage
	stats.DeliveryGuarantee = string(s.queue.Guarantee())

	return stats, nil
}
