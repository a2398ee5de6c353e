package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) Create(context.Context) (models.Order, error) {
	g.calls.Add(1)
	return models.Order{}, g.err
}

type countingWorker struct {
	def   stage.Definition
	calls atomic.Int32
	block chan struct{}
}

func (w *countingWorker) ProcessOne(ctx context.Context, _ bool) (stage.Result, error) {
	w.calls.Add(1)
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
			return stage.Result{}, ctx.Err()
		}
	}
	return stage.Result{QueueEmpty: true}, nil
}

func (w *countingWorker) Definition() stage.Definition {
	return w.def
}

type panickingWorker struct {
	def   stage.Definition
	calls atomic.Int32
}

func (w *panickingWorker) ProcessOne(context.Context, bool) (stage.Result, error) {
	w.calls.Add(1)
	panic("corrupted order")
}

func (w *panickingWorker) Definition() stage.Definition {
	return w.def
}

func definitions() []stage.Definition {
	return stage.Definitions(queue.DefaultNames(), stage.DefaultDelays())
}

func TestManager_RunsRegisteredJobs(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	gen := &countingGenerator{err: errors.New("queue down")}
	prepare := &countingWorker{def: definitions()[0]}
	ship := &countingWorker{def: definitions()[1]}

	err := m.Register(Schedule{
		Generator: "* * * * * *",
		Stages:    map[stage.Name]string{stage.Prepare: "* * * * * *"},
	}, gen, prepare, ship)
	require.NoError(t, err)

	m.Start()
	require.Eventually(t, func() bool {
		return gen.calls.Load() >= 2 && prepare.calls.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	m.Stop()

	require.Zero(t, ship.calls.Load())
}

func TestManager_SkipsWhileStillRunning(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	slow := &countingWorker{def: definitions()[2], block: make(chan struct{})}
	require.NoError(t, m.AddStage("* * * * * *", slow, false))

	m.Start()
	time.Sleep(2500 * time.Millisecond)
	require.Equal(t, int32(1), slow.calls.Load())

	m.Stop()
}

func TestManager_InvalidSpec(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	err := m.AddGenerator("every minute", &countingGenerator{})
	require.Error(t, err)
}

func TestManager_RecoversPanickingJob(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	broken := &panickingWorker{def: definitions()[0]}
	healthy := &countingWorker{def: definitions()[1]}
	require.NoError(t, m.AddStage("* * * * * *", broken, false))
	require.NoError(t, m.AddStage("* * * * * *", healthy, false))

	m.Start()
	require.Eventually(t, func() bool {
		return broken.calls.Load() >= 2 && healthy.calls.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	m.Stop()
}
