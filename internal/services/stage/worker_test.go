package stage

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	mockQueue "github.com/tumbleweedd/fulfillment_pipeline/internal/queue/mocks"
	mockRepository "github.com/tumbleweedd/fulfillment_pipeline/internal/repository/mocks"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

func definition(t *testing.T, name Name) Definition {
	t.Helper()

	d, err := Lookup(Definitions(queue.DefaultNames(), DefaultDelays()), name)
	require.NoError(t, err)

	return d
}

func orderWithStatus(t *testing.T, status models.OrderStatus) models.Order {
	t.Helper()

	order, err := models.NewOrder("Jan Kowalski", "jan.kowalski@example.com", []models.Product{
		{ID: uuid.New(), Name: "SSD 1TB", UnitPrice: decimal.NewFromInt(1234), Quantity: 1},
	}, time.Now())
	require.NoError(t, err)

	for order.Status != status {
		next, _ := order.Status.Next()
		order, err = order.Advance(next)
		require.NoError(t, err)
	}

	return order
}

func newTestWorker(def Definition, q messageQueue, events eventAppender) *Worker {
	w := NewWorker(logger.NewDiscard(), def, q, events, rand.New(rand.NewSource(1)))
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestWorker_ProcessOne(t *testing.T) {
	ctx := context.Background()

	type mockBehavior func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, events *mockRepository.MockEventLog, order models.Order)

	tCases := []struct {
		name         string
		stage        Name
		input        models.OrderStatus
		mockBehavior mockBehavior
		wantStatus   models.OrderStatus
		wantErr      error
	}{
		{
			name:  "prepare forwards then logs then completes",
			stage: Prepare,
			input: models.OrderStatusCreated,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, events *mockRepository.MockEventLog, order models.Order) {
				prepared, _ := order.Advance(models.OrderStatusPrepared)
				gomock.InOrder(
					q.EXPECT().Receive(ctx, queue.DefaultOrdersQueue).Return(msg, true, nil),
					q.EXPECT().Send(ctx, queue.DefaultPreparedQueue, prepared).Return(nil),
					events.EXPECT().Append(ctx, order.ID.String(), models.EventOrderPrepared,
						"Order #"+order.ShortID()+" was prepared for shipping (1234,00 zł)", models.ServicePrepare,
					).Return(models.OrderEvent{}, nil),
					msg.EXPECT().Complete(ctx).Return(nil),
				)
			},
			wantStatus: models.OrderStatusPrepared,
		},
		{
			name:  "ship forwards to the shipped queue",
			stage: Ship,
			input: models.OrderStatusPrepared,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, events *mockRepository.MockEventLog, order models.Order) {
				shipped, _ := order.Advance(models.OrderStatusShipped)
				gomock.InOrder(
					q.EXPECT().Receive(ctx, queue.DefaultPreparedQueue).Return(msg, true, nil),
					q.EXPECT().Send(ctx, queue.DefaultShippedQueue, shipped).Return(nil),
					events.EXPECT().Append(ctx, order.ID.String(), models.EventOrderShipped, gomock.Any(), models.ServiceShip).
						Return(models.OrderEvent{}, nil),
					msg.EXPECT().Complete(ctx).Return(nil),
				)
			},
			wantStatus: models.OrderStatusShipped,
		},
		{
			name:  "invoice is terminal",
			stage: Invoice,
			input: models.OrderStatusShipped,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, events *mockRepository.MockEventLog, order models.Order) {
				gomock.InOrder(
					q.EXPECT().Receive(ctx, queue.DefaultShippedQueue).Return(msg, true, nil),
					events.EXPECT().Append(ctx, order.ID.String(), models.EventInvoiceSent, gomock.Any(), models.ServiceInvoice).
						Return(models.OrderEvent{}, nil),
					msg.EXPECT().Complete(ctx).Return(nil),
				)
			},
			wantStatus: models.OrderStatusInvoiced,
		},
		{
			name:  "forward failure leaves the message uncompleted",
			stage: Prepare,
			input: models.OrderStatusCreated,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, _ *mockRepository.MockEventLog, _ models.Order) {
				q.EXPECT().Receive(ctx, queue.DefaultOrdersQueue).Return(msg, true, nil)
				q.EXPECT().Send(ctx, queue.DefaultPreparedQueue, gomock.Any()).Return(internalErrors.ErrBackendUnavailable)
			},
			wantErr: internalErrors.ErrBackendUnavailable,
		},
		{
			name:  "log failure leaves the message uncompleted",
			stage: Ship,
			input: models.OrderStatusPrepared,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, events *mockRepository.MockEventLog, _ models.Order) {
				q.EXPECT().Receive(ctx, queue.DefaultPreparedQueue).Return(msg, true, nil)
				q.EXPECT().Send(ctx, queue.DefaultShippedQueue, gomock.Any()).Return(nil)
				events.EXPECT().Append(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(models.OrderEvent{}, internalErrors.ErrBackendUnavailable)
			},
			wantErr: internalErrors.ErrBackendUnavailable,
		},
		{
			name:  "order in the wrong status is rejected",
			stage: Invoice,
			input: models.OrderStatusCreated,
			mockBehavior: func(q *mockQueue.MockQueue, msg *mockQueue.MockMessage, _ *mockRepository.MockEventLog, _ models.Order) {
				q.EXPECT().Receive(ctx, queue.DefaultShippedQueue).Return(msg, true, nil)
			},
			wantErr: internalErrors.ErrInvalidStatusTransition,
		},
		{
			name:  "receive failure",
			stage: Prepare,
			input: models.OrderStatusCreated,
			mockBehavior: func(q *mockQueue.MockQueue, _ *mockQueue.MockMessage, _ *mockRepository.MockEventLog, _ models.Order) {
				q.EXPECT().Receive(ctx, queue.DefaultOrdersQueue).Return(nil, false, internalErrors.ErrInvalidConnectionDescriptor)
			},
			wantErr: internalErrors.ErrInvalidConnectionDescriptor,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			ctl := gomock.NewController(t)
			defer ctl.Finish()

			q := mockQueue.NewMockQueue(ctl)
			msg := mockQueue.NewMockMessage(ctl)
			events := mockRepository.NewMockEventLog(ctl)

			order := orderWithStatus(t, tCase.input)
			msg.EXPECT().Order().Return(order).AnyTimes()
			msg.EXPECT().ID().Return("msg-1").AnyTimes()

			tCase.mockBehavior(q, msg, events, order)

			result, err := newTestWorker(definition(t, tCase.stage), q, events).ProcessOne(ctx, false)
			if tCase.wantErr != nil {
				require.ErrorIs(t, err, tCase.wantErr)
				return
			}

			require.NoError(t, err)
			require.True(t, result.Processed)
			require.False(t, result.QueueEmpty)
			require.Equal(t, order.ID.String(), result.Order.ID)
			require.Equal(t, tCase.wantStatus, result.Order.Status)
		})
	}
}

func TestWorker_EmptyQueue(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	q := mockQueue.NewMockQueue(ctl)
	events := mockRepository.NewMockEventLog(ctl)

	q.EXPECT().Receive(gomock.Any(), queue.DefaultShippedQueue).Return(nil, false, nil)

	result, err := newTestWorker(definition(t, Invoice), q, events).ProcessOne(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, Result{QueueEmpty: true}, result)
}

func TestWorker_SimulationIsCancellable(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	q := mockQueue.NewMockQueue(ctl)
	msg := mockQueue.NewMockMessage(ctl)
	events := mockRepository.NewMockEventLog(ctl)

	q.EXPECT().Receive(gomock.Any(), queue.DefaultOrdersQueue).Return(msg, true, nil)
	msg.EXPECT().Order().Return(orderWithStatus(t, models.OrderStatusCreated))

	def := definition(t, Prepare)
	def.Delay = DelayRange{Min: time.Hour, Max: time.Hour}
	w := NewWorker(logger.NewDiscard(), def, q, events, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.ProcessOne(ctx, true)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWorker_SimulatedDelayWithinRange(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	q := mockQueue.NewMockQueue(ctl)
	msg := mockQueue.NewMockMessage(ctl)
	events := mockRepository.NewMockEventLog(ctl)

	q.EXPECT().Receive(gomock.Any(), gomock.Any()).Return(msg, true, nil)
	msg.EXPECT().Order().Return(orderWithStatus(t, models.OrderStatusShipped))
	events.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(models.OrderEvent{}, nil)
	msg.EXPECT().Complete(gomock.Any()).Return(nil)

	def := definition(t, Invoice)
	w := newTestWorker(def, q, events)

	var slept time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	result, err := w.ProcessOne(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, slept, result.ProcessingTime)
	require.GreaterOrEqual(t, slept, def.Delay.Min)
	require.LessOrEqual(t, slept, def.Delay.Max)
	require.InDelta(t, slept.Seconds(), result.Order.ProcessingTime, 1e-9)
}

func TestDelayRange_Pick(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	tCases := []struct {
		name  string
		delay DelayRange
	}{
		{name: "default", delay: DefaultDelayRange()},
		{name: "fixed", delay: DelayRange{Min: time.Second, Max: time.Second}},
		{name: "inverted", delay: DelayRange{Min: 2 * time.Second, Max: time.Second}},
		{name: "zero", delay: DelayRange{}},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				d := tCase.delay.Pick(rnd)
				require.GreaterOrEqual(t, d, tCase.delay.Min)
				if tCase.delay.Max >= tCase.delay.Min {
					require.LessOrEqual(t, d, tCase.delay.Max)
				}
			}
		})
	}
}

func TestParseName(t *testing.T) {
	for _, name := range Names {
		got, err := ParseName(string(name))
		require.NoError(t, err)
		require.Equal(t, name, got)
	}

	_, err := ParseName("refund")
	require.ErrorIs(t, err, internalErrors.ErrUnknownStage)
}
