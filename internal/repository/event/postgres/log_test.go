package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/databases/postgres"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

const selectPrefix = "SELECT event_id, order_id, event_type, message, created_at, service_name FROM order_events"

func TestBuildQuery(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tCases := []struct {
		name      string
		filter    models.EventFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no criteria uses default pagination",
			filter:    models.EventFilter{},
			wantQuery: selectPrefix + " ORDER BY created_at DESC, seq DESC LIMIT $1 OFFSET $2",
			wantArgs:  []any{models.DefaultEventLimit, 0},
		},
		{
			name:      "order id",
			filter:    models.EventFilter{OrderID: "abc", Limit: 10, Offset: 5},
			wantQuery: selectPrefix + " WHERE order_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3",
			wantArgs:  []any{"abc", 10, 5},
		},
		{
			name: "every criteria",
			filter: models.EventFilter{
				OrderID:     "abc",
				EventType:   models.EventOrderShipped,
				ServiceName: models.ServiceShip,
				StartDate:   &start,
				EndDate:     &end,
			},
			wantQuery: selectPrefix +
				" WHERE order_id = $1 AND event_type = $2 AND service_name = $3 AND created_at >= $4 AND created_at <= $5" +
				" ORDER BY created_at DESC, seq DESC LIMIT $6 OFFSET $7",
			wantArgs: []any{"abc", "OrderShipped", "ship", start, end, models.DefaultEventLimit, 0},
		},
		{
			name:      "dates only",
			filter:    models.EventFilter{EndDate: &end, Offset: -3},
			wantQuery: selectPrefix + " WHERE created_at <= $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3",
			wantArgs:  []any{end, models.DefaultEventLimit, 0},
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			query, args := buildQuery(tCase.filter)
			require.Equal(t, tCase.wantQuery, query)
			require.Equal(t, tCase.wantArgs, args)
		})
	}
}

type failingDB struct {
	err error
}

func (f failingDB) DB(context.Context) (*sqlx.DB, error) {
	return nil, f.err
}

func TestLog_ConnectionErrors(t *testing.T) {
	tCases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "malformed descriptor", err: postgres.ErrInvalidDSN, wantErr: internalErrors.ErrInvalidConnectionDescriptor},
		{name: "unreachable", err: errors.New("connection refused"), wantErr: internalErrors.ErrBackendUnavailable},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			l := New(logger.NewDiscard(), failingDB{err: tCase.err})
			ctx := context.Background()

			_, err := l.Append(ctx, "order", models.EventOrderCreated, "", models.ServiceGenerator)
			require.ErrorIs(t, err, tCase.wantErr)

			_, err = l.Query(ctx, models.EventFilter{})
			require.ErrorIs(t, err, tCase.wantErr)

			_, err = l.RecentCount(ctx, time.Minute)
			require.ErrorIs(t, err, tCase.wantErr)
		})
	}
}
