// Package postgres is the durable event log. Events are stored in the
// order_events table, hash-partitioned by order id.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/databases/postgres"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type database interface {
	DB(ctx context.Context) (*sqlx.DB, error)
}

type Log struct {
	log logger.Logger
	db  database
}

func New(log logger.Logger, db database) *Log {
	return &Log{
		log: log,
		db:  db,
	}
}

func (l *Log) conn(ctx context.Context) (*sqlx.DB, error) {
	const op = "repository.event.postgres.conn"

	db, err := l.db.DB(ctx)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidDSN) {
			return nil, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrInvalidConnectionDescriptor, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	return db, nil
}

const eventColumns = `event_id, order_id, event_type, message, created_at, service_name`

func (l *Log) Append(
	ctx context.Context,
	orderID string,
	eventType models.EventType,
	message string,
	serviceName models.ServiceName,
) (models.OrderEvent, error) {
	const op = "repository.event.postgres.Append"

	db, err := l.conn(ctx)
	if err != nil {
		return models.OrderEvent{}, err
	}

	const query = `INSERT INTO order_events (event_id, order_id, event_type, message, service_name)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + eventColumns

	var event models.OrderEvent
	if err = db.GetContext(ctx, &event, query, uuid.New(), orderID, eventType, message, serviceName); err != nil {
		l.log.ErrorContext(ctx, op, logger.String("order_id", orderID), logger.Err(err))
		return models.OrderEvent{}, fmt.Errorf("%s: insert: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}
	event.Timestamp = event.Timestamp.UTC()

	return event, nil
}

func (l *Log) Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error) {
	const op = "repository.event.postgres.Query"

	db, err := l.conn(ctx)
	if err != nil {
		return nil, err
	}

	query, args := buildQuery(filter)

	events := make([]models.OrderEvent, 0)
	if err = db.SelectContext(ctx, &events, query, args...); err != nil {
		l.log.ErrorContext(ctx, op, logger.Err(err))
		return nil, fmt.Errorf("%s: select: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	for i := range events {
		events[i].Timestamp = events[i].Timestamp.UTC()
	}

	return events, nil
}

// buildQuery turns the filter into a parameterized select. seq breaks ties
// between events written in the same microsecond.
func buildQuery(filter models.EventFilter) (string, []any) {
	filter = filter.WithDefaults()

	var (
		conditions []string
		args       []any
	)

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, strings.Replace(condition, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.OrderID != "" {
		add("order_id = ?", filter.OrderID)
	}
	if filter.EventType != "" {
		add("event_type = ?", string(filter.EventType))
	}
	if filter.ServiceName != "" {
		add("service_name = ?", string(filter.ServiceName))
	}
	if filter.StartDate != nil {
		add("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= ?", *filter.EndDate)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + eventColumns + " FROM order_events")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, filter.Limit, filter.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	return sb.String(), args
}

func (l *Log) RecentCount(ctx context.Context, window time.Duration) (int, error) {
	const op = "repository.event.postgres.RecentCount"

	db, err := l.conn(ctx)
	if err != nil {
		return 0, err
	}

	const query = `SELECT count(*) FROM order_events WHERE created_at >= now() - make_interval(secs => $1)`

	var count int
	if err = db.GetContext(ctx, &count, query, window.Seconds()); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	return count, nil
}

func (l *Log) Count(ctx context.Context) (int, error) {
	const op = "repository.event.postgres.Count"

	db, err := l.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	if err = db.GetContext(ctx, &count, `SELECT count(*) FROM order_events`); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, internalErrors.ErrBackendUnavailable, err)
	}

	return count, nil
}

// Reset removes every event. Only tests call it.
func (l *Log) Reset(ctx context.Context) error {
	const op = "repository.event.postgres.Reset"

	db, err := l.conn(ctx)
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx, `TRUNCATE order_events`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
