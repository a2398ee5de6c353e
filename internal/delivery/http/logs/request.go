package logs

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
)

// filterFromQuery reads order_id, event_type, service_name, start_date and
// end_date (RFC 3339), offset and limit.
func filterFromQuery(q url.Values) (models.EventFilter, error) {
	filter := models.EventFilter{
		OrderID:     q.Get("order_id"),
		EventType:   models.EventType(q.Get("event_type")),
		ServiceName: models.ServiceName(q.Get("service_name")),
	}

	var err error
	if filter.StartDate, err = parseTime(q, "start_date"); err != nil {
		return models.EventFilter{}, err
	}
	if filter.EndDate, err = parseTime(q, "end_date"); err != nil {
		return models.EventFilter{}, err
	}
	if filter.Offset, err = parseInt(q, "offset"); err != nil {
		return models.EventFilter{}, err
	}
	if filter.Limit, err = parseInt(q, "limit"); err != nil {
		return models.EventFilter{}, err
	}

	return filter, nil
}

func parseTime(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", internalErrors.ErrInvalidFilter, key, err)
	}

	return &t, nil
}

func parseInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", internalErrors.ErrInvalidFilter, key)
	}

	return n, nil
}
