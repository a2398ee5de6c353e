package generate

import (
	"context"
	"net/http"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/http/response"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context) (models.Order, error)
}

type Handler struct {
	log logger.Logger

	orderCreator orderCreator
}

func NewHandler(log logger.Logger, orderCreator orderCreator) *Handler {
	return &Handler{
		log:          log,
		orderCreator: orderCreator,
	}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.orders.generate.Generate"

	order, err := h.orderCreator.Create(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	if err = response.OK(w, http.StatusCreated, order); err != nil {
		h.log.ErrorContext(r.Context(), op, logger.String("reason", "encode response"), logger.Err(err))
	}
}
