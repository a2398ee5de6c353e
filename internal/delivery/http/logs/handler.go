package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/http/response"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/events"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type eventService interface {
	Append(ctx context.Context, in events.AppendInput) (models.OrderEvent, error)
	Query(ctx context.Context, filter models.EventFilter) ([]models.OrderEvent, error)
	Timeline(ctx context.Context, orderID string) ([]models.OrderEvent, error)
}

type Handler struct {
	log logger.Logger

	eventService eventService
}

func NewHandler(log logger.Logger, eventService eventService) *Handler {
	return &Handler{
		log:          log,
		eventService: eventService,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.logs.List"

	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		_ = response.Fail(w, http.StatusBadRequest, err)
		return
	}

	found, err := h.eventService.Query(r.Context(), filter)
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	h.write(w, r, op, http.StatusOK, found)
}

func (h *Handler) Append(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.logs.Append"

	var request events.AppendInput
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		_ = response.Fail(w, http.StatusBadRequest, fmt.Errorf("%w: %w", internalErrors.ErrInvalidEvent, err))
		return
	}

	event, err := h.eventService.Append(r.Context(), request)
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	h.write(w, r, op, http.StatusCreated, event)
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.logs.Timeline"

	timeline, err := h.eventService.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	h.write(w, r, op, http.StatusOK, timeline)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, op string, status int, data any) {
	if err := response.OK(w, status, data); err != nil {
		h.log.ErrorContext(r.Context(), op, logger.String("reason", "encode response"), logger.Err(err))
	}
}
