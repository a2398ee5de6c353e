package stats

import (
	"context"
	"net/http"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/domain/models"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/http/response"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type statsProvider interface {
	Stats(ctx context.Context) (models.Stats, error)
}

type Handler struct {
	log logger.Logger

	statsProvider statsProvider
}

func NewHandler(log logger.Logger, statsProvider statsProvider) *Handler {
	return &Handler{
		log:           log,
		statsProvider: statsProvider,
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.stats.Get"

	stats, err := h.statsProvider.Stats(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	if err = response.OK(w, http.StatusOK, stats); err != nil {
		h.log.ErrorContext(r.Context(), op, logger.String("reason", "encode response"), logger.Err(err))
	}
}
