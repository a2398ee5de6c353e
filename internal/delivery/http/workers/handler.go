package workers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/http/response"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type stageRunner interface {
	ProcessOne(ctx context.Context, name stage.Name, simulate bool) (stage.Result, error)
}

type Handler struct {
	log logger.Logger

	stageRunner stageRunner
}

func NewHandler(log logger.Logger, stageRunner stageRunner) *Handler {
	return &Handler{
		log:         log,
		stageRunner: stageRunner,
	}
}

// Process handles POST /api/workers/{stage}. Simulation is on unless
// simulate=false is passed.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.workers.Process"

	name, err := stage.ParseName(chi.URLParam(r, "stage"))
	if err != nil {
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	simulate := r.URL.Query().Get("simulate") != "false"

	result, err := h.stageRunner.ProcessOne(r.Context(), name, simulate)
	if err != nil {
		h.log.ErrorContext(r.Context(), op, logger.String("stage", string(name)), logger.Err(err))
		_ = response.Fail(w, response.StatusFor(err), err)
		return
	}

	if err = response.OK(w, http.StatusOK, result); err != nil {
		h.log.ErrorContext(r.Context(), op, logger.String("reason", "encode response"), logger.Err(err))
	}
}
