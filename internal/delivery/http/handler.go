package pipeline_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/logs"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/orders/generate"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/stats"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http/workers"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/lib/http/response"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type Handler struct {
	log logger.Logger

	generate *generate.Handler
	workers  *workers.Handler
	stats    *stats.Handler
	logs     *logs.Handler
}

func NewHandler(
	log logger.Logger,
	generateHandler *generate.Handler,
	workersHandler *workers.Handler,
	statsHandler *stats.Handler,
	logsHandler *logs.Handler,
) *Handler {
	return &Handler{
		log:      log,
		generate: generateHandler,
		workers:  workersHandler,
		stats:    statsHandler,
		logs:     logsHandler,
	}
}

func (h *Handler) InitRoutes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = response.OK(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Route("/api", func(r chi.Router) {
		r.Post("/orders/generate", h.generate.Generate)
		r.Get("/orders/{id}/events", h.logs.Timeline)

		r.Post("/workers/{stage}", h.workers.Process)

		r.Get("/queues/stats", h.stats.Get)

		r.Get("/logs", h.logs.List)
		r.Post("/logs", h.logs.Append)
	})

	return mux
}
