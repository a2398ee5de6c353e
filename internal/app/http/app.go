package httpapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pipeline_http "github.com/tumbleweedd/fulfillment_pipeline/internal/delivery/http"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

type App struct {
	log        logger.Logger
	httpServer *http.Server
	port       int
}

type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

func NewApp(log logger.Logger, handler *pipeline_http.Handler, port int, timeouts Timeouts) *App {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler.InitRoutes(),
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
	}

	return &App{
		log:        log,
		httpServer: httpServer,
		port:       port,
	}
}

func (a *App) RunWithPanic() {
	if err := a.Run(); err != nil {
		panic(fmt.Sprintf("failed to run http server: %v", err))
	}
}

func (a *App) Run() error {
	const op = "httpapp.run"

	log := a.log.With(logger.String("op", op), logger.Int("port", a.port))

	log.Info("starting http server")

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.stop"

	log := a.log.With(logger.String("op", op))

	log.Info("stopping http server")

	return a.httpServer.Shutdown(ctx)
}
