package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/app"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/config"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

func main() {
	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	application, err := app.NewApp(log, &cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create app: %v", err))
	}

	log.Info("pipeline started", logger.Bool("scheduler", cfg.Scheduler.Enabled))

	application.Start()
	go application.HTTPServer.RunWithPanic()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err = application.Stop(ctx); err != nil {
		panic(fmt.Sprintf("failed to stop app: %v", err))
	}

	log.Info("application stopped")
}
