// Command stage processes a single message of one pipeline stage and prints
// the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/app"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/config"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

func main() {
	var stageName string
	var simulate bool

	flag.StringVar(&stageName, "stage", "", "stage to run: prepare, ship or invoice")
	flag.BoolVar(&simulate, "simulate", true, "sleep for the stage delay before completing")

	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	name, err := stage.ParseName(stageName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if err = requireSharedQueue(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline := app.NewPipeline(log, &cfg)

	result, err := pipeline.Runner.ProcessOne(ctx, name, simulate)
	if closeErr := pipeline.Close(); closeErr != nil {
		log.Error("failed to close backends", logger.Err(closeErr))
	}
	if err != nil {
		log.Error("stage failed", logger.String("stage", string(name)), logger.Err(err))
		os.Exit(1)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err = out.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}

// requireSharedQueue refuses the in-process queue: a fresh process has nothing
// queued, so every run would report an empty queue.
func requireSharedQueue(cfg *config.Config) error {
	if cfg.QueueBackend() == config.BackendMock {
		return errors.New("stage: the queue backend resolved to the in-process mock, configure kafka or set storage.mode=real")
	}

	return nil
}
