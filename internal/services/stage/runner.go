package stage

import (
	"context"
	"fmt"

	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
)

// Runner dispatches a process-one request to the worker of the named stage.
type Runner struct {
	workers map[Name]*Worker
}

func NewRunner(workers ...*Worker) *Runner {
	r := &Runner{workers: make(map[Name]*Worker, len(workers))}
	for _, w := range workers {
		r.workers[w.Definition().Name] = w
	}

	return r
}

func (r *Runner) ProcessOne(ctx context.Context, name Name, simulate bool) (Result, error) {
	w, ok := r.workers[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", internalErrors.ErrUnknownStage, name)
	}

	return w.ProcessOne(ctx, simulate)
}
