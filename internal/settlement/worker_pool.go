package settlement

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
)

// WorkerPoolProcessor runs settlement processing on a bounded worker
// pool so a burst of callbacks cannot exhaust database connections
type WorkerPoolProcessor struct {
	base   Processor
	pool   *ants.Pool
	logger *slog.Logger
}

// NewWorkerPoolProcessor wraps a processor with an ants pool
func NewWorkerPoolProcessor(logger *slog.Logger, cfg *config.WorkerPoolConfig, base Processor) (*WorkerPoolProcessor, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Process submits the event to the pool and waits for its outcome, so
// the caller's offset commit still reflects the real result
func (p *WorkerPoolProcessor) Process(ctx context.Context, event *Event) error {
	resultChan := make(chan error, 1)

	if err := p.pool.Submit(func() {
		resultChan <- p.base.Process(ctx, event)
	}); err != nil {
		p.logger.Error("Failed to submit settlement to worker pool",
			"reference", event.Reference,
			"error", err)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the worker pool
func (p *WorkerPoolProcessor) Shutdown() {
	p.logger.Info("Shutting down settlement worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}
