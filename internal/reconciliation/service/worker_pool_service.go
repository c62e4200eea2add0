package service

import (
	"context"
	"log/slog"

	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolReconciliationService bounds concurrent reconciliations with an ants pool
type WorkerPoolReconciliationService struct {
	baseService ReconciliationService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type poolResult struct {
	outcome Outcome
	err     error
}

func NewWorkerPoolReconciliationService(
	baseService ReconciliationService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconciliationService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReconciliationService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Reconcile runs the event on a pool worker and waits for its outcome.
func (s *WorkerPoolReconciliationService) Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (Outcome, error) {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Submitting charge outcome to worker pool", "charge_ref", event.ChargeRef)

	resultChan := make(chan poolResult, 1)
	eventCopy := *event

	err := s.pool.Submit(func() {
		outcome, err := s.baseService.Reconcile(ctx, &eventCopy)
		resultChan <- poolResult{outcome: outcome, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit charge outcome to worker pool",
			"charge_ref", event.ChargeRef,
			"error", err,
		)
		return "", err
	}

	result := <-resultChan
	return result.outcome, result.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolReconciliationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReconciliationService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReconciliationService) Capacity() int {
	return s.pool.Cap()
}
