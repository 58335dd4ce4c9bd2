package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/commerce/backend/internal/application/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds configuration for the scheduler
type Config struct {
	Interval   time.Duration
	JobTimeout time.Duration
	// Tenants lists the tenant IDs the scheduler sweeps. Tenants not
	// listed here still get their jobs when the cron endpoint is hit.
	Tenants []uuid.UUID
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Interval:   time.Hour,
		JobTimeout: 10 * time.Minute,
	}
}

// OrchestratorFactory builds the job orchestrator for one tenant
type OrchestratorFactory func(tenantID uuid.UUID) *billing.Orchestrator

// Scheduler periodically runs the billing job catalogue for every
// configured tenant. Jobs are idempotent per period, so an overlapping
// cron trigger or a restart mid-sweep cannot double-bill.
type Scheduler struct {
	factory OrchestratorFactory
	config  Config
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new Scheduler
func NewScheduler(factory OrchestratorFactory, config Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		factory: factory,
		config:  config,
		logger:  logger,
	}
}

// Start starts the background sweep loop
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.sweepLoop(ctx)

	s.logger.Info("billing scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("tenants", len(s.config.Tenants)),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("billing scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the full job catalogue for every configured tenant
func (s *Scheduler) Sweep(ctx context.Context) {
	for _, tenantID := range s.config.Tenants {
		if ctx.Err() != nil {
			return
		}
		s.runTenant(ctx, tenantID)
	}
}

func (s *Scheduler) runTenant(ctx context.Context, tenantID uuid.UUID) {
	runCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	results := s.factory(tenantID).RunAll(runCtx)
	for _, result := range results {
		fields := []zap.Field{
			zap.String("tenant_id", tenantID.String()),
			zap.String("job", result.Job),
			zap.Int("processed", result.Processed),
			zap.Duration("duration", result.Duration),
		}
		if result.Success {
			s.logger.Info("billing job completed", fields...)
		} else {
			s.logger.Error("billing job failed",
				append(fields, zap.Strings("errors", result.Errors))...)
		}
	}
}
