package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/repositories"
)

const (
	// DefaultTimeoutWindow is how long a request may stay PENDING before the
	// sweeper escalates it to UNRESOLVED.
	DefaultTimeoutWindow = 24 * time.Hour

	// DefaultSweepInterval is the scheduler period between sweeps.
	DefaultSweepInterval = time.Hour
)

// SweepService escalates stale PENDING help requests to UNRESOLVED. The
// underlying write re-checks status per row, so a request resolved between a
// sweep's selection and its write is never clobbered back to UNRESOLVED.
type SweepService interface {
	// Sweep transitions every request PENDING for longer than the timeout
	// window. Returns the number of requests transitioned.
	Sweep(ctx context.Context) (int64, error)

	// RunScheduler starts a background goroutine that sweeps immediately,
	// then on the given interval. Per-tick errors are logged and never stop
	// the loop. Cancel the context to stop the scheduler.
	RunScheduler(ctx context.Context, interval time.Duration)
}

type sweepService struct {
	repo   repositories.HelpRequestRepository
	window time.Duration
	logger *zap.Logger
}

// NewSweepService creates a sweep service with the given timeout window.
// A non-positive window falls back to DefaultTimeoutWindow.
func NewSweepService(
	repo repositories.HelpRequestRepository,
	window time.Duration,
	logger *zap.Logger,
) SweepService {
	if window <= 0 {
		window = DefaultTimeoutWindow
	}
	return &sweepService{
		repo:   repo,
		window: window,
		logger: logger.Named("sweeper"),
	}
}

var _ SweepService = (*sweepService)(nil)

func (s *sweepService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.window)

	count, err := s.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info("Swept stale help requests to UNRESOLVED",
			zap.Int64("count", count),
			zap.Duration("window", s.window))
	}

	return count, nil
}

// RunScheduler runs one sweep at startup, then on each tick.
func (s *sweepService) RunScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		s.logger.Info("Sweep scheduler started",
			zap.Duration("interval", interval),
			zap.Duration("window", s.window))

		s.sweepTick(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Sweep scheduler stopped")
				return
			case <-ticker.C:
				s.sweepTick(ctx)
			}
		}
	}()
}

func (s *sweepService) sweepTick(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("Sweep failed", zap.Error(err))
	}
}
