// Package scheduler drives the periodic vector cleanup.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/brandloom/brandloom/internal/vector"
)

// DefaultInterval is the cleanup cadence when none is configured.
const DefaultInterval = 7 * 24 * time.Hour

// Cleaner is the subset of the engine the scheduler invokes.
type Cleaner interface {
	CleanupAllUsersVectors(ctx context.Context) (vector.CleanupStats, error)
}

// Scheduler runs the retention policy across all users on a fixed ticker.
type Scheduler struct {
	cleaner  Cleaner
	interval time.Duration
	logger   *slog.Logger
}

// New creates a cleanup scheduler. interval <= 0 uses DefaultInterval.
func New(cleaner Cleaner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled, invoking a full cleanup on each tick.
// Callers must track the goroutine with a WaitGroup.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("cleanup scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	stats, err := s.cleaner.CleanupAllUsersVectors(ctx)
	if err != nil {
		s.logger.Warn("scheduled cleanup failed", "error", err)
		return
	}
	if stats.TotalCleaned > 0 {
		s.logger.Info("scheduled cleanup removed vectors",
			"deleted", stats.TotalCleaned,
			"users", stats.UsersProcessed)
	}
}
