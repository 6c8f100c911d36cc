package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brandloom/brandloom/internal/sysconfig"
)

// Cleaner deletes aged, low-value vectors per the retention policy.
//
// A vector is eligible only when BOTH conditions hold: older than the
// retention window AND performing below the configured floor. High
// performers are kept regardless of age.
type Cleaner struct {
	queries Querier
	config  *sysconfig.Service
	logger  *slog.Logger

	now func() time.Time // overridable in tests
}

// NewCleaner creates a cleanup runner.
func NewCleaner(queries Querier, config *sysconfig.Service, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		queries: queries,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// CleanupStats summarizes a cleanup run across users.
type CleanupStats struct {
	TotalCleaned   int `json:"totalCleaned"`
	UsersProcessed int `json:"usersProcessed"`
}

// CleanupUser deletes the user's aged, low-performing vectors in one atomic
// batch. retentionDaysOverride > 0 replaces the configured retention window.
// No-ops when cleanup is disabled.
func (c *Cleaner) CleanupUser(ctx context.Context, userID string, retentionDaysOverride int) (int, error) {
	cfg := c.config.Load(ctx).VectorCleanup
	if !cfg.Enabled {
		c.logger.Debug("vector cleanup disabled, skipping", "user_id", userID)
		return 0, nil
	}

	retentionDays := cfg.RetentionDays
	if retentionDaysOverride > 0 {
		retentionDays = retentionDaysOverride
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}

	threshold := cfg.MinPerformanceThreshold
	if threshold <= 0 {
		threshold = 0.3
	}

	cutoff := c.now().AddDate(0, 0, -retentionDays)
	deleted, err := c.queries.DeleteOldLowValue(ctx, userID, cutoff, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleaning up vectors for user %q: %w", userID, err)
	}

	if deleted > 0 {
		c.logger.Info("cleaned up vectors",
			"user_id", userID,
			"deleted", deleted,
			"retention_days", retentionDays,
			"performance_floor", threshold)
	}
	return deleted, nil
}

// CleanupAll runs CleanupUser for every known user sequentially.
// One user's failure is logged and skipped, never aborting the loop, and a
// failing user is not retried within the same run.
func (c *Cleaner) CleanupAll(ctx context.Context) (CleanupStats, error) {
	userIDs, err := c.queries.ListUserIDs(ctx)
	if err != nil {
		return CleanupStats{}, fmt.Errorf("listing users for cleanup: %w", err)
	}

	var stats CleanupStats
	for _, userID := range userIDs {
		deleted, err := c.CleanupUser(ctx, userID, 0)
		if err != nil {
			c.logger.Warn("per-user cleanup failed, continuing",
				"user_id", userID, "error", err)
			continue
		}
		stats.TotalCleaned += deleted
		stats.UsersProcessed++
	}

	c.logger.Info("cleanup run completed",
		"users_processed", stats.UsersProcessed,
		"total_cleaned", stats.TotalCleaned)
	return stats, nil
}
