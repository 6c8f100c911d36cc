package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brandloom/brandloom/internal/sysconfig"
)

// ErrRateLimited marks a write rejected by the embedding quota. It is the
// only engine error that propagates to callers on the write path; check it
// with errors.Is.
var ErrRateLimited = errors.New("embedding rate limit exceeded")

// Hard fallback quotas when the runtime configuration carries no user limits.
const (
	fallbackUserMaxPerHour = 50
	fallbackUserMaxPerDay  = 500
)

// QuotaDecision is the outcome of a quota check.
type QuotaDecision struct {
	Allowed bool
	Reason  string // human-readable, set when rejected
}

// QuotaChecker enforces per-user and global embedding quotas.
//
// Quotas are derived from the vector store's own write history: the check
// counts rows created within the trailing hour and trailing 24 hours rather
// than maintaining separate counters. The check-then-write sequence is not
// atomic; two concurrent writes for one user can both pass before either
// persists. That transient over-quota burst is accepted (best-effort
// enforcement), so no lock is taken here.
//
// Any error during checking fails open: enrichment must never be blocked by
// quota bookkeeping being unavailable.
type QuotaChecker struct {
	queries Querier
	config  *sysconfig.Service
	logger  *slog.Logger

	now func() time.Time // overridable in tests
}

// NewQuotaChecker creates a quota checker.
func NewQuotaChecker(queries Querier, config *sysconfig.Service, logger *slog.Logger) *QuotaChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaChecker{
		queries: queries,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Check decides whether userID may generate another embedding now.
func (q *QuotaChecker) Check(ctx context.Context, userID string) QuotaDecision {
	cfg := q.config.Load(ctx).RateLimiting
	if !cfg.Enabled {
		return QuotaDecision{Allowed: true}
	}

	maxPerHour, maxPerDay := q.effectiveLimits(ctx, userID, cfg)

	now := q.now()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	hourCount, err := q.queries.CountUserSince(ctx, userID, hourAgo)
	if err != nil {
		q.logger.Warn("quota check failed, allowing write", "user_id", userID, "error", err)
		return QuotaDecision{Allowed: true}
	}
	if hourCount >= maxPerHour {
		return QuotaDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("hourly embedding limit reached (%d/%d)", hourCount, maxPerHour),
		}
	}

	dayCount, err := q.queries.CountUserSince(ctx, userID, dayAgo)
	if err != nil {
		q.logger.Warn("quota check failed, allowing write", "user_id", userID, "error", err)
		return QuotaDecision{Allowed: true}
	}
	if dayCount >= maxPerDay {
		return QuotaDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily embedding limit reached (%d/%d)", dayCount, maxPerDay),
		}
	}

	// Global quotas protect the provider budget across all users.
	if cfg.GlobalMaxPerHour > 0 {
		globalHour, err := q.queries.CountAllSince(ctx, hourAgo)
		if err != nil {
			q.logger.Warn("global quota check failed, allowing write", "error", err)
			return QuotaDecision{Allowed: true}
		}
		if globalHour >= cfg.GlobalMaxPerHour {
			return QuotaDecision{
				Allowed: false,
				Reason:  fmt.Sprintf("global hourly embedding limit reached (%d/%d)", globalHour, cfg.GlobalMaxPerHour),
			}
		}
	}
	if cfg.GlobalMaxPerDay > 0 {
		globalDay, err := q.queries.CountAllSince(ctx, dayAgo)
		if err != nil {
			q.logger.Warn("global quota check failed, allowing write", "error", err)
			return QuotaDecision{Allowed: true}
		}
		if globalDay >= cfg.GlobalMaxPerDay {
			return QuotaDecision{
				Allowed: false,
				Reason:  fmt.Sprintf("global daily embedding limit reached (%d/%d)", globalDay, cfg.GlobalMaxPerDay),
			}
		}
	}

	return QuotaDecision{Allowed: true}
}

// effectiveLimits resolves the user's hourly/daily limits: per-user override
// when opted in, else the global user limits, else hard fallbacks.
func (q *QuotaChecker) effectiveLimits(ctx context.Context, userID string, cfg sysconfig.RateLimiting) (int, int) {
	maxPerHour := cfg.UserMaxPerHour
	maxPerDay := cfg.UserMaxPerDay

	override, ok, err := q.queries.GetRateOverride(ctx, userID)
	if err != nil {
		q.logger.Warn("rate override lookup failed, using configured limits",
			"user_id", userID, "error", err)
	} else if ok && override.CustomLimits {
		if override.MaxPerHour > 0 {
			maxPerHour = override.MaxPerHour
		}
		if override.MaxPerDay > 0 {
			maxPerDay = override.MaxPerDay
		}
	}

	if maxPerHour <= 0 {
		maxPerHour = fallbackUserMaxPerHour
	}
	if maxPerDay <= 0 {
		maxPerDay = fallbackUserMaxPerDay
	}
	return maxPerHour, maxPerDay
}
