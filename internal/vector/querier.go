package vector

import (
	"context"
	"time"
)

// Querier defines the storage operations the vector layer needs.
// Defined by the consumer, not the provider, so Store, QuotaChecker,
// LinearIndex, and Cleaner can be tested against in-memory fakes.
type Querier interface {
	// InsertVector persists a new vector row.
	InsertVector(ctx context.Context, v ContentVector) error

	// UpdateVector rewrites an existing row identified by v.ID.
	UpdateVector(ctx context.Context, v ContentVector) error

	// FirstByContentID returns the first vector matching (userID, contentID),
	// reporting whether one exists.
	FirstByContentID(ctx context.Context, userID, contentID string) (ContentVector, bool, error)

	// ListByUser returns all of a user's vectors, optionally pre-filtered by
	// content type (empty = all).
	ListByUser(ctx context.Context, userID string, contentType ContentType) ([]ContentVector, error)

	// CountUserSince counts a user's vectors created at or after the instant.
	CountUserSince(ctx context.Context, userID string, since time.Time) (int, error)

	// CountAllSince counts vectors across all users created at or after the instant.
	CountAllSince(ctx context.Context, since time.Time) (int, error)

	// DeleteOldLowValue deletes, in one batch, every vector of the user
	// created before cutoff AND with performance below maxPerformance.
	// Returns the number of rows deleted.
	DeleteOldLowValue(ctx context.Context, userID string, cutoff time.Time, maxPerformance float64) (int, error)

	// ListUserIDs returns the distinct user IDs that own vectors.
	ListUserIDs(ctx context.Context) ([]string, error)

	// GetRateOverride returns the user's quota override record, reporting
	// whether one exists.
	GetRateOverride(ctx context.Context, userID string) (RateOverride, bool, error)
}
