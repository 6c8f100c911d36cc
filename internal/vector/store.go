package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Embedder turns text into a fixed-length vector. Implementations absorb
// provider failures and degrade to a zero vector; Embed never fails.
// Defined here because the store is the consumer.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Store is the write path for content vectors.
//
// Error contract (deliberately asymmetric): a quota rejection on Put is the
// one failure that propagates, wrapped around ErrRateLimited, because callers
// may want to surface "you've hit your embedding quota" to the end user.
// Every other failure is logged and absorbed so enrichment never blocks
// primary content generation.
type Store struct {
	queries  Querier
	embedder Embedder
	quota    *QuotaChecker
	logger   *slog.Logger

	now func() time.Time // overridable in tests
}

// NewStore creates a vector store.
func NewStore(queries Querier, embedder Embedder, quota *QuotaChecker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		quota:    quota,
		logger:   logger,
		now:      time.Now,
	}
}

// PutRequest describes a new vector to persist.
type PutRequest struct {
	UserID           string
	ContentType      ContentType
	ContentID        string
	TextContent      string
	Metadata         Metadata
	SourceCollection string
	SourceDocID      string
}

// Put embeds and persists a new content vector.
//
// The quota check runs before the embedding call so rejected writes never
// spend provider budget. Persistence failures after that point are logged
// and absorbed. Note the check-then-write gap described on QuotaChecker.
func (s *Store) Put(ctx context.Context, req PutRequest) error {
	decision := s.quota.Check(ctx, req.UserID)
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrRateLimited, decision.Reason)
	}

	embedding := s.embedder.Embed(ctx, req.TextContent)

	now := s.now()
	req.Metadata.Performance = Clamp01(req.Metadata.Performance)
	v := ContentVector{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		ContentType:      req.ContentType,
		ContentID:        req.ContentID,
		Embedding:        embedding,
		TextContent:      req.TextContent,
		Metadata:         req.Metadata,
		SourceCollection: req.SourceCollection,
		SourceDocID:      req.SourceDocID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.queries.InsertVector(ctx, v); err != nil {
		s.logger.Warn("vector insert failed, absorbed",
			"user_id", req.UserID,
			"content_id", req.ContentID,
			"error", err)
		return nil
	}

	s.logger.Debug("vector stored",
		"user_id", req.UserID,
		"content_type", req.ContentType,
		"content_id", req.ContentID)
	return nil
}

// UpdateByContentID re-embeds textContent and merges the metadata patch onto
// the first vector matching (userID, contentID), bumping its version.
//
// Silently no-ops when no vector exists; reports whether an update happened.
// All failures are logged and absorbed. Concurrent updates of the same
// contentID can lose one write (read-modify-write without a lock); that is
// acceptable because updates are idempotent re-embeddings of the same
// logical content.
func (s *Store) UpdateByContentID(ctx context.Context, userID, contentID, textContent string, patch MetadataPatch) bool {
	existing, found, err := s.queries.FirstByContentID(ctx, userID, contentID)
	if err != nil {
		s.logger.Warn("vector lookup failed, update absorbed",
			"user_id", userID, "content_id", contentID, "error", err)
		return false
	}
	if !found {
		s.logger.Debug("no vector to update", "user_id", userID, "content_id", contentID)
		return false
	}

	existing.Embedding = s.embedder.Embed(ctx, textContent)
	existing.TextContent = textContent
	existing.Metadata = patch.Apply(existing.Metadata)
	existing.Version++
	existing.UpdatedAt = s.now()

	if err := s.queries.UpdateVector(ctx, existing); err != nil {
		s.logger.Warn("vector update failed, absorbed",
			"user_id", userID, "content_id", contentID, "error", err)
		return false
	}

	s.logger.Debug("vector updated",
		"user_id", userID,
		"content_id", contentID,
		"version", existing.Version)
	return true
}

// UpdateMetadata merges a metadata patch without re-embedding; the stored
// text and embedding are untouched. Used by performance tracking.
func (s *Store) UpdateMetadata(ctx context.Context, userID, contentID string, patch MetadataPatch) bool {
	existing, found, err := s.queries.FirstByContentID(ctx, userID, contentID)
	if err != nil {
		s.logger.Warn("vector lookup failed, metadata update absorbed",
			"user_id", userID, "content_id", contentID, "error", err)
		return false
	}
	if !found {
		s.logger.Debug("no vector for metadata update", "user_id", userID, "content_id", contentID)
		return false
	}

	existing.Metadata = patch.Apply(existing.Metadata)
	existing.Version++
	existing.UpdatedAt = s.now()

	if err := s.queries.UpdateVector(ctx, existing); err != nil {
		s.logger.Warn("metadata update failed, absorbed",
			"user_id", userID, "content_id", contentID, "error", err)
		return false
	}
	return true
}

// Query returns a user's vectors, optionally filtered by content type at the
// storage layer. Performance and timeframe filters are applied later by the
// similarity search.
func (s *Store) Query(ctx context.Context, userID string, contentType ContentType) ([]ContentVector, error) {
	return s.queries.ListByUser(ctx, userID, contentType)
}
