package vector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/brandloom/brandloom/internal/sysconfig"
)

// SimilarityIndex ranks stored vectors against a query vector. The linear
// scan below is the exact-cosine correctness baseline; an approximate index
// may replace it later without changing this contract.
type SimilarityIndex interface {
	Search(ctx context.Context, query []float32, opts RetrievalOptions) ([]ScoredVector, error)
	IndustryPatterns(ctx context.Context, opts RetrievalOptions) ([]ScoredVector, error)
}

// LinearIndex is the exact cosine implementation of SimilarityIndex: it
// retrieves all of the user's vectors and ranks them in memory.
type LinearIndex struct {
	queries Querier
	config  *sysconfig.Service
	logger  *slog.Logger

	now func() time.Time // overridable in tests
}

// NewLinearIndex creates a linear-scan similarity index.
func NewLinearIndex(queries Querier, config *sysconfig.Service, logger *slog.Logger) *LinearIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinearIndex{
		queries: queries,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Search ranks the user's vectors by cosine similarity to query.
//
// Order of operations: threshold filter, sort descending, cap at the limit,
// then the remaining option filters (content type, performance floor,
// timeframe). The cap is applied before the post-filters, so fewer than
// limit results may survive.
func (idx *LinearIndex) Search(ctx context.Context, query []float32, opts RetrievalOptions) ([]ScoredVector, error) {
	stored, err := idx.queries.ListByUser(ctx, opts.UserID, opts.ContentType)
	if err != nil {
		return nil, fmt.Errorf("retrieving vectors for user %q: %w", opts.UserID, err)
	}

	threshold := idx.config.Load(ctx).Performance.SimilarityThreshold

	scored := make([]ScoredVector, 0, len(stored))
	for _, v := range stored {
		sim := CosineSimilarity(query, v.Embedding)
		if sim > threshold {
			scored = append(scored, ScoredVector{Vector: v, Similarity: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit := opts.EffectiveLimit(); len(scored) > limit {
		scored = scored[:limit]
	}

	scored = idx.applyFilters(scored, opts)

	idx.logger.Debug("similarity search",
		"user_id", opts.UserID,
		"candidates", len(stored),
		"results", len(scored),
		"threshold", threshold)

	return scored, nil
}

// applyFilters applies the non-similarity option filters to the ranked set.
func (idx *LinearIndex) applyFilters(scored []ScoredVector, opts RetrievalOptions) []ScoredVector {
	maxAge := opts.Timeframe.MaxAge()
	now := idx.now()

	filtered := scored[:0]
	for _, sv := range scored {
		if opts.ContentType != "" && sv.Vector.ContentType != opts.ContentType {
			continue
		}
		if opts.MinPerformance != nil && sv.Vector.Metadata.Performance < *opts.MinPerformance {
			continue
		}
		if maxAge > 0 && now.Sub(sv.Vector.CreatedAt) > maxAge {
			continue
		}
		filtered = append(filtered, sv)
	}
	return filtered
}

// IndustryPatterns is the cross-user anonymized pattern extension point.
// It deliberately returns an empty set today: the capability is part of the
// retrieval contract, not a silent omission, and callers already handle an
// empty industry slice.
func (idx *LinearIndex) IndustryPatterns(_ context.Context, _ RetrievalOptions) ([]ScoredVector, error) {
	return nil, nil
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|).
//
// By definition here, the similarity is 0 when the vectors differ in length
// or either has zero norm: a zero vector is the embedder's degraded output
// and must never rank above threshold.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
