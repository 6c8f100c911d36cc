// Package engine is the retrieval-augmented context engine's public face.
// It wires the embedding generator, vector store, similarity index, and
// context assembler behind the operations the content adapters and the API
// call.
//
// Failure contract: enrichment never blocks content generation. The only
// error any caller ever sees is vector.ErrRateLimited from a direct write;
// every other failure is logged, absorbed, and observable as an empty
// result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/brandloom/brandloom/internal/ragctx"
	"github.com/brandloom/brandloom/internal/sysconfig"
	"github.com/brandloom/brandloom/internal/vector"
)

const (
	retrievalCacheSize = 512
	retrievalCacheTTL  = 5 * time.Minute
)

// Engine coordinates the write, read, and lifecycle paths.
type Engine struct {
	store     *vector.Store
	index     vector.SimilarityIndex
	embedder  vector.Embedder
	quota     *vector.QuotaChecker
	assembler *ragctx.Assembler
	cleaner   *vector.Cleaner
	config    *sysconfig.Service
	logger    *slog.Logger

	// cache holds assembled contexts keyed by user, query, and options.
	// The TTL is fixed at construction; performance.cacheEnabled toggles
	// use per request.
	cache *expirable.LRU[string, ragctx.Context]
}

// New wires an engine from its components.
func New(
	store *vector.Store,
	index vector.SimilarityIndex,
	embedder vector.Embedder,
	quota *vector.QuotaChecker,
	assembler *ragctx.Assembler,
	cleaner *vector.Cleaner,
	config *sysconfig.Service,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		index:     index,
		embedder:  embedder,
		quota:     quota,
		assembler: assembler,
		cleaner:   cleaner,
		config:    config,
		logger:    logger,
		cache:     expirable.NewLRU[string, ragctx.Context](retrievalCacheSize, nil, retrievalCacheTTL),
	}
}

// StoreContentVector embeds and persists new content. The only error it
// returns is a quota rejection wrapping vector.ErrRateLimited; storage and
// provider failures are absorbed.
func (e *Engine) StoreContentVector(ctx context.Context, req vector.PutRequest) error {
	return e.store.Put(ctx, req)
}

// UpdateContentVector re-embeds edited content in place. Failures are
// absorbed; the return reports whether a vector was actually updated.
func (e *Engine) UpdateContentVector(ctx context.Context, userID, contentID, textContent string, patch vector.MetadataPatch) bool {
	return e.store.UpdateByContentID(ctx, userID, contentID, textContent, patch)
}

// UpdateContentMetadata merges a metadata patch onto a stored vector
// without re-embedding. Failures are absorbed.
func (e *Engine) UpdateContentMetadata(ctx context.Context, userID, contentID string, patch vector.MetadataPatch) bool {
	return e.store.UpdateMetadata(ctx, userID, contentID, patch)
}

// ShouldReVectorize reports whether edited content needs a fresh embedding.
func (e *Engine) ShouldReVectorize(oldText, newText string) bool {
	return ragctx.ShouldReVectorize(oldText, newText)
}

// PerformanceMetrics carries post-publication engagement numbers for one
// content item. Zero-valued fields contribute nothing to the score.
type PerformanceMetrics struct {
	Performance float64 `json:"performance"`
	Engagement  float64 `json:"engagement"`
	Clicks      int     `json:"clicks"`
	Shares      int     `json:"shares"`
	Likes       int     `json:"likes"`
}

// CombinedScore folds the metrics into a single [0,1] performance value.
// Clicks, shares and likes saturate at 100, 10 and 50 respectively so a
// viral outlier cannot dominate the base performance signal.
func (m PerformanceMetrics) CombinedScore() float64 {
	score := m.Performance +
		0.3*m.Engagement +
		0.2*min1(float64(m.Clicks)/100) +
		0.3*min1(float64(m.Shares)/10) +
		0.2*min1(float64(m.Likes)/50)
	return vector.Clamp01(score)
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// UpdateContentPerformance recomputes the combined performance score and
// writes it to the vector's metadata. The stored text and embedding are
// untouched, so no embedding quota is spent. Failures are absorbed.
func (e *Engine) UpdateContentPerformance(ctx context.Context, userID, contentID string, metrics PerformanceMetrics) bool {
	score := metrics.CombinedScore()
	patch := vector.MetadataPatch{Performance: &score}
	if interactions := metrics.Clicks + metrics.Shares + metrics.Likes; interactions > 0 {
		patch.Engagement = &interactions
	}

	updated := e.store.UpdateMetadata(ctx, userID, contentID, patch)
	if updated {
		e.logger.Debug("content performance updated",
			"user_id", userID,
			"content_id", contentID,
			"score", score)
	}
	return updated
}

// RetrievalOutcome explains how a retrieval concluded. The external
// contract only distinguishes "context" from "empty context"; the outcome
// keeps the reason observable for logs and tests.
type RetrievalOutcome string

// Retrieval outcomes.
const (
	OutcomeAssembled   RetrievalOutcome = "assembled"
	OutcomeCached      RetrievalOutcome = "cached"
	OutcomeNoVectors   RetrievalOutcome = "no_vectors"
	OutcomeRateLimited RetrievalOutcome = "rate_limited"
	OutcomeError       RetrievalOutcome = "error_absorbed"
)

// RetrieveRelevantContext returns assembled context for a generation
// request. It never fails: rate-limit rejections and internal errors all
// degrade to the empty context.
func (e *Engine) RetrieveRelevantContext(ctx context.Context, queryText string, opts vector.RetrievalOptions) ragctx.Context {
	out, _ := e.retrieve(ctx, queryText, opts)
	return out
}

func (e *Engine) retrieve(ctx context.Context, queryText string, opts vector.RetrievalOptions) (ragctx.Context, RetrievalOutcome) {
	perf := e.config.Load(ctx).Performance
	key := cacheKey(queryText, opts)

	if perf.CacheEnabled {
		if cached, ok := e.cache.Get(key); ok {
			return cached, OutcomeCached
		}
	}

	if decision := e.quota.Check(ctx, opts.UserID); !decision.Allowed {
		e.logger.Info("retrieval rejected by quota, returning empty context",
			"user_id", opts.UserID,
			"reason", decision.Reason)
		return ragctx.Context{}, OutcomeRateLimited
	}

	query := e.embedder.Embed(ctx, queryText)

	scored, err := e.index.Search(ctx, query, opts)
	if err != nil {
		e.logger.Warn("similarity search failed, returning empty context",
			"user_id", opts.UserID,
			"error", err)
		return ragctx.Context{}, OutcomeError
	}
	if len(scored) == 0 {
		return ragctx.Context{}, OutcomeNoVectors
	}

	var industry []vector.ScoredVector
	if opts.IncludeIndustryPatterns {
		industry, err = e.index.IndustryPatterns(ctx, opts)
		if err != nil {
			e.logger.Warn("industry pattern lookup failed, continuing without",
				"industry", opts.Industry,
				"error", err)
			industry = nil
		}
	}

	assembled := e.assembler.Assemble(ctx, scored, industry, opts)
	if perf.CacheEnabled {
		e.cache.Add(key, assembled)
	}
	return assembled, OutcomeAssembled
}

// InvalidateCache drops all cached contexts. Called after writes that
// should be visible to the next retrieval immediately.
func (e *Engine) InvalidateCache() {
	e.cache.Purge()
}

// CleanupOldVectors deletes a user's aged, low-performing vectors.
// keepDays > 0 overrides the configured retention window.
func (e *Engine) CleanupOldVectors(ctx context.Context, userID string, keepDays int) (int, error) {
	return e.cleaner.CleanupUser(ctx, userID, keepDays)
}

// CleanupAllUsersVectors runs the retention policy across every user.
func (e *Engine) CleanupAllUsersVectors(ctx context.Context) (vector.CleanupStats, error) {
	return e.cleaner.CleanupAll(ctx)
}

// IsRateLimited reports whether err is a quota rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, vector.ErrRateLimited)
}

func cacheKey(queryText string, opts vector.RetrievalOptions) string {
	minPerf := ""
	if opts.MinPerformance != nil {
		minPerf = fmt.Sprintf("%.3f", *opts.MinPerformance)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%t|%s",
		opts.UserID, queryText, opts.ContentType, opts.Industry, minPerf,
		opts.EffectiveLimit(), opts.IncludeIndustryPatterns, opts.Timeframe)
}
