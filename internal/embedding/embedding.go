// Package embedding adapts a Genkit embedder to the vector store's
// never-failing Embed contract.
package embedding

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/brandloom/brandloom/internal/sysconfig"
)

// Generator produces embeddings through a Genkit embedder.
//
// Provider failures degrade to a zero vector of the configured dimension
// instead of an error: a zero vector has zero cosine similarity to every
// query, so degraded content simply never surfaces in retrieval. The
// limiter throttles outbound provider calls across all users.
type Generator struct {
	embedder ai.Embedder
	config   *sysconfig.Service
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewGenerator creates a generator. rps caps provider calls per second;
// rps <= 0 disables throttling.
func NewGenerator(embedder ai.Embedder, config *sysconfig.Service, rps float64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Generator{
		embedder: embedder,
		config:   config,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Embed returns the embedding for text, or a zero vector of the configured
// dimension when the provider fails or returns nothing usable.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	cfg := g.config.Load(ctx).Embedding

	if err := g.limiter.Wait(ctx); err != nil {
		g.logger.Warn("embedding throttle interrupted, returning zero vector", "error", err)
		return zeroVector(cfg.Dimensions)
	}

	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{
				Content: []*ai.Part{ai.NewTextPart(text)},
			},
		},
	})
	if err != nil {
		g.logger.Warn("embedding generation failed, returning zero vector",
			"model", cfg.Model,
			"error", err)
		return zeroVector(cfg.Dimensions)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		g.logger.Warn("embedder returned empty response, returning zero vector",
			"model", cfg.Model)
		return zeroVector(cfg.Dimensions)
	}

	vec := resp.Embeddings[0].Embedding
	if cfg.Dimensions > 0 && len(vec) != cfg.Dimensions {
		// Kept as-is: the stored vector must match what the provider
		// produces or every later similarity against it breaks.
		g.logger.Warn("embedding dimension mismatch",
			"model", cfg.Model,
			"want", cfg.Dimensions,
			"got", len(vec))
	}

	if cfg.CostPer1K > 0 {
		chars := len(text)
		g.logger.Debug("embedding generated",
			"model", cfg.Model,
			"chars", chars,
			"estimated_cost_usd", float64(chars)/1000*cfg.CostPer1K)
	}
	return vec
}

func zeroVector(dim int) []float32 {
	if dim <= 0 {
		dim = sysconfig.DefaultVectorDimension
	}
	return make([]float32, dim)
}
