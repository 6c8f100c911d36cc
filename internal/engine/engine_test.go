package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brandloom/brandloom/internal/log"
	"github.com/brandloom/brandloom/internal/ragctx"
	"github.com/brandloom/brandloom/internal/testutil"
	"github.com/brandloom/brandloom/internal/vector"
)

const engineConfig = `{
	"rateLimiting": {"enabled": false},
	"performance": {"similarityThreshold": 0.5, "maxContextLength": 8000, "cacheEnabled": false}
}`

func newTestEngine(queries *testutil.FakeQuerier, embedder vector.Embedder, raw string) *Engine {
	cfg := testutil.ConfigService(raw)
	logger := log.NewNop()
	quota := vector.NewQuotaChecker(queries, cfg, logger)
	return New(
		vector.NewStore(queries, embedder, quota, logger),
		vector.NewLinearIndex(queries, cfg, logger),
		embedder,
		quota,
		ragctx.NewAssembler(cfg, logger),
		vector.NewCleaner(queries, cfg, logger),
		cfg,
		logger,
	)
}

func seedRetrievable(queries *testutil.FakeQuerier, userID string, n int) {
	for i := 0; i < n; i++ {
		queries.Seed(vector.ContentVector{
			ID:          userID + "-" + string(rune('a'+i)),
			UserID:      userID,
			ContentType: vector.TypeSocialPost,
			TextContent: "A caption that performed nicely for the brand!",
			Embedding:   []float32{1, 0},
			Metadata:    vector.Metadata{Performance: 0.9, Style: "playful", Tags: []string{"coffee"}},
			CreatedAt:   time.Now(),
		})
	}
}

func TestEngine_StoreContentVector(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}}, engineConfig)

	err := e.StoreContentVector(context.Background(), vector.PutRequest{
		UserID:      "u1",
		ContentType: vector.TypeSocialPost,
		ContentID:   "post-1",
		TextContent: "launch day",
	})
	if err != nil {
		t.Fatalf("StoreContentVector() error = %v", err)
	}
	if len(queries.Vectors) != 1 {
		t.Fatalf("stored %d vectors, want 1", len(queries.Vectors))
	}
}

func TestEngine_StoreContentVectorRateLimited(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	seedRetrievable(queries, "u1", 1)
	e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}},
		`{"rateLimiting":{"enabled":true,"userMaxPerHour":1,"userMaxPerDay":500,"globalMaxPerHour":0,"globalMaxPerDay":0}}`)

	err := e.StoreContentVector(context.Background(), vector.PutRequest{UserID: "u1", ContentID: "post-2"})
	if !IsRateLimited(err) {
		t.Fatalf("StoreContentVector() error = %v, want a rate-limit rejection", err)
	}
}

func TestPerformanceMetrics_CombinedScore(t *testing.T) {
	tests := []struct {
		name    string
		metrics PerformanceMetrics
		want    float64
	}{
		{name: "zero", metrics: PerformanceMetrics{}, want: 0},
		{name: "base only", metrics: PerformanceMetrics{Performance: 0.4}, want: 0.4},
		{
			name:    "all components",
			metrics: PerformanceMetrics{Performance: 0.1, Engagement: 0.5, Clicks: 50, Shares: 5, Likes: 25},
			// 0.1 + 0.3*0.5 + 0.2*0.5 + 0.3*0.5 + 0.2*0.5
			want: 0.6,
		},
		{
			name:    "extreme inputs clamp to one",
			metrics: PerformanceMetrics{Performance: 1, Engagement: 1, Clicks: 1000, Shares: 1000, Likes: 1000},
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.metrics.CombinedScore()
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("CombinedScore() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("CombinedScore() = %v, want within [0,1]", got)
			}
		})
	}
}

func TestEngine_UpdateContentPerformance(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	queries.Seed(vector.ContentVector{
		ID:          "v1",
		UserID:      "u1",
		ContentID:   "post-1",
		TextContent: "caption",
		Embedding:   []float32{1, 0},
		Version:     1,
	})
	embedder := &testutil.FakeEmbedder{Vec: []float32{9, 9}}
	e := newTestEngine(queries, embedder, engineConfig)

	ok := e.UpdateContentPerformance(context.Background(), "u1", "post-1", PerformanceMetrics{
		Performance: 1, Engagement: 1, Clicks: 1000, Shares: 1000, Likes: 1000,
	})
	if !ok {
		t.Fatal("UpdateContentPerformance() = false, want true")
	}

	v := queries.Vectors[0]
	if v.Metadata.Performance != 1 {
		t.Errorf("Performance = %v, want clamped to 1", v.Metadata.Performance)
	}
	if v.Metadata.Engagement != 3000 {
		t.Errorf("Engagement = %d, want the summed interaction count", v.Metadata.Engagement)
	}
	if v.TextContent != "caption" || v.Embedding[0] != 1 {
		t.Error("performance update must not touch text or embedding")
	}
	if embedder.Calls != 0 {
		t.Errorf("embedder called %d times, want 0 for a metadata-only update", embedder.Calls)
	}
}

func TestEngine_UpdateContentPerformance_MissingVector(t *testing.T) {
	e := newTestEngine(testutil.NewFakeQuerier(), &testutil.FakeEmbedder{Vec: []float32{1}}, engineConfig)

	if ok := e.UpdateContentPerformance(context.Background(), "u1", "missing", PerformanceMetrics{Performance: 0.5}); ok {
		t.Fatal("UpdateContentPerformance() = true for a missing vector, want false")
	}
}

func TestEngine_RetrieveAssemblesContext(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	seedRetrievable(queries, "u1", 3)
	e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}}, engineConfig)

	got, outcome := e.retrieve(context.Background(), "a new coffee post", vector.RetrievalOptions{UserID: "u1"})
	if outcome != OutcomeAssembled {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeAssembled)
	}
	if got.Empty() {
		t.Fatal("retrieve() returned the empty context for a populated corpus")
	}
}

func TestEngine_RetrieveNeverFails(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		queries := testutil.NewFakeQuerier()
		queries.ListErr = errors.New("connection refused")
		e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}}, engineConfig)

		got, outcome := e.retrieve(context.Background(), "query", vector.RetrievalOptions{UserID: "u1"})
		if !got.Empty() || outcome != OutcomeError {
			t.Fatalf("retrieve() = (%+v, %q), want empty context with %q", got, outcome, OutcomeError)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		queries := testutil.NewFakeQuerier()
		seedRetrievable(queries, "u1", 2)
		e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}},
			`{"rateLimiting":{"enabled":true,"userMaxPerHour":1,"userMaxPerDay":500,"globalMaxPerHour":0,"globalMaxPerDay":0}}`)

		got, outcome := e.retrieve(context.Background(), "query", vector.RetrievalOptions{UserID: "u1"})
		if !got.Empty() || outcome != OutcomeRateLimited {
			t.Fatalf("retrieve() = (%+v, %q), want empty context with %q", got, outcome, OutcomeRateLimited)
		}
	})

	t.Run("no vectors", func(t *testing.T) {
		e := newTestEngine(testutil.NewFakeQuerier(), &testutil.FakeEmbedder{Vec: []float32{1, 0}}, engineConfig)

		got, outcome := e.retrieve(context.Background(), "query", vector.RetrievalOptions{UserID: "u1"})
		if !got.Empty() || outcome != OutcomeNoVectors {
			t.Fatalf("retrieve() = (%+v, %q), want empty context with %q", got, outcome, OutcomeNoVectors)
		}
	})
}

func TestEngine_RetrievalCache(t *testing.T) {
	cached := `{
		"rateLimiting": {"enabled": false},
		"performance": {"similarityThreshold": 0.5, "maxContextLength": 8000, "cacheEnabled": true}
	}`
	queries := testutil.NewFakeQuerier()
	seedRetrievable(queries, "u1", 3)
	e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}}, cached)

	opts := vector.RetrievalOptions{UserID: "u1"}
	first, outcome := e.retrieve(context.Background(), "query", opts)
	if outcome != OutcomeAssembled {
		t.Fatalf("first retrieve outcome = %q, want %q", outcome, OutcomeAssembled)
	}

	// Storage goes away; the cache must still serve the assembled context.
	queries.ListErr = errors.New("connection refused")
	second, outcome := e.retrieve(context.Background(), "query", opts)
	if outcome != OutcomeCached {
		t.Fatalf("second retrieve outcome = %q, want %q", outcome, OutcomeCached)
	}
	if second != first {
		t.Fatal("cached context differs from the originally assembled one")
	}

	e.InvalidateCache()
	_, outcome = e.retrieve(context.Background(), "query", opts)
	if outcome != OutcomeError {
		t.Fatalf("post-invalidation outcome = %q, want %q", outcome, OutcomeError)
	}
}

func TestEngine_ShouldReVectorize(t *testing.T) {
	e := newTestEngine(testutil.NewFakeQuerier(), &testutil.FakeEmbedder{Vec: []float32{1}}, engineConfig)

	if !e.ShouldReVectorize("", "anything") {
		t.Error("empty old text must re-vectorize")
	}
	if e.ShouldReVectorize("a b c", "a b c") {
		t.Error("identical text must not re-vectorize")
	}
}

func TestEngine_Cleanup(t *testing.T) {
	cleanupCfg := `{"vectorCleanup":{"enabled":true,"retentionDays":90,"minPerformanceThreshold":0.3}}`
	queries := testutil.NewFakeQuerier()
	queries.Seed(
		vector.ContentVector{ID: "old-weak", UserID: "u1", CreatedAt: time.Now().AddDate(0, 0, -120), Metadata: vector.Metadata{Performance: 0.1}},
		vector.ContentVector{ID: "old-strong", UserID: "u1", CreatedAt: time.Now().AddDate(0, 0, -120), Metadata: vector.Metadata{Performance: 0.8}},
	)
	e := newTestEngine(queries, &testutil.FakeEmbedder{Vec: []float32{1}}, cleanupCfg)

	deleted, err := e.CleanupOldVectors(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("CleanupOldVectors() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("CleanupOldVectors() = %d, want 1", deleted)
	}

	stats, err := e.CleanupAllUsersVectors(context.Background())
	if err != nil {
		t.Fatalf("CleanupAllUsersVectors() error = %v", err)
	}
	if stats.UsersProcessed != 1 || stats.TotalCleaned != 0 {
		t.Fatalf("stats = %+v, want one user processed and nothing left to clean", stats)
	}
}
