package adapters

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brandloom/brandloom/internal/engine"
	"github.com/brandloom/brandloom/internal/log"
	"github.com/brandloom/brandloom/internal/ragctx"
	"github.com/brandloom/brandloom/internal/testutil"
	"github.com/brandloom/brandloom/internal/vector"
)

const adapterConfig = `{"rateLimiting":{"enabled":false}}`

func newTestAdapter(queries *testutil.FakeQuerier, embedder vector.Embedder) *Adapter {
	cfg := testutil.ConfigService(adapterConfig)
	logger := log.NewNop()
	quota := vector.NewQuotaChecker(queries, cfg, logger)
	eng := engine.New(
		vector.NewStore(queries, embedder, quota, logger),
		vector.NewLinearIndex(queries, cfg, logger),
		embedder,
		quota,
		ragctx.NewAssembler(cfg, logger),
		vector.NewCleaner(queries, cfg, logger),
		cfg,
		logger,
	)
	return New(eng, logger)
}

func TestBuildText_DropsEmptyFields(t *testing.T) {
	post := SocialPost{
		Platform: "instagram",
		Caption:  "Fresh beans just landed!",
		Style:    "playful",
	}

	got := post.Text()
	if !strings.Contains(got, "Platform: instagram") || !strings.Contains(got, "Caption: Fresh beans just landed!") {
		t.Errorf("Text() = %q, want labeled populated fields", got)
	}
	if strings.Contains(got, "Hashtags") || strings.Contains(got, "Call to action") {
		t.Errorf("Text() = %q, want empty fields dropped entirely", got)
	}
}

func TestRecordText_AllTypes(t *testing.T) {
	sources := []Source{
		Profile{BrandName: "Beanhouse", Industry: "food"},
		SocialPost{Caption: "hello"},
		Article{Title: "Sourcing beans"},
		Campaign{Name: "Summer push"},
		SavedImage{Prompt: "latte art"},
		Logo{BrandName: "Beanhouse"},
	}
	for _, src := range sources {
		if src.Text() == "" {
			t.Errorf("%s record produced empty text", src.ContentType())
		}
		if src.Collection() == "" {
			t.Errorf("%s record has no source collection", src.ContentType())
		}
		if !src.ContentType().Valid() {
			t.Errorf("%s is not a known content type", src.ContentType())
		}
	}
}

func TestAdapter_Create(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	adapter := newTestAdapter(queries, &testutil.FakeEmbedder{Vec: []float32{1, 0}})

	err := adapter.Apply(context.Background(), Change{
		UserID:    "u1",
		ContentID: "post-1",
		DocID:     "doc-9",
		New:       SocialPost{Platform: "instagram", Caption: "Fresh beans!", Style: "playful", Hashtags: []string{"coffee"}},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(queries.Vectors) != 1 {
		t.Fatalf("stored %d vectors, want 1", len(queries.Vectors))
	}
	v := queries.Vectors[0]
	if v.ContentType != vector.TypeSocialPost || v.SourceCollection != "social_posts" || v.SourceDocID != "doc-9" {
		t.Errorf("stored vector provenance = %+v, want the record's type and source", v)
	}
	if v.Metadata.Platform != "instagram" || v.Metadata.Style != "playful" {
		t.Errorf("stored metadata = %+v, want the record's metadata", v.Metadata)
	}
}

func TestAdapter_UpdateReembedsOnDrift(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	old := SocialPost{Platform: "instagram", Caption: "Fresh beans just landed today"}
	queries.Seed(vector.ContentVector{
		ID:          "v1",
		UserID:      "u1",
		ContentID:   "post-1",
		TextContent: old.Text(),
		Embedding:   []float32{9, 9},
		Version:     1,
		CreatedAt:   time.Now(),
	})
	embedder := &testutil.FakeEmbedder{Vec: []float32{1, 0}}
	adapter := newTestAdapter(queries, embedder)

	updated := SocialPost{Platform: "tiktok", Caption: "Completely different announcement about a brand new seasonal menu"}
	if err := adapter.Apply(context.Background(), Change{UserID: "u1", ContentID: "post-1", Old: old, New: updated}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	v := queries.Vectors[0]
	if v.TextContent != updated.Text() {
		t.Errorf("TextContent = %q, want the new canonical text", v.TextContent)
	}
	if v.Version != 2 {
		t.Errorf("Version = %d, want 2", v.Version)
	}
	if embedder.Calls != 1 {
		t.Errorf("embedder called %d times, want 1 re-embedding", embedder.Calls)
	}
}

func TestAdapter_UpdateKeepsEmbeddingForSmallEdits(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	old := SocialPost{Platform: "instagram", Caption: "fresh beans just landed in our store today come by"}
	queries.Seed(vector.ContentVector{
		ID:          "v1",
		UserID:      "u1",
		ContentID:   "post-1",
		TextContent: old.Text(),
		Embedding:   []float32{9, 9},
		Version:     1,
		CreatedAt:   time.Now(),
	})
	embedder := &testutil.FakeEmbedder{Vec: []float32{1, 0}}
	adapter := newTestAdapter(queries, embedder)

	// Same words, new style: under the re-embedding bar.
	updated := SocialPost{Platform: "instagram", Caption: "Fresh beans just landed in our store today come by"}
	if err := adapter.Apply(context.Background(), Change{UserID: "u1", ContentID: "post-1", Old: old, New: updated}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	v := queries.Vectors[0]
	if embedder.Calls != 0 {
		t.Errorf("embedder called %d times, want the embedding kept", embedder.Calls)
	}
	if v.Embedding[0] != 9 {
		t.Errorf("Embedding = %v, want the original preserved", v.Embedding)
	}
	if v.Version != 2 {
		t.Errorf("Version = %d, want the metadata merge to bump the version", v.Version)
	}
}

func TestAdapter_DeleteLeavesVectorOrphaned(t *testing.T) {
	queries := testutil.NewFakeQuerier()
	rec := SocialPost{Caption: "gone soon"}
	queries.Seed(vector.ContentVector{ID: "v1", UserID: "u1", ContentID: "post-1", CreatedAt: time.Now()})
	adapter := newTestAdapter(queries, &testutil.FakeEmbedder{Vec: []float32{1}})

	if err := adapter.Apply(context.Background(), Change{UserID: "u1", ContentID: "post-1", Old: rec}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(queries.Vectors) != 1 {
		t.Fatalf("%d vectors after delete, want the orphan kept", len(queries.Vectors))
	}
}
