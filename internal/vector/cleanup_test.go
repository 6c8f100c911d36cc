package vector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brandloom/brandloom/internal/log"
)

const cleanupEnabled = `{"vectorCleanup":{"enabled":true,"retentionDays":90,"minPerformanceThreshold":0.3}}`

func newTestCleaner(queries *fakeQuerier, raw string, now time.Time) *Cleaner {
	c := NewCleaner(queries, testConfigService(raw), log.NewNop())
	c.now = func() time.Time { return now }
	return c
}

func TestCleaner_DeletesOnlyAgedLowPerformers(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	queries := newFakeQuerier()
	queries.vectors = []ContentVector{
		{ID: "old-strong", UserID: "u1", CreatedAt: now.AddDate(0, 0, -100), Metadata: Metadata{Performance: 0.5}},
		{ID: "young-weak", UserID: "u1", CreatedAt: now.AddDate(0, 0, -50), Metadata: Metadata{Performance: 0.1}},
		{ID: "old-weak", UserID: "u1", CreatedAt: now.AddDate(0, 0, -100), Metadata: Metadata{Performance: 0.1}},
	}
	cleaner := newTestCleaner(queries, cleanupEnabled, now)

	deleted, err := cleaner.CleanupUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("CleanupUser() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("CleanupUser() deleted %d, want 1", deleted)
	}

	remaining := map[string]bool{}
	for _, v := range queries.vectors {
		remaining[v.ID] = true
	}
	if !remaining["old-strong"] || !remaining["young-weak"] || remaining["old-weak"] {
		t.Fatalf("remaining vectors = %v, want old-weak removed and the others kept", remaining)
	}
}

func TestCleaner_DisabledNoOp(t *testing.T) {
	now := time.Now()
	queries := newFakeQuerier()
	queries.vectors = []ContentVector{
		{ID: "old-weak", UserID: "u1", CreatedAt: now.AddDate(0, 0, -200), Metadata: Metadata{Performance: 0}},
	}
	queries.deleteErr = errors.New("must not be called")
	cleaner := newTestCleaner(queries, `{"vectorCleanup":{"enabled":false}}`, now)

	deleted, err := cleaner.CleanupUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("CleanupUser() error = %v", err)
	}
	if deleted != 0 || len(queries.vectors) != 1 {
		t.Fatalf("CleanupUser() = %d deleted, %d remaining; want a no-op", deleted, len(queries.vectors))
	}
}

func TestCleaner_RetentionOverride(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	queries := newFakeQuerier()
	queries.vectors = []ContentVector{
		{ID: "weak-40d", UserID: "u1", CreatedAt: now.AddDate(0, 0, -40), Metadata: Metadata{Performance: 0.1}},
	}
	cleaner := newTestCleaner(queries, cleanupEnabled, now)

	// Survives the 90-day default.
	deleted, err := cleaner.CleanupUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("CleanupUser() error = %v", err)
	}
	if deleted != 0 {
		t.Fatalf("CleanupUser() deleted %d under the default window, want 0", deleted)
	}

	// A 30-day override catches it.
	deleted, err = cleaner.CleanupUser(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("CleanupUser() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("CleanupUser() deleted %d with a 30-day override, want 1", deleted)
	}
}

func TestCleaner_CleanupAll(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	queries := newFakeQuerier()
	queries.vectors = []ContentVector{
		{ID: "a1", UserID: "alice", CreatedAt: now.AddDate(0, 0, -120), Metadata: Metadata{Performance: 0.1}},
		{ID: "a2", UserID: "alice", CreatedAt: now.AddDate(0, 0, -120), Metadata: Metadata{Performance: 0.1}},
		{ID: "a3", UserID: "alice", CreatedAt: now, Metadata: Metadata{Performance: 0.1}},
		{ID: "b1", UserID: "bob", CreatedAt: now.AddDate(0, 0, -120), Metadata: Metadata{Performance: 0.9}},
	}
	cleaner := newTestCleaner(queries, cleanupEnabled, now)

	stats, err := cleaner.CleanupAll(context.Background())
	if err != nil {
		t.Fatalf("CleanupAll() error = %v", err)
	}
	if stats.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", stats.UsersProcessed)
	}
	if stats.TotalCleaned != 2 {
		t.Errorf("TotalCleaned = %d, want 2", stats.TotalCleaned)
	}
}

func TestCleaner_CleanupAllContinuesPastFailures(t *testing.T) {
	now := time.Now()
	queries := newFakeQuerier()
	queries.vectors = []ContentVector{
		{ID: "a1", UserID: "alice", CreatedAt: now},
		{ID: "b1", UserID: "bob", CreatedAt: now},
	}
	queries.deleteErr = errors.New("lock not available")
	cleaner := newTestCleaner(queries, cleanupEnabled, now)

	stats, err := cleaner.CleanupAll(context.Background())
	if err != nil {
		t.Fatalf("CleanupAll() error = %v, want per-user failures absorbed", err)
	}
	if stats.UsersProcessed != 0 || stats.TotalCleaned != 0 {
		t.Fatalf("stats = %+v, want failing users excluded from the stats", stats)
	}
}

func TestCleaner_CleanupAllListFailure(t *testing.T) {
	queries := newFakeQuerier()
	queries.listIDsErr = errors.New("connection refused")
	cleaner := newTestCleaner(queries, cleanupEnabled, time.Now())

	if _, err := cleaner.CleanupAll(context.Background()); err == nil {
		t.Fatal("CleanupAll() error = nil, want the user listing failure to propagate")
	}
}
