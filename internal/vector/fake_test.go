package vector

import (
	"context"
	"sync"
	"time"

	"github.com/brandloom/brandloom/internal/log"
	"github.com/brandloom/brandloom/internal/sysconfig"
)

// fakeQuerier is an in-memory Querier for tests. Behavior mirrors the SQL
// implementation closely enough for the store, quota, search, and cleanup
// logic to be exercised without a database.
type fakeQuerier struct {
	mu       sync.Mutex
	vectors  []ContentVector
	overrides map[string]RateOverride

	insertErr   error
	updateErr   error
	lookupErr   error
	listErr     error
	countErr    error
	deleteErr   error
	listIDsErr  error
	overrideErr error

	insertCalls int
	updateCalls int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{overrides: make(map[string]RateOverride)}
}

func (f *fakeQuerier) InsertVector(_ context.Context, v ContentVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.vectors = append(f.vectors, v)
	return nil
}

func (f *fakeQuerier) UpdateVector(_ context.Context, v ContentVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.vectors {
		if f.vectors[i].ID == v.ID {
			f.vectors[i] = v
			return nil
		}
	}
	return nil
}

func (f *fakeQuerier) FirstByContentID(_ context.Context, userID, contentID string) (ContentVector, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return ContentVector{}, false, f.lookupErr
	}
	for _, v := range f.vectors {
		if v.UserID == userID && v.ContentID == contentID {
			return v, true, nil
		}
	}
	return ContentVector{}, false, nil
}

func (f *fakeQuerier) ListByUser(_ context.Context, userID string, contentType ContentType) ([]ContentVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ContentVector
	for _, v := range f.vectors {
		if v.UserID != userID {
			continue
		}
		if contentType != "" && v.ContentType != contentType {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeQuerier) CountUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, v := range f.vectors {
		if v.UserID == userID && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeQuerier) CountAllSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, v := range f.vectors {
		if !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeQuerier) DeleteOldLowValue(_ context.Context, userID string, cutoff time.Time, maxPerformance float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.vectors[:0]
	deleted := 0
	for _, v := range f.vectors {
		if v.UserID == userID && v.CreatedAt.Before(cutoff) && v.Metadata.Performance < maxPerformance {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	f.vectors = kept
	return deleted, nil
}

func (f *fakeQuerier) ListUserIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listIDsErr != nil {
		return nil, f.listIDsErr
	}
	seen := make(map[string]bool)
	var ids []string
	for _, v := range f.vectors {
		if !seen[v.UserID] {
			seen[v.UserID] = true
			ids = append(ids, v.UserID)
		}
	}
	return ids, nil
}

func (f *fakeQuerier) GetRateOverride(_ context.Context, userID string) (RateOverride, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overrideErr != nil {
		return RateOverride{}, false, f.overrideErr
	}
	o, ok := f.overrides[userID]
	return o, ok, nil
}

// staticConfig implements sysconfig.Reader with a fixed document.
type staticConfig struct {
	raw []byte
}

func (s staticConfig) GetConfig(_ context.Context, _ string) ([]byte, error) {
	return s.raw, nil
}

// testConfigService builds a config service serving the given JSON document.
func testConfigService(raw string) *sysconfig.Service {
	return sysconfig.NewService(staticConfig{raw: []byte(raw)}, log.NewNop())
}

// fakeEmbedder returns a fixed vector for every input.
type fakeEmbedder struct {
	vec       []float32
	callCount int
	lastText  string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) []float32 {
	f.callCount++
	f.lastText = text
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return out
}
