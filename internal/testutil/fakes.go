// Package testutil provides in-memory fakes and database helpers shared by
// tests across packages.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/brandloom/brandloom/internal/log"
	"github.com/brandloom/brandloom/internal/sysconfig"
	"github.com/brandloom/brandloom/internal/vector"
)

// FakeQuerier is an in-memory vector.Querier. Error fields force the
// corresponding call to fail; call counters let tests assert call volume.
type FakeQuerier struct {
	mu        sync.Mutex
	Vectors   []vector.ContentVector
	Overrides map[string]vector.RateOverride

	InsertErr   error
	UpdateErr   error
	LookupErr   error
	ListErr     error
	CountErr    error
	DeleteErr   error
	ListIDsErr  error
	OverrideErr error

	InsertCalls int
	UpdateCalls int
}

// NewFakeQuerier creates an empty fake.
func NewFakeQuerier() *FakeQuerier {
	return &FakeQuerier{Overrides: make(map[string]vector.RateOverride)}
}

// Seed appends vectors without going through the write path.
func (f *FakeQuerier) Seed(vecs ...vector.ContentVector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Vectors = append(f.Vectors, vecs...)
}

func (f *FakeQuerier) InsertVector(_ context.Context, v vector.ContentVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertCalls++
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.Vectors = append(f.Vectors, v)
	return nil
}

func (f *FakeQuerier) UpdateVector(_ context.Context, v vector.ContentVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i := range f.Vectors {
		if f.Vectors[i].ID == v.ID {
			f.Vectors[i] = v
			return nil
		}
	}
	return nil
}

func (f *FakeQuerier) FirstByContentID(_ context.Context, userID, contentID string) (vector.ContentVector, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LookupErr != nil {
		return vector.ContentVector{}, false, f.LookupErr
	}
	for _, v := range f.Vectors {
		if v.UserID == userID && v.ContentID == contentID {
			return v, true, nil
		}
	}
	return vector.ContentVector{}, false, nil
}

func (f *FakeQuerier) ListByUser(_ context.Context, userID string, contentType vector.ContentType) ([]vector.ContentVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []vector.ContentVector
	for _, v := range f.Vectors {
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

func (f *FakeQuerier) CountUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	count := 0
	for _, v := range f.Vectors {
		if v.UserID == userID && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *FakeQuerier) CountAllSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	count := 0
	for _, v := range f.Vectors {
		if !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *FakeQuerier) DeleteOldLowValue(_ context.Context, userID string, cutoff time.Time, maxPerformance float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	kept := f.Vectors[:0]
	deleted := 0
	for _, v := range f.Vectors {
		if v.UserID == userID && v.CreatedAt.Before(cutoff) && v.Metadata.Performance < maxPerformance {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	f.Vectors = kept
	return deleted, nil
}

func (f *FakeQuerier) ListUserIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListIDsErr != nil {
		return nil, f.ListIDsErr
	}
	seen := make(map[string]bool)
	var ids []string
	for _, v := range f.Vectors {
		if !seen[v.UserID] {
			seen[v.UserID] = true
			ids = append(ids, v.UserID)
		}
	}
	return ids, nil
}

func (f *FakeQuerier) GetRateOverride(_ context.Context, userID string) (vector.RateOverride, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OverrideErr != nil {
		return vector.RateOverride{}, false, f.OverrideErr
	}
	o, ok := f.Overrides[userID]
	return o, ok, nil
}

// staticReader serves one fixed config document.
type staticReader struct {
	raw []byte
}

func (s staticReader) GetConfig(_ context.Context, _ string) ([]byte, error) {
	return s.raw, nil
}

// ConfigService builds a sysconfig service serving the given JSON document
// merged over the defaults.
func ConfigService(raw string) *sysconfig.Service {
	return sysconfig.NewService(staticReader{raw: []byte(raw)}, log.NewNop())
}

// FakeEmbedder returns a fixed vector for every input and records calls.
type FakeEmbedder struct {
	mu       sync.Mutex
	Vec      []float32
	Calls    int
	LastText string
}

func (f *FakeEmbedder) Embed(_ context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastText = text
	out := make([]float32, len(f.Vec))
	copy(out, f.Vec)
	return out
}
