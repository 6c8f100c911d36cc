// Package sysconfig serves the engine-wide runtime configuration.
//
// The configuration is a single JSONB document in the system_config table,
// cached in process for a 5-minute TTL. The cache is per instance: under
// horizontal scaling different instances may observe different configuration
// for up to one TTL window. That staleness is an accepted tradeoff, not a
// bug, and must not be replaced with a globally consistent cache.
//
// Load never fails. On a read error it returns the last good value if one
// exists, otherwise the hard-coded defaults.
package sysconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CacheTTL is how long a loaded configuration stays fresh.
const CacheTTL = 5 * time.Minute

// ConfigKey is the system_config row holding the engine document.
const ConfigKey = "engine"

// DefaultVectorDimension matches the dimensionality of the default embedding
// model (gemini-embedding-001 truncated via Matryoshka representation).
const DefaultVectorDimension = 768

// RateLimiting controls embedding write quotas.
type RateLimiting struct {
	Enabled          bool `json:"enabled"`
	GlobalMaxPerHour int  `json:"globalMaxPerHour"`
	GlobalMaxPerDay  int  `json:"globalMaxPerDay"`
	UserMaxPerHour   int  `json:"userMaxPerHour"`
	UserMaxPerDay    int  `json:"userMaxPerDay"`
}

// VectorCleanup controls the retention policy applied by the cleanup job.
type VectorCleanup struct {
	Enabled                 bool    `json:"enabled"`
	RetentionDays           int     `json:"retentionDays"`
	MinPerformanceThreshold float64 `json:"minPerformanceThreshold"`
}

// Embedding selects the provider model and expected dimensionality.
type Embedding struct {
	Model      string  `json:"model"`
	Dimensions int     `json:"dimensions"`
	CostPer1K  float64 `json:"costPer1K"`
}

// Performance tunes retrieval and context assembly.
type Performance struct {
	SimilarityThreshold float64 `json:"similarityThreshold"`
	MaxContextLength    int     `json:"maxContextLength"`
	CacheEnabled        bool    `json:"cacheEnabled"`
	CacheTTLSeconds     int     `json:"cacheTTL"`
}

// SystemConfig is the engine-wide runtime configuration document.
type SystemConfig struct {
	RateLimiting  RateLimiting  `json:"rateLimiting"`
	VectorCleanup VectorCleanup `json:"vectorCleanup"`
	Embedding     Embedding     `json:"embedding"`
	Performance   Performance   `json:"performance"`
}

// Defaults returns the documented default configuration, used whenever the
// durable copy is absent or unreadable: rate limiting disabled, 90-day
// retention with a 0.3 performance floor, similarity threshold 0.7, and an
// 8000-character context budget.
func Defaults() SystemConfig {
	return SystemConfig{
		RateLimiting: RateLimiting{
			Enabled:          false,
			GlobalMaxPerHour: 1000,
			GlobalMaxPerDay:  10000,
			UserMaxPerHour:   50,
			UserMaxPerDay:    500,
		},
		VectorCleanup: VectorCleanup{
			Enabled:                 true,
			RetentionDays:           90,
			MinPerformanceThreshold: 0.3,
		},
		Embedding: Embedding{
			Model:      "gemini-embedding-001",
			Dimensions: DefaultVectorDimension,
			CostPer1K:  0.00002,
		},
		Performance: Performance{
			SimilarityThreshold: 0.7,
			MaxContextLength:    8000,
			CacheEnabled:        false,
			CacheTTLSeconds:     300,
		},
	}
}

// Reader fetches a raw configuration document by key.
// Defined here because sysconfig is the consumer, following the same pattern
// as io.Reader / sql.Driver.
type Reader interface {
	GetConfig(ctx context.Context, key string) ([]byte, error)
}

// Service loads and TTL-caches the engine configuration.
//
// Safe for concurrent use. The cached value and expiry are guarded by mu;
// at most one caller refreshes per expiry.
type Service struct {
	reader Reader
	logger *slog.Logger

	mu       sync.Mutex
	cached   SystemConfig
	hasCache bool
	expires  time.Time

	now func() time.Time // overridable in tests
}

// NewService creates a config service backed by the given reader.
func NewService(reader Reader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reader: reader,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the current engine configuration.
//
// Returns the cached value while it is younger than CacheTTL; otherwise
// re-reads from the durable store. On any failure it degrades to the last
// good value, then to Defaults(): enrichment must not fail because
// configuration is unavailable.
func (s *Service) Load(ctx context.Context) SystemConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCache && s.now().Before(s.expires) {
		return s.cached
	}

	cfg, err := s.fetch(ctx)
	if err != nil {
		if s.hasCache {
			s.logger.Warn("config reload failed, serving last good value", "error", err)
			return s.cached
		}
		s.logger.Warn("config unavailable, serving defaults", "error", err)
		return Defaults()
	}

	s.cached = cfg
	s.hasCache = true
	s.expires = s.now().Add(CacheTTL)
	return cfg
}

// Invalidate drops the cached value so the next Load re-reads the store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCache = false
	s.expires = time.Time{}
}

// fetch reads and parses the durable document. Unknown fields are ignored;
// fields absent from the document keep their default values.
func (s *Service) fetch(ctx context.Context) (SystemConfig, error) {
	raw, err := s.reader.GetConfig(ctx, ConfigKey)
	if err != nil {
		return SystemConfig{}, fmt.Errorf("reading system config: %w", err)
	}

	// Unmarshal over the defaults so a partial document still yields a
	// complete configuration.
	cfg := Defaults()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return SystemConfig{}, fmt.Errorf("parsing system config: %w", err)
	}

	s.logger.Debug("system config loaded",
		"model", cfg.Embedding.Model,
		"dimensions", cfg.Embedding.Dimensions,
		"rate_limiting", cfg.RateLimiting.Enabled,
		"similarity_threshold", cfg.Performance.SimilarityThreshold)

	return cfg, nil
}
