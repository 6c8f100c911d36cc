// Package vector persists and retrieves per-user content vectors.
//
// It owns the ContentVector model, the storage layer over PostgreSQL +
// pgvector, quota checking derived from write history, exact cosine
// similarity search, and lifecycle cleanup. Ranking is performed in process
// over a linear scan of the user's vectors; the storage column is pgvector
// for inspection and future index support, but correctness comes from the
// exact in-memory ranking.
package vector

import "time"

// ContentType identifies the kind of source content a vector was built from.
type ContentType string

// Known content types.
const (
	TypeProfile    ContentType = "profile"
	TypeSocialPost ContentType = "social_post"
	TypeArticle    ContentType = "article"
	TypeCampaign   ContentType = "campaign"
	TypeSavedImage ContentType = "saved_image"
	TypeLogo       ContentType = "logo"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case TypeProfile, TypeSocialPost, TypeArticle, TypeCampaign, TypeSavedImage, TypeLogo:
		return true
	}
	return false
}

// Metadata describes a stored vector's content characteristics.
// Performance is always kept within [0,1]; use Clamp01 before writes.
type Metadata struct {
	Industry    string   `json:"industry,omitempty"`
	Style       string   `json:"style,omitempty"`
	Performance float64  `json:"performance"`
	Engagement  int      `json:"engagement"`
	Platform    string   `json:"platform,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// MetadataPatch is a partial metadata update. Nil fields are left unchanged;
// Tags replaces the whole list when non-nil.
type MetadataPatch struct {
	Industry    *string
	Style       *string
	Performance *float64
	Engagement  *int
	Platform    *string
	Tags        []string
}

// Apply merges the patch over m and returns the result.
// Performance is clamped to [0,1].
func (p MetadataPatch) Apply(m Metadata) Metadata {
	if p.Industry != nil {
		m.Industry = *p.Industry
	}
	if p.Style != nil {
		m.Style = *p.Style
	}
	if p.Performance != nil {
		m.Performance = Clamp01(*p.Performance)
	}
	if p.Engagement != nil {
		m.Engagement = *p.Engagement
	}
	if p.Platform != nil {
		m.Platform = *p.Platform
	}
	if p.Tags != nil {
		m.Tags = p.Tags
	}
	return m
}

// ContentVector is one embedded content item, scoped to a user.
//
// ContentID is unique within a user's vector set by convention only: the
// write path enforces it via update-by-lookup, not a schema constraint.
// The vector may outlive its source record (no deletion cascade).
type ContentVector struct {
	ID               string
	UserID           string
	ContentType      ContentType
	ContentID        string
	Embedding        []float32
	TextContent      string
	Metadata         Metadata
	SourceCollection string
	SourceDocID      string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScoredVector pairs a stored vector with its similarity to a query.
type ScoredVector struct {
	Vector     ContentVector
	Similarity float64
}

// Timeframe restricts retrieval by vector age.
type Timeframe string

// Timeframe values. The zero value behaves like TimeframeAll.
const (
	TimeframeRecent Timeframe = "recent"
	TimeframeAll    Timeframe = "all"
	Timeframe30Days Timeframe = "30days"
	Timeframe90Days Timeframe = "90days"
)

// MaxAge returns the age cutoff for the timeframe, or 0 for no cutoff.
func (tf Timeframe) MaxAge() time.Duration {
	switch tf {
	case TimeframeRecent, Timeframe30Days:
		return 30 * 24 * time.Hour
	case Timeframe90Days:
		return 90 * 24 * time.Hour
	default:
		return 0
	}
}

// DefaultRetrievalLimit is the maximum result count when none is given.
const DefaultRetrievalLimit = 10

// RetrievalOptions parameterizes a similarity query.
type RetrievalOptions struct {
	UserID                  string
	ContentType             ContentType // empty = all types
	Industry                string
	MinPerformance          *float64 // nil = no performance floor
	Limit                   int      // 0 = DefaultRetrievalLimit
	IncludeIndustryPatterns bool
	Timeframe               Timeframe
}

// EffectiveLimit returns the result cap, applying the default.
func (o RetrievalOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultRetrievalLimit
	}
	return o.Limit
}

// RateOverride is a per-user quota override record.
// It only takes effect when the user has opted into custom limits.
type RateOverride struct {
	CustomLimits bool
	MaxPerHour   int
	MaxPerDay    int
}

// Clamp01 clamps v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
