// Package adapters maps native content records onto the engine's canonical
// text and metadata. Each content type has a one-way builder that
// concatenates labeled fields, dropping any label whose value is empty, so
// the embedded text stays stable across records with sparse fields.
package adapters

import (
	"strings"

	"github.com/brandloom/brandloom/internal/vector"
)

// Source is a content record the engine can ingest.
type Source interface {
	ContentType() vector.ContentType
	Collection() string
	Text() string
	Metadata() vector.Metadata
}

type field struct {
	label string
	value string
}

func buildText(fields []field) string {
	var parts []string
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		parts = append(parts, f.label+": "+f.value)
	}
	return strings.Join(parts, ". ")
}

// Profile is a brand profile record.
type Profile struct {
	BrandName      string   `json:"brandName"`
	Industry       string   `json:"industry"`
	Description    string   `json:"description"`
	TargetAudience string   `json:"targetAudience"`
	BrandVoice     string   `json:"brandVoice"`
	Values         []string `json:"values,omitempty"`
}

func (p Profile) ContentType() vector.ContentType { return vector.TypeProfile }
func (p Profile) Collection() string              { return "profiles" }

func (p Profile) Text() string {
	return buildText([]field{
		{"Brand", p.BrandName},
		{"Industry", p.Industry},
		{"Description", p.Description},
		{"Target audience", p.TargetAudience},
		{"Brand voice", p.BrandVoice},
		{"Values", strings.Join(p.Values, ", ")},
	})
}

func (p Profile) Metadata() vector.Metadata {
	return vector.Metadata{
		Industry: p.Industry,
		Style:    p.BrandVoice,
		Tags:     p.Values,
	}
}

// SocialPost is a published social media post.
type SocialPost struct {
	Platform string   `json:"platform"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags,omitempty"`
	Style    string   `json:"style"`
	CallTo   string   `json:"callToAction"`
}

func (p SocialPost) ContentType() vector.ContentType { return vector.TypeSocialPost }
func (p SocialPost) Collection() string              { return "social_posts" }

func (p SocialPost) Text() string {
	return buildText([]field{
		{"Platform", p.Platform},
		{"Caption", p.Caption},
		{"Hashtags", strings.Join(p.Hashtags, " ")},
		{"Style", p.Style},
		{"Call to action", p.CallTo},
	})
}

func (p SocialPost) Metadata() vector.Metadata {
	return vector.Metadata{
		Style:    p.Style,
		Platform: p.Platform,
		Tags:     p.Hashtags,
	}
}

// Article is a long-form article or blog post.
type Article struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Body     string   `json:"body"`
	Keywords []string `json:"keywords,omitempty"`
	Style    string   `json:"style"`
}

func (a Article) ContentType() vector.ContentType { return vector.TypeArticle }
func (a Article) Collection() string              { return "articles" }

func (a Article) Text() string {
	return buildText([]field{
		{"Title", a.Title},
		{"Summary", a.Summary},
		{"Body", a.Body},
		{"Keywords", strings.Join(a.Keywords, ", ")},
		{"Style", a.Style},
	})
}

func (a Article) Metadata() vector.Metadata {
	return vector.Metadata{
		Style: a.Style,
		Tags:  a.Keywords,
	}
}

// Campaign is a marketing campaign brief.
type Campaign struct {
	Name      string   `json:"name"`
	Objective string   `json:"objective"`
	Audience  string   `json:"audience"`
	Channels  []string `json:"channels,omitempty"`
	Message   string   `json:"message"`
}

func (c Campaign) ContentType() vector.ContentType { return vector.TypeCampaign }
func (c Campaign) Collection() string              { return "campaigns" }

func (c Campaign) Text() string {
	return buildText([]field{
		{"Campaign", c.Name},
		{"Objective", c.Objective},
		{"Audience", c.Audience},
		{"Channels", strings.Join(c.Channels, ", ")},
		{"Message", c.Message},
	})
}

func (c Campaign) Metadata() vector.Metadata {
	return vector.Metadata{Tags: c.Channels}
}

// SavedImage is a generated image the user kept.
type SavedImage struct {
	Title   string `json:"title"`
	Prompt  string `json:"prompt"`
	Style   string `json:"style"`
	AltText string `json:"altText"`
}

func (s SavedImage) ContentType() vector.ContentType { return vector.TypeSavedImage }
func (s SavedImage) Collection() string              { return "saved_images" }

func (s SavedImage) Text() string {
	return buildText([]field{
		{"Title", s.Title},
		{"Prompt", s.Prompt},
		{"Style", s.Style},
		{"Alt text", s.AltText},
	})
}

func (s SavedImage) Metadata() vector.Metadata {
	return vector.Metadata{Style: s.Style}
}

// Logo is a generated logo the user kept.
type Logo struct {
	BrandName string   `json:"brandName"`
	Style     string   `json:"style"`
	Colors    []string `json:"colors,omitempty"`
	Prompt    string   `json:"prompt"`
}

func (l Logo) ContentType() vector.ContentType { return vector.TypeLogo }
func (l Logo) Collection() string              { return "logos" }

func (l Logo) Text() string {
	return buildText([]field{
		{"Brand", l.BrandName},
		{"Style", l.Style},
		{"Colors", strings.Join(l.Colors, ", ")},
		{"Prompt", l.Prompt},
	})
}

func (l Logo) Metadata() vector.Metadata {
	return vector.Metadata{Style: l.Style, Tags: l.Colors}
}
