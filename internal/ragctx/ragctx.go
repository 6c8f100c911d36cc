// Package ragctx assembles retrieved content vectors into the named text
// sections handed to content-generation prompts, and decides when edited
// content has drifted enough to need re-embedding.
package ragctx

import "strings"

// Context is the assembled retrieval output. The first five sections are
// always present (empty string when nothing applies); the remaining four are
// populated only for relevant content types.
type Context struct {
	BrandPatterns    string `json:"brandPatterns"`
	SuccessfulStyles string `json:"successfulStyles"`
	AvoidPatterns    string `json:"avoidPatterns"`
	IndustryInsights string `json:"industryInsights"`
	SeasonalTrends   string `json:"seasonalTrends"`

	VoicePatterns       string `json:"voicePatterns,omitempty"`
	EffectiveHashtags   string `json:"effectiveHashtags,omitempty"`
	SEOKeywords         string `json:"seoKeywords,omitempty"`
	PerformanceInsights string `json:"performanceInsights,omitempty"`
}

// Empty reports whether no section carries any text.
func (c Context) Empty() bool {
	return c == Context{}
}

// sections returns pointers to every field, in presentation order.
// Truncation walks this list so a new section only needs adding here.
func (c *Context) sections() []*string {
	return []*string{
		&c.BrandPatterns,
		&c.SuccessfulStyles,
		&c.AvoidPatterns,
		&c.IndustryInsights,
		&c.SeasonalTrends,
		&c.VoicePatterns,
		&c.EffectiveHashtags,
		&c.SEOKeywords,
		&c.PerformanceInsights,
	}
}

// TotalLength returns the combined character length of all sections.
func (c Context) TotalLength() int {
	total := 0
	for _, s := range c.sections() {
		total += len(*s)
	}
	return total
}

// ShouldReVectorize reports whether newText has drifted far enough from
// oldText to warrant a fresh embedding.
//
// Either side being empty always re-embeds. Otherwise both texts are
// tokenized on whitespace, case-folded, and compared as word sets: the
// overlap ratio is |intersection| / max(|old|, |new|), and anything below
// 0.85 (a 15% change in word composition) triggers re-embedding. Small
// edits like punctuation or reordering keep the existing vector.
func ShouldReVectorize(oldText, newText string) bool {
	if oldText == "" || newText == "" {
		return true
	}

	oldTokens := tokenSet(oldText)
	newTokens := tokenSet(newText)
	if len(oldTokens) == 0 || len(newTokens) == 0 {
		return true
	}

	intersection := 0
	for tok := range newTokens {
		if oldTokens[tok] {
			intersection++
		}
	}

	denom := len(oldTokens)
	if len(newTokens) > denom {
		denom = len(newTokens)
	}
	overlap := float64(intersection) / float64(denom)
	return overlap < 0.85
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		set[tok] = true
	}
	return set
}
