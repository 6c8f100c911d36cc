package ragctx

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brandloom/brandloom/internal/sysconfig"
	"github.com/brandloom/brandloom/internal/vector"
)

// Performance cutoffs for partitioning retrieved vectors.
const (
	highPerformanceFloor = 0.7
	lowPerformanceCeil   = 0.3
)

const (
	maxBrandExcerptLen  = 200
	maxSuccessfulStyles = 5
	maxAvoidStyles      = 3
	maxVoiceExcerpts    = 3
	maxHashtags         = 10
	maxSEOKeywords      = 8
)

// Assembler turns ranked vectors into a prompt-ready Context and enforces
// the total character budget.
type Assembler struct {
	config *sysconfig.Service
	logger *slog.Logger

	now func() time.Time // overridable in tests
}

// NewAssembler creates a context assembler.
func NewAssembler(config *sysconfig.Service, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Assemble derives each Context section from the retrieved vectors and
// truncates the result to the configured budget. Each section is an
// independent extraction over a subset of the vectors; a section with no
// applicable input stays empty.
func (a *Assembler) Assemble(ctx context.Context, userVectors, industryVectors []vector.ScoredVector, opts vector.RetrievalOptions) Context {
	p := partition(userVectors)

	out := Context{
		BrandPatterns:       brandPatterns(p.profile, p.high),
		SuccessfulStyles:    successfulStyles(p.high),
		AvoidPatterns:       avoidPatterns(p.low),
		IndustryInsights:    industryInsights(industryVectors),
		SeasonalTrends:      seasonalTrends(userVectors, a.now()),
		VoicePatterns:       voicePatterns(highOf(p.social)),
		EffectiveHashtags:   effectiveHashtags(highOf(p.social)),
		SEOKeywords:         seoKeywords(highOf(p.article)),
		PerformanceInsights: performanceInsights(userVectors),
	}

	budget := a.config.Load(ctx).Performance.MaxContextLength
	before := out.TotalLength()
	out = truncateToBudget(out, budget)

	a.logger.Debug("context assembled",
		"user_id", opts.UserID,
		"vectors", len(userVectors),
		"length", out.TotalLength(),
		"truncated", before > out.TotalLength())
	return out
}

// partitioned groups retrieved vectors by performance band and content type.
type partitioned struct {
	high    []vector.ScoredVector
	low     []vector.ScoredVector
	profile []vector.ScoredVector
	social  []vector.ScoredVector
	article []vector.ScoredVector
	image   []vector.ScoredVector
}

func partition(vecs []vector.ScoredVector) partitioned {
	var p partitioned
	for _, sv := range vecs {
		perf := sv.Vector.Metadata.Performance
		if perf > highPerformanceFloor {
			p.high = append(p.high, sv)
		}
		if perf < lowPerformanceCeil {
			p.low = append(p.low, sv)
		}
		switch sv.Vector.ContentType {
		case vector.TypeProfile:
			p.profile = append(p.profile, sv)
		case vector.TypeSocialPost:
			p.social = append(p.social, sv)
		case vector.TypeArticle:
			p.article = append(p.article, sv)
		case vector.TypeSavedImage, vector.TypeLogo:
			p.image = append(p.image, sv)
		}
	}
	return p
}

func highOf(vecs []vector.ScoredVector) []vector.ScoredVector {
	var out []vector.ScoredVector
	for _, sv := range vecs {
		if sv.Vector.Metadata.Performance > highPerformanceFloor {
			out = append(out, sv)
		}
	}
	return out
}

// brandPatterns concatenates profile excerpts with the styles that recur
// among the user's high performers.
func brandPatterns(profile, high []vector.ScoredVector) string {
	var parts []string
	for _, sv := range profile {
		excerpt := cutAtRuneBoundary(sv.Vector.TextContent, maxBrandExcerptLen)
		if excerpt != "" {
			parts = append(parts, excerpt)
		}
	}

	if styles := styleFrequencies(high); len(styles) > 0 {
		names := make([]string, 0, len(styles))
		for _, sc := range styles {
			names = append(names, sc.name)
		}
		parts = append(parts, "Recurring successful styles: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "\n")
}

func successfulStyles(high []vector.ScoredVector) string {
	styles := styleFrequencies(high)
	if len(styles) > maxSuccessfulStyles {
		styles = styles[:maxSuccessfulStyles]
	}
	if len(styles) == 0 {
		return ""
	}
	parts := make([]string, 0, len(styles))
	for _, sc := range styles {
		parts = append(parts, fmt.Sprintf("%s (%d)", sc.name, sc.count))
	}
	return "Styles that performed well: " + strings.Join(parts, ", ")
}

func avoidPatterns(low []vector.ScoredVector) string {
	styles := styleFrequencies(low)
	if len(styles) > maxAvoidStyles {
		styles = styles[:maxAvoidStyles]
	}
	if len(styles) == 0 {
		return ""
	}
	names := make([]string, 0, len(styles))
	for _, sc := range styles {
		names = append(names, sc.name)
	}
	return "Avoid these underperforming styles: " + strings.Join(names, ", ")
}

// industryInsights is an extension point: cross-user industry patterns are
// not collected yet, so the section stays empty whatever comes in.
func industryInsights(_ []vector.ScoredVector) string {
	return ""
}

// seasonalTrends surfaces the styles recurring among vectors created in the
// current calendar month.
func seasonalTrends(vecs []vector.ScoredVector, now time.Time) string {
	var current []vector.ScoredVector
	for _, sv := range vecs {
		created := sv.Vector.CreatedAt
		if created.Year() == now.Year() && created.Month() == now.Month() {
			current = append(current, sv)
		}
	}
	styles := styleFrequencies(current)
	if len(styles) == 0 {
		return ""
	}
	names := make([]string, 0, len(styles))
	for _, sc := range styles {
		names = append(names, sc.name)
	}
	return "Trending this month: " + strings.Join(names, ", ")
}

// voicePatterns pulls up to three first-sentence excerpts from high
// performing social posts. Excerpts shorter than 10 characters are skipped
// and longer ones are cut at 100.
func voicePatterns(highSocial []vector.ScoredVector) string {
	var excerpts []string
	for _, sv := range highSocial {
		if len(excerpts) == maxVoiceExcerpts {
			break
		}
		sentence := firstSentence(sv.Vector.TextContent)
		if len(sentence) < 10 {
			continue
		}
		sentence = cutAtRuneBoundary(sentence, 100)
		excerpts = append(excerpts, sentence)
	}
	if len(excerpts) == 0 {
		return ""
	}
	return "Voice examples: " + strings.Join(excerpts, " | ")
}

func effectiveHashtags(highSocial []vector.ScoredVector) string {
	tags := tagFrequencies(highSocial)
	if len(tags) > maxHashtags {
		tags = tags[:maxHashtags]
	}
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for _, tc := range tags {
		parts = append(parts, "#"+strings.TrimPrefix(tc.name, "#"))
	}
	return strings.Join(parts, " ")
}

func seoKeywords(highArticles []vector.ScoredVector) string {
	tags := tagFrequencies(highArticles)
	if len(tags) > maxSEOKeywords {
		tags = tags[:maxSEOKeywords]
	}
	if len(tags) == 0 {
		return ""
	}
	names := make([]string, 0, len(tags))
	for _, tc := range tags {
		names = append(names, tc.name)
	}
	return strings.Join(names, ", ")
}

// performanceInsights summarizes the mean performance across everything
// retrieved. Means in the middle band produce no section.
func performanceInsights(vecs []vector.ScoredVector) string {
	if len(vecs) == 0 {
		return ""
	}
	sum := 0.0
	for _, sv := range vecs {
		sum += sv.Vector.Metadata.Performance
	}
	mean := sum / float64(len(vecs))
	switch {
	case mean > highPerformanceFloor:
		return "Your recent content is performing well; keep building on these patterns."
	case mean < lowPerformanceCeil:
		return "Recent content has underperformed; consider a different style or angle."
	default:
		return ""
	}
}

// cutAtRuneBoundary truncates s to at most max bytes without splitting a
// multi-byte rune.
func cutAtRuneBoundary(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// firstSentence returns text up to and including the first sentence
// terminator, or the whole text if there is none.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

type freq struct {
	name  string
	count int
}

func styleFrequencies(vecs []vector.ScoredVector) []freq {
	counts := make(map[string]int)
	for _, sv := range vecs {
		if s := sv.Vector.Metadata.Style; s != "" {
			counts[s]++
		}
	}
	return sortedFreqs(counts)
}

func tagFrequencies(vecs []vector.ScoredVector) []freq {
	counts := make(map[string]int)
	for _, sv := range vecs {
		for _, tag := range sv.Vector.Metadata.Tags {
			if tag != "" {
				counts[tag]++
			}
		}
	}
	return sortedFreqs(counts)
}

// sortedFreqs orders by count descending, ties broken alphabetically so the
// output is deterministic.
func sortedFreqs(counts map[string]int) []freq {
	out := make([]freq, 0, len(counts))
	for name, count := range counts {
		out = append(out, freq{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// truncateToBudget cuts each populated section to an even share of the
// budget, marking cut sections with an ellipsis. Within budget the context
// is returned untouched.
func truncateToBudget(c Context, budget int) Context {
	if budget <= 0 || c.TotalLength() <= budget {
		return c
	}

	populated := 0
	for _, s := range c.sections() {
		if *s != "" {
			populated++
		}
	}
	if populated == 0 {
		return c
	}

	share := budget / populated
	for _, s := range c.sections() {
		if len(*s) > share {
			*s = cutAtRuneBoundary(*s, share) + "..."
		}
	}
	return c
}
