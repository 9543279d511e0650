package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"trend-brief/internal/models"
)

const (
	maxPromptTags = 10

	noFormatsFallback    = "No clear format pattern"
	noPowerWordsFallback = "None detected"
	noTagsFallback       = "No common tags"
)

// Composer renders the research brief handed to an external chat model.
// It keeps no state between calls beyond its Locale.
type Composer struct {
	locale *Locale
}

// NewComposer returns a Composer that formats numbers and dates with locale.
func NewComposer(locale *Locale) *Composer {
	if locale == nil {
		locale = DefaultLocale()
	}
	return &Composer{locale: locale}
}

var defaultComposer = NewComposer(nil)

// Compose renders with the en-US / UTC composer.
func Compose(keyword string, videos []models.VideoRecord, analysis *models.AnalysisResult) string {
	return defaultComposer.Compose(keyword, videos, analysis)
}

// Compose embeds the first ten videos and the detected patterns into a fixed template.
// Output is deterministic for a given input and locale.
func (c *Composer) Compose(keyword string, videos []models.VideoRecord, analysis *models.AnalysisResult) string {
	if analysis == nil {
		analysis = &models.AnalysisResult{}
	}
	top := videos[:min(len(videos), models.TopVideoCount)]

	entries := make([]string, len(top))
	for i, v := range top {
		entries[i] = c.videoEntry(i+1, v)
	}

	tags := analysis.CommonTags
	if len(tags) > maxPromptTags {
		tags = tags[:maxPromptTags]
	}

	return fmt.Sprintf(`You are a YouTube content strategist specializing in gaming content.

I researched the top trending videos for the keyword: %s

Here is the data:

%s

Patterns I noticed:
- Title formats: %s
- Power words: %s
- Avg engagement rate: %s%%
- Avg view count: %s
- Most common tags: %s

Based on this data, generate 10 viral video ideas for the %s niche.

For each idea provide:
1. Video title
2. Opening hook (first 15 seconds)
3. Thumbnail concept
4. 2-3 sentence video description`,
		keyword,
		strings.Join(entries, "\n\n"),
		joinOr(analysis.TitleFormats, noFormatsFallback),
		joinOr(analysis.PowerWords, noPowerWordsFallback),
		strconv.FormatFloat(analysis.AvgEngagementRate, 'f', -1, 64),
		c.locale.Integer(analysis.AvgViewCount),
		joinOr(tags, noTagsFallback),
		keyword,
	)
}

func (c *Composer) videoEntry(n int, v models.VideoRecord) string {
	return fmt.Sprintf(`%d. "%s"
   - Channel: %s
   - Views: %s | Likes: %s | Engagement: %.2f%%
   - Published: %s`,
		n,
		v.Title,
		v.ChannelName,
		c.locale.Integer(v.ViewCount),
		c.locale.Integer(v.LikeCount),
		v.EngagementRate,
		c.locale.Date(v.PublishedAt),
	)
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
