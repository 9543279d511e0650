package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"trend-brief/internal/models"
)

var published = time.Date(2025, time.March, 7, 15, 30, 0, 0, time.UTC)

func sampleVideo() models.VideoRecord {
	return models.VideoRecord{
		ID:             "abc123",
		Title:          "I Survived 100 Days in Minecraft Hardcore",
		ChannelName:    "Blocky",
		PublishedAt:    published,
		ViewCount:      1234567,
		LikeCount:      45678,
		EngagementRate: 3.69999,
	}
}

func TestComposeFullPrompt(t *testing.T) {
	c := NewComposer(NewLocale(language.AmericanEnglish, time.UTC))
	analysis := &models.AnalysisResult{
		TitleFormats:      []string{"X Days Challenge (2 videos)", "Contains Number (2 videos)"},
		PowerWords:        []string{"100", "hardcore"},
		AvgEngagementRate: 3.7,
		CommonTags:        []string{"minecraft", "survival"},
		AvgViewCount:      1234567,
	}

	got := c.Compose("minecraft", []models.VideoRecord{sampleVideo()}, analysis)

	want := `You are a YouTube content strategist specializing in gaming content.

I researched the top trending videos for the keyword: minecraft

Here is the data:

1. "I Survived 100 Days in Minecraft Hardcore"
   - Channel: Blocky
   - Views: 1,234,567 | Likes: 45,678 | Engagement: 3.70%
   - Published: 3/7/2025

Patterns I noticed:
- Title formats: X Days Challenge (2 videos), Contains Number (2 videos)
- Power words: 100, hardcore
- Avg engagement rate: 3.7%
- Avg view count: 1,234,567
- Most common tags: minecraft, survival

Based on this data, generate 10 viral video ideas for the minecraft niche.

For each idea provide:
1. Video title
2. Opening hook (first 15 seconds)
3. Thumbnail concept
4. 2-3 sentence video description`

	assert.Equal(t, want, got)
}

func TestComposeEmpty(t *testing.T) {
	got := Compose("fortnite", nil, &models.AnalysisResult{})

	assert.Contains(t, got, "Here is the data:\n\n\n\nPatterns I noticed:")
	assert.Contains(t, got, "- Title formats: No clear format pattern\n")
	assert.Contains(t, got, "- Power words: None detected\n")
	assert.Contains(t, got, "- Avg engagement rate: 0%\n")
	assert.Contains(t, got, "- Avg view count: 0\n")
	assert.Contains(t, got, "- Most common tags: No common tags\n")
}

func TestComposeNilAnalysis(t *testing.T) {
	assert.NotPanics(t, func() {
		got := Compose("valorant", nil, nil)
		assert.Contains(t, got, "No clear format pattern")
	})
}

func TestComposeLimits(t *testing.T) {
	var videos []models.VideoRecord
	for i := 1; i <= 12; i++ {
		v := sampleVideo()
		v.Title = fmt.Sprintf("Video %d", i)
		videos = append(videos, v)
	}
	var tags []string
	for i := 1; i <= 15; i++ {
		tags = append(tags, fmt.Sprintf("tag%d", i))
	}

	got := Compose("apex", videos, &models.AnalysisResult{CommonTags: tags})

	assert.Contains(t, got, `10. "Video 10"`)
	assert.NotContains(t, got, `"Video 11"`)
	assert.Contains(t, got, "tag10\n")
	assert.NotContains(t, got, "tag11")
}

func TestComposeDeterministic(t *testing.T) {
	videos := []models.VideoRecord{sampleVideo(), sampleVideo()}
	analysis := &models.AnalysisResult{PowerWords: []string{"hardcore"}, AvgViewCount: 42}

	first := Compose("minecraft", videos, analysis)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Compose("minecraft", videos, analysis))
	}
}

func TestComposeLocale(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	c := NewComposer(NewLocale(language.German, berlin))
	v := sampleVideo()
	v.PublishedAt = time.Date(2025, time.March, 7, 23, 30, 0, 0, time.UTC)

	got := c.Compose("minecraft", []models.VideoRecord{v}, &models.AnalysisResult{AvgViewCount: 9876543})

	assert.Contains(t, got, "Views: 1.234.567 | Likes: 45.678")
	assert.Contains(t, got, "Avg view count: 9.876.543")
	// 23:30 UTC is already the next day in Berlin.
	assert.Contains(t, got, "Published: 8.3.2025")
	// Per-video engagement keeps a dot regardless of locale.
	assert.Contains(t, got, "Engagement: 3.70%")
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		zone    string
		wantErr bool
		date    string
	}{
		{"us english", "en-US", "UTC", false, "3/7/2025"},
		{"british english", "en-GB", "", false, "07/03/2025"},
		{"japanese", "ja", "Asia/Tokyo", false, "2025/3/8"},
		{"unlisted language falls back to ISO", "sw", "", false, "2025-03-07"},
		{"bad tag", "not a tag!", "", true, ""},
		{"bad zone", "en-US", "Mars/Olympus", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocale(tt.tag, tt.zone)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, loc.Date(time.Date(2025, time.March, 7, 18, 0, 0, 0, time.UTC)))
		})
	}
}

func TestVideoEntryQuotesTitle(t *testing.T) {
	c := NewComposer(nil)
	entry := c.videoEntry(3, sampleVideo())
	assert.True(t, strings.HasPrefix(entry, `3. "I Survived`))
}
