package analysis

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-brief/internal/models"
)

func titled(titles ...string) []models.VideoRecord {
	videos := make([]models.VideoRecord, len(titles))
	for i, t := range titles {
		videos[i] = models.VideoRecord{ID: fmt.Sprintf("vid%d", i), Title: t}
	}
	return videos
}

func TestAnalyzeEmpty(t *testing.T) {
	got := Analyze(nil)
	require.NotNil(t, got)
	assert.Empty(t, got.TitleFormats)
	assert.Empty(t, got.PowerWords)
	assert.Empty(t, got.CommonTags)
	assert.Empty(t, got.TopVideos)
	assert.Zero(t, got.AvgEngagementRate)
	assert.Zero(t, got.AvgViewCount)

	// Empty slices, not nil, so JSON renders [] rather than null.
	assert.NotNil(t, got.TitleFormats)
	assert.NotNil(t, got.TopVideos)
}

func TestAverages(t *testing.T) {
	t.Run("view count", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{ViewCount: 100}, {ViewCount: 300}})
		assert.Equal(t, int64(200), got.AvgViewCount)
	})

	t.Run("view count rounds to nearest", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{ViewCount: 1}, {ViewCount: 2}})
		assert.Equal(t, int64(2), got.AvgViewCount)
	})

	t.Run("engagement rounds to two decimals", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{EngagementRate: 1.005}, {EngagementRate: 2.995}})
		assert.InDelta(t, 2.0, got.AvgEngagementRate, 1e-9)
	})

	t.Run("engagement is taken as given", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{ViewCount: 100, LikeCount: 50, EngagementRate: 1.234}})
		assert.InDelta(t, 1.23, got.AvgEngagementRate, 1e-9)
	})

	t.Run("non-finite engagement does not poison the mean", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{EngagementRate: math.NaN()}, {EngagementRate: 4}})
		assert.InDelta(t, 2.0, got.AvgEngagementRate, 1e-9)
	})

	t.Run("negative counts still produce a number", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{{ViewCount: -10}, {ViewCount: 30}})
		assert.Equal(t, int64(10), got.AvgViewCount)
	})
}

func TestTitleFormats(t *testing.T) {
	t.Run("survival challenge titles", func(t *testing.T) {
		got := Analyze(titled(
			"I Survived 100 Days in Minecraft Hardcore",
			"I Spent 100 Days in a Zombie Apocalypse",
		))
		assert.Contains(t, got.TitleFormats, "I Did/Spent/Played X (2 videos)")
		assert.Contains(t, got.TitleFormats, "X Days Challenge (2 videos)")
		assert.Contains(t, got.TitleFormats, "Contains Number (2 videos)")
	})

	t.Run("single match is below threshold", func(t *testing.T) {
		got := Analyze(titled(
			"Fortnite Tier List",
			"I Survived 100 Days in Minecraft Hardcore",
			"I Beat Elden Ring Without Dying",
		))
		assert.Equal(t, []string{"I Did/Spent/Played X (2 videos)"}, got.TitleFormats)
	})

	t.Run("sorted by count then table order", func(t *testing.T) {
		got := Analyze(titled(
			"Pro vs Noob (Minecraft)",
			"Pro vs Noob (Fortnite)",
			"Noob vs Hacker",
		))
		// "X vs Y" matches 3; parenthetical and "Pro vs Noob" match 2 each
		// and keep their table order.
		assert.Equal(t, []string{
			"X vs Y (3 videos)",
			"Title (Parenthetical) (2 videos)",
			"Pro vs Noob (2 videos)",
		}, got.TitleFormats)
	})

	t.Run("capped at six", func(t *testing.T) {
		title := "I Spent 100 Days, 24 Hours, 10 Kills, 5 Wins vs *Bosses* (How To) Challenge"
		got := Analyze(titled(title, title, title))
		assert.Len(t, got.TitleFormats, maxTitleFormats)
		assert.Equal(t, "I Did/Spent/Played X (3 videos)", got.TitleFormats[0])
	})

	t.Run("counts once per title", func(t *testing.T) {
		got := Analyze(titled("1 2 3 4", "5"))
		assert.Equal(t, []string{"Contains Number (2 videos)"}, got.TitleFormats)
	})
}

func TestPowerWords(t *testing.T) {
	t.Run("substring containment", func(t *testing.T) {
		got := Analyze(titled("Noobs try to Drop in"))
		assert.Contains(t, got.PowerWords, "noob")
		assert.Contains(t, got.PowerWords, "op")
	})

	t.Run("single title is enough", func(t *testing.T) {
		got := Analyze(titled("Speedrun"))
		assert.Equal(t, []string{"speedrun"}, got.PowerWords)
	})

	t.Run("ties follow vocabulary order", func(t *testing.T) {
		got := Analyze(titled("GOD glitch", "glitch hardest"))
		// glitch appears twice; god and hardest once each, hardest first in the list.
		assert.Equal(t, []string{"glitch", "hardest", "god"}, got.PowerWords)
	})

	t.Run("one increment per title", func(t *testing.T) {
		got := Analyze(titled("insane insane insane", "crazy", "crazy"))
		assert.Equal(t, []string{"crazy", "insane"}, got.PowerWords)
	})

	t.Run("capped at ten and lowercase", func(t *testing.T) {
		got := Analyze(titled(strings.Join(DefaultPowerWords, " ")))
		require.Len(t, got.PowerWords, maxPowerWords)
		for _, w := range got.PowerWords {
			assert.Equal(t, strings.ToLower(w), w)
			assert.True(t, slices.Contains(DefaultPowerWords, w))
		}
	})
}

func TestCommonTags(t *testing.T) {
	t.Run("normalizes and drops short tags", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{
			{Tags: []string{"Survival", "pv"}},
			{Tags: []string{"survival ", "pvp", "pv"}},
		})
		assert.Equal(t, []string{"survival"}, got.CommonTags)
	})

	t.Run("ties keep first-seen order", func(t *testing.T) {
		got := Analyze([]models.VideoRecord{
			{Tags: []string{"minecraft", "hardcore", "gaming"}},
			{Tags: []string{"gaming", "hardcore", "minecraft", "gaming"}},
		})
		assert.Equal(t, []string{"gaming", "minecraft", "hardcore"}, got.CommonTags)
	})

	t.Run("capped at fifteen", func(t *testing.T) {
		var tags []string
		for i := 0; i < 20; i++ {
			tags = append(tags, fmt.Sprintf("tag%02d", i))
		}
		got := Analyze([]models.VideoRecord{{Tags: tags}, {Tags: tags}})
		assert.Len(t, got.CommonTags, maxCommonTags)
		assert.Equal(t, "tag00", got.CommonTags[0])
	})
}

func TestTopVideosKeepInputOrder(t *testing.T) {
	var videos []models.VideoRecord
	for i := 0; i < 12; i++ {
		videos = append(videos, models.VideoRecord{ID: fmt.Sprintf("v%d", i), ViewCount: int64(i)})
	}
	got := Analyze(videos)
	require.Len(t, got.TopVideos, models.TopVideoCount)
	for i, v := range got.TopVideos {
		assert.Equal(t, fmt.Sprintf("v%d", i), v.ID)
	}

	// The result does not alias the caller's slice.
	got.TopVideos[0].ID = "changed"
	assert.Equal(t, "v0", videos[0].ID)
}

func TestCustomTables(t *testing.T) {
	a := NewAnalyzerWithTables(
		[]string{"raid"},
		[]TitleFormat{{Label: "Raid Guide", Pattern: regexp.MustCompile(`(?i)raid guide`)}},
	)
	got := a.Analyze(titled("Raid Guide: Vault", "RAID GUIDE part 2"))
	assert.Equal(t, []string{"raid"}, got.PowerWords)
	assert.Equal(t, []string{"Raid Guide (2 videos)"}, got.TitleFormats)
}

func TestAnalyzeConcurrent(t *testing.T) {
	videos := titled("I Spent 100 Days", "I Played 50 Days", "Tier List")
	want := Analyze(videos)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Analyze(videos))
		}()
	}
	wg.Wait()
}
