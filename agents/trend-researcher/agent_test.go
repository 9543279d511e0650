package trendresearcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
	"trend-brief/shared/scheduler"
	"trend-brief/shared/storage"
)

type fakeSource struct {
	results   map[string][]models.VideoRecord
	errs      map[string]error
	refreshes atomic.Int32
}

func (f *fakeSource) Search(_ context.Context, keyword string, maxResults int, _ models.VideoFilter) ([]models.VideoRecord, error) {
	if err := f.errs[keyword]; err != nil {
		return nil, err
	}
	videos := f.results[keyword]
	if len(videos) > maxResults {
		videos = videos[:maxResults]
	}
	return videos, nil
}

func (f *fakeSource) Demo() bool { return false }

func (f *fakeSource) RefreshToken() error {
	f.refreshes.Add(1)
	return nil
}

type fakeSender struct {
	reports []*models.DigestReport
	err     error
}

func (f *fakeSender) SendDigest(report *models.DigestReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

type recordedEvents struct {
	successes []scheduler.Metrics
	partials  []error
}

func (r *recordedEvents) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess:         func(m scheduler.Metrics, _ time.Duration) { r.successes = append(r.successes, m) },
		OnPartialFailure:  func(err error, _ time.Duration) { r.partials = append(r.partials, err) },
		OnCriticalFailure: func(err error, _ time.Duration) {},
	}
}

func videosFor(prefix string, n int) []models.VideoRecord {
	videos := make([]models.VideoRecord, n)
	for i := range videos {
		videos[i] = models.VideoRecord{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Title:     fmt.Sprintf("%s video %d", prefix, i),
			ViewCount: int64(1000 * (n - i)),
			LikeCount: int64(50 * (n - i)),
		}
	}
	return videos
}

func testConfig(t *testing.T, keywords ...string) *config.Config {
	t.Helper()
	return &config.Config{
		Prompt: config.PromptConfig{Locale: "en-US", Timezone: "UTC"},
		Watch: config.WatchConfig{
			Keywords:          keywords,
			MaxResults:        5,
			VideoFilter:       "all",
			DataDir:           t.TempDir(),
			TrackerMaxAgeDays: 14,
		},
	}
}

func newTestAgent(t *testing.T, cfg *config.Config, source *fakeSource, store storage.Store) (*TrendAgent, *fakeSender) {
	t.Helper()
	agent := NewTrendAgent(cfg, source, store, zerolog.Nop())
	sender := &fakeSender{}
	agent.emailSender = sender
	require.NoError(t, agent.Initialize())
	t.Cleanup(agent.StopTokenRefresher)
	return agent, sender
}

func TestTrendAgentName(t *testing.T) {
	agent := NewTrendAgent(&config.Config{}, nil, nil, zerolog.Nop())
	assert.Equal(t, "Trend Researcher", agent.Name())
}

func TestTrendMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  TrendMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  TrendMetrics{},
			expected: "researched 0/0 keywords, 0 videos, 0 new in top lists",
		},
		{
			name:     "Partial run",
			metrics:  TrendMetrics{Keywords: 3, Briefs: 2, Failed: 1, Videos: 40, NewVideos: 4},
			expected: "researched 2/3 keywords, 40 videos, 4 new in top lists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.metrics.GetSummary())
		})
	}
}

func TestRunOnceBuildsDigest(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &fakeSource{results: map[string][]models.VideoRecord{
		"minecraft": videosFor("mc", 8),
		"fortnite":  videosFor("fn", 3),
	}}
	agent, sender := newTestAgent(t, testConfig(t, "minecraft", "fortnite"), source, store)

	var rec recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	assert.Empty(t, rec.partials)
	require.Len(t, rec.successes, 1)
	metrics := rec.successes[0].(*TrendMetrics)
	assert.Equal(t, 2, metrics.Briefs)
	assert.Equal(t, 8, metrics.Videos) // capped at max_results 5 + 3
	assert.True(t, metrics.DigestSent)

	require.Len(t, sender.reports, 1)
	report := sender.reports[0]
	require.Len(t, report.Briefs, 2)
	assert.Empty(t, report.Failed)

	mc := report.Briefs[0]
	assert.Equal(t, "minecraft", mc.Keyword)
	assert.Contains(t, mc.Prompt, "for the keyword: minecraft")
	assert.Len(t, mc.NewVideoIDs, len(mc.Analysis.TopVideos), "first run marks every top video as new")

	saved, err := store.ListVideos(context.Background(), mc.SearchID)
	require.NoError(t, err)
	assert.Len(t, saved, 5)
	p, err := store.LatestPrompt(context.Background(), mc.SearchID)
	require.NoError(t, err)
	assert.Equal(t, mc.Prompt, p.PromptText)

	// Second run: same top lists, nothing new.
	var rec2 recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec2.events()))
	for _, entry := range sender.reports[1].Briefs {
		assert.Empty(t, entry.NewVideoIDs, entry.Keyword)
	}
	assert.Equal(t, 0, rec2.successes[0].(*TrendMetrics).NewVideos)
}

func TestRunOnceWithoutStore(t *testing.T) {
	source := &fakeSource{results: map[string][]models.VideoRecord{"minecraft": videosFor("mc", 2)}}
	agent, sender := newTestAgent(t, testConfig(t, "minecraft"), source, nil)

	var rec recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, sender.reports, 1)
	assert.Empty(t, sender.reports[0].Briefs[0].SearchID)
}

func TestRunOncePartialFailure(t *testing.T) {
	source := &fakeSource{
		results: map[string][]models.VideoRecord{"minecraft": videosFor("mc", 3)},
		errs:    map[string]error{"fortnite": errors.New("quota exceeded")},
	}
	agent, sender := newTestAgent(t, testConfig(t, "minecraft", "fortnite", "empty"), source, nil)

	var rec recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, rec.partials, 1)
	assert.Contains(t, rec.partials[0].Error(), "2/3 keywords failed: fortnite, empty")
	require.Len(t, rec.successes, 1)
	assert.Equal(t, 1, rec.successes[0].(*TrendMetrics).Briefs)

	require.Len(t, sender.reports, 1)
	assert.Equal(t, []string{"fortnite", "empty"}, sender.reports[0].Failed)
}

func TestRunOnceAllKeywordsFail(t *testing.T) {
	source := &fakeSource{errs: map[string]error{"minecraft": errors.New("boom")}}
	agent, sender := newTestAgent(t, testConfig(t, "minecraft", "empty"), source, nil)

	var rec recordedEvents
	err := agent.RunOnce(context.Background(), rec.events())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 keywords failed")
	assert.Empty(t, rec.successes)
	assert.Empty(t, sender.reports)
}

func TestRunOnceEmailFailureIsPartial(t *testing.T) {
	source := &fakeSource{results: map[string][]models.VideoRecord{"minecraft": videosFor("mc", 2)}}
	agent, sender := newTestAgent(t, testConfig(t, "minecraft"), source, nil)
	sender.err = errors.New("smtp down")

	var rec recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, rec.partials, 1)
	assert.Contains(t, rec.partials[0].Error(), "failed to send digest")
	require.Len(t, rec.successes, 1)
	assert.False(t, rec.successes[0].(*TrendMetrics).DigestSent)
}

func TestRunOnceNoKeywords(t *testing.T) {
	agent, sender := newTestAgent(t, testConfig(t), &fakeSource{}, nil)

	var rec recordedEvents
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	assert.Len(t, rec.successes, 1)
	assert.Empty(t, sender.reports)
}

func TestResearchKeyword(t *testing.T) {
	source := &fakeSource{results: map[string][]models.VideoRecord{"minecraft": videosFor("mc", 4)}}
	agent, _ := newTestAgent(t, testConfig(t), source, nil)
	ctx := context.Background()

	b, err := agent.ResearchKeyword(ctx, "  minecraft ", 3, models.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, "minecraft", b.Keyword)
	assert.Len(t, b.Videos, 3)
	assert.Equal(t, b.Videos, b.Analysis.TopVideos)

	_, err = agent.ResearchKeyword(ctx, "nothing", 3, models.FilterAll)
	assert.ErrorIs(t, err, ErrNoVideos)

	_, err = agent.ResearchKeyword(ctx, "   ", 3, models.FilterAll)
	assert.Error(t, err)
}

func TestTokenRefresherLifecycle(t *testing.T) {
	source := &fakeSource{}
	agent := NewTrendAgent(testConfig(t), source, nil, zerolog.Nop())

	t.Run("StartsAndStops", func(t *testing.T) {
		agent.startTokenRefresher(20 * time.Millisecond)

		if agent.tokenRefreshTicker == nil {
			t.Error("Token refresher ticker not created")
		}
		if agent.tokenRefreshStop == nil {
			t.Error("Token refresher stop channel not created")
		}

		time.Sleep(70 * time.Millisecond)
		agent.StopTokenRefresher()

		if agent.tokenRefreshTicker != nil {
			t.Error("Token refresher ticker not cleaned up")
		}
		if agent.tokenRefreshStop != nil {
			t.Error("Token refresher stop channel not cleaned up")
		}
		if source.refreshes.Load() == 0 {
			t.Error("Token was never refreshed")
		}
	})

	t.Run("MultipleStarts", func(t *testing.T) {
		agent.startTokenRefresher(100 * time.Millisecond)
		firstTicker := agent.tokenRefreshTicker

		agent.startTokenRefresher(200 * time.Millisecond)
		if agent.tokenRefreshTicker != firstTicker {
			t.Error("Starting refresher twice created a new ticker")
		}

		agent.StopTokenRefresher()
	})

	t.Run("StopWithoutStart", func(t *testing.T) {
		agent.StopTokenRefresher()
	})
}
