package trendresearcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trend-brief/agents/trend-researcher/youtube"
	"trend-brief/internal/models"
	"trend-brief/shared/brief"
	"trend-brief/shared/config"
	"trend-brief/shared/email"
	"trend-brief/shared/monitoring"
	"trend-brief/shared/prompt"
	"trend-brief/shared/scheduler"
	"trend-brief/shared/storage"
)

const tokenRefreshInterval = 45 * time.Minute

// ErrNoVideos is returned when a keyword search comes back empty.
var ErrNoVideos = errors.New("no videos found")

type digestSender interface {
	SendDigest(report *models.DigestReport) error
}

type tokenRefresher interface {
	RefreshToken() error
}

// TrendMetrics summarizes one watchlist pass.
type TrendMetrics struct {
	Keywords   int
	Briefs     int
	Failed     int
	Videos     int
	NewVideos  int
	DigestSent bool
}

func (m *TrendMetrics) GetSummary() string {
	return fmt.Sprintf("researched %d/%d keywords, %d videos, %d new in top lists",
		m.Briefs, m.Keywords, m.Videos, m.NewVideos)
}

// TrendAgent implements the scheduler.Agent interface
type TrendAgent struct {
	config      *config.Config
	source      youtube.Source
	store       storage.Store
	builder     *brief.Builder
	tracker     *storage.TopListTracker
	emailSender digestSender
	logger      zerolog.Logger

	refreshMu          sync.Mutex
	tokenRefreshTicker *time.Ticker
	tokenRefreshStop   chan struct{}
}

// NewTrendAgent returns an agent that persists to store (nil disables
// persistence). A nil source is created from the YouTube config on Initialize.
func NewTrendAgent(cfg *config.Config, source youtube.Source, store storage.Store, logger zerolog.Logger) *TrendAgent {
	return &TrendAgent{
		config: cfg,
		source: source,
		store:  store,
		logger: logger.With().Str("agent", "trend-researcher").Logger(),
	}
}

func (a *TrendAgent) Name() string {
	return "Trend Researcher"
}

func (a *TrendAgent) Initialize() error {
	a.logger.Info().Msgf("Initializing %s...", a.Name())

	if a.source == nil {
		source, err := youtube.NewSource(context.Background(), &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube source: %w", err)
		}
		a.source = source
		a.logger.Info().Bool("demo", source.Demo()).Msg("YouTube source initialized")
	}

	if a.builder == nil {
		locale, err := a.config.Locale()
		if err != nil {
			return err
		}
		a.builder = brief.NewBuilder(nil, prompt.NewComposer(locale))
	}

	if a.tracker == nil {
		tracker, err := storage.NewTopListTracker(a.config.Watch.DataDir, a.config.Watch.TrackerMaxAge())
		if err != nil {
			return fmt.Errorf("failed to create top list tracker: %w", err)
		}
		a.tracker = tracker
		a.logger.Info().Int("tracked", tracker.Count()).Msg("Top list tracker initialized")
	}

	if a.emailSender == nil && a.config.Email.Enabled() {
		locale, err := a.config.Locale()
		if err != nil {
			return err
		}
		sender, err := email.NewSender(&a.config.Email, locale)
		if err != nil {
			return fmt.Errorf("failed to create email sender: %w", err)
		}
		a.emailSender = sender
		a.logger.Info().Str("to", a.config.Email.ToEmail).Msg("Email sender initialized")
	}

	if _, ok := a.source.(tokenRefresher); ok && !a.source.Demo() {
		a.startTokenRefresher(tokenRefreshInterval)
	}

	return nil
}

// RunOnce researches every watchlist keyword and mails the digest.
func (a *TrendAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	keywords := a.config.Watch.Keywords
	metrics := &TrendMetrics{Keywords: len(keywords)}
	if len(keywords) == 0 {
		a.logger.Info().Msg("No watchlist keywords configured")
		events.OnSuccess(metrics, time.Since(startTime))
		return nil
	}

	filter := models.ParseVideoFilter(a.config.Watch.VideoFilter)
	report := &models.DigestReport{Date: time.Now()}

	for i, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := a.logger.With().Str("keyword", keyword).Logger()
		log.Info().Msgf("Researching keyword %d/%d", i+1, len(keywords))

		b, err := a.ResearchKeyword(ctx, keyword, a.config.Watch.MaxResults, filter)
		if err != nil {
			log.Warn().Err(err).Msg("Keyword research failed")
			report.Failed = append(report.Failed, keyword)
			continue
		}

		entry := &models.DigestEntry{
			Keyword:  b.Keyword,
			Analysis: b.Analysis,
			Prompt:   b.Prompt,
		}

		if a.store != nil {
			id, err := storage.SaveBrief(ctx, a.store, b.Keyword, b.Videos, b.Prompt)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to persist brief")
			}
			entry.SearchID = id
		}

		if a.tracker != nil {
			ids := videoIDs(b.Analysis.TopVideos)
			entry.NewVideoIDs = a.tracker.NewIDs(b.Keyword, ids)
			if err := a.tracker.Record(b.Keyword, ids); err != nil {
				log.Warn().Err(err).Msg("Failed to record top list")
			}
		}

		report.Briefs = append(report.Briefs, entry)
		metrics.Briefs++
		metrics.Videos += len(b.Videos)
		metrics.NewVideos += len(entry.NewVideoIDs)
	}

	metrics.Failed = len(report.Failed)
	if len(report.Briefs) == 0 {
		return fmt.Errorf("all %d keywords failed: %s", len(keywords), strings.Join(report.Failed, ", "))
	}

	if len(report.Failed) > 0 {
		events.OnPartialFailure(fmt.Errorf("%d/%d keywords failed: %s",
			len(report.Failed), len(keywords), strings.Join(report.Failed, ", ")), time.Since(startTime))
	}

	if a.emailSender != nil {
		a.logger.Info().Int("briefs", len(report.Briefs)).Msg("Sending digest")
		if err := a.emailSender.SendDigest(report); err != nil {
			events.OnPartialFailure(fmt.Errorf("failed to send digest: %w", err), time.Since(startTime))
		} else {
			metrics.DigestSent = true
		}
	}

	events.OnSuccess(metrics, time.Since(startTime))
	return nil
}

// ResearchKeyword searches keyword and builds its brief.
func (a *TrendAgent) ResearchKeyword(ctx context.Context, keyword string, maxResults int, filter models.VideoFilter) (*brief.Brief, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}

	videos, err := a.source.Search(ctx, keyword, maxResults, filter)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	source := "youtube"
	if a.source.Demo() {
		source = "demo"
	}
	monitoring.Metrics.SearchesTotal.WithLabelValues(string(filter), source).Inc()

	if len(videos) == 0 {
		return nil, fmt.Errorf("search %q: %w", keyword, ErrNoVideos)
	}

	b := a.builder.Build(keyword, videos)
	monitoring.Metrics.PromptsGenerated.Inc()
	return b, nil
}

func (a *TrendAgent) startTokenRefresher(interval time.Duration) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	if a.tokenRefreshTicker != nil {
		return
	}

	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	a.tokenRefreshTicker = ticker
	a.tokenRefreshStop = stop

	go func() {
		for {
			select {
			case <-ticker.C:
				refresher, ok := a.source.(tokenRefresher)
				if !ok {
					continue
				}
				if err := refresher.RefreshToken(); err != nil {
					a.logger.Warn().Err(err).Msg("Failed to refresh YouTube token")
				} else {
					a.logger.Debug().Msg("YouTube token refreshed")
				}
			case <-stop:
				return
			}
		}
	}()
}

// StopTokenRefresher stops the background token refresh, if running.
func (a *TrendAgent) StopTokenRefresher() {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	if a.tokenRefreshTicker == nil {
		return
	}
	a.tokenRefreshTicker.Stop()
	close(a.tokenRefreshStop)
	a.tokenRefreshTicker = nil
	a.tokenRefreshStop = nil
}

func videoIDs(videos []models.VideoRecord) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}
