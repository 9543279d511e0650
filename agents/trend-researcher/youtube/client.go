package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
	"trend-brief/shared/monitoring"
)

// ErrQuotaExceeded is returned when the project's daily YouTube quota is spent.
var ErrQuotaExceeded = errors.New("youtube API quota exceeded")

const (
	maxSearchPage  = 50
	shortsDuration = "short" // YouTube's own bucket: under 4 minutes
	maxRetryTries  = 3
)

// Client searches YouTube through the Data API v3. Each search costs about
// 101 quota units: 100 for search.list and 1 for videos.list.
type Client struct {
	service      *youtube.Service
	config       *config.YouTubeConfig
	limiter      *rate.Limiter
	auth         *tokenSaver
	retryInitial time.Duration
	now          func() time.Time
}

// NewClient authenticates with the API key when one is set, otherwise with
// the OAuth client and its saved token.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig) (*Client, error) {
	var (
		opts []option.ClientOption
		auth *tokenSaver
	)

	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		oauthConfig := newOAuthConfig(cfg)
		token, err := getToken(ctx, oauthConfig, cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get OAuth token: %w", err)
		}
		auth = &tokenSaver{config: oauthConfig, token: token, tokenFile: cfg.TokenFile}
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(ctx, auth)))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	c := newClient(service, cfg)
	c.auth = auth
	return c, nil
}

func newClient(service *youtube.Service, cfg *config.YouTubeConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		service:      service,
		config:       cfg,
		limiter:      rate.NewLimiter(limit, 1),
		retryInitial: time.Second,
		now:          time.Now,
	}
}

func (c *Client) Demo() bool { return false }

// RefreshToken keeps an OAuth token fresh between scheduled runs. It does
// nothing for API-key clients.
func (c *Client) RefreshToken() error {
	if c.auth == nil {
		return nil
	}
	return c.auth.Refresh()
}

// Search returns up to maxResults videos for keyword from the last
// LookbackDays days, most viewed first, restricted by filter.
func (c *Client) Search(ctx context.Context, keyword string, maxResults int, filter models.VideoFilter) ([]models.VideoRecord, error) {
	// Over-fetch when a filter is active so trimming can still fill maxResults.
	fetchCount := maxSearchPage
	if filter == models.FilterAll {
		fetchCount = min(maxResults, maxSearchPage)
	}

	ids, err := c.searchVideoIDs(ctx, keyword, fetchCount, filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.VideoRecord{}, nil
	}

	videos, err := c.fetchVideoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	log.Printf("YouTube search %q (%s): %d ids, %d with details", keyword, filter, len(ids), len(videos))
	return rankAndTrim(videos, maxResults, filter), nil
}

func (c *Client) searchVideoIDs(ctx context.Context, keyword string, fetchCount int, filter models.VideoFilter) ([]string, error) {
	publishedAfter := c.now().AddDate(0, 0, -c.config.LookbackDays).UTC().Format(time.RFC3339)

	resp, err := call(ctx, c, "search.list", func() (*youtube.SearchListResponse, error) {
		req := c.service.Search.List([]string{"id"}).
			Q(keyword).
			Type("video").
			Order("viewCount").
			VideoCategoryId(c.config.CategoryID).
			RelevanceLanguage(c.config.Language).
			PublishedAfter(publishedAfter).
			MaxResults(int64(fetchCount))
		if filter == models.FilterShorts {
			req = req.VideoDuration(shortsDuration)
		}
		return req.Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("YouTube search.list failed: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, nil
}

func (c *Client) fetchVideoDetails(ctx context.Context, ids []string) ([]models.VideoRecord, error) {
	resp, err := call(ctx, c, "videos.list", func() (*youtube.VideoListResponse, error) {
		return c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(strings.Join(ids, ",")).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("YouTube videos.list failed: %w", err)
	}

	videos := make([]models.VideoRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, toVideoRecord(item))
	}
	return videos, nil
}

// call paces, retries and counts one API request.
func call[T any](ctx context.Context, c *Client, method string, do func() (T, error)) (T, error) {
	operation := func() (T, error) {
		var zero T
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		result, err := do()
		if err == nil {
			monitoring.Metrics.YouTubeCalls.WithLabelValues(method, "ok").Inc()
			return result, nil
		}

		err = classifyError(err)
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			monitoring.Metrics.YouTubeCalls.WithLabelValues(method, "quota").Inc()
			return zero, backoff.Permanent(err)
		case isRetryable(err):
			monitoring.Metrics.YouTubeCalls.WithLabelValues(method, "retry").Inc()
			log.Printf("YouTube %s failed, retrying: %v", method, err)
			return zero, err
		default:
			monitoring.Metrics.YouTubeCalls.WithLabelValues(method, "error").Inc()
			return zero, backoff.Permanent(err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxRetryTries), backoff.WithMaxElapsedTime(30*time.Second))
}

// classifyError maps quota exhaustion onto ErrQuotaExceeded.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
				return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
			}
		}
	}
	return err
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

func toVideoRecord(item *youtube.Video) models.VideoRecord {
	v := models.VideoRecord{ID: item.Id, Tags: []string{}}

	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.ChannelName = s.ChannelTitle
		if s.Tags != nil {
			v.Tags = s.Tags
		}
		if publishedAt, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.PublishedAt = publishedAt
		}
		if s.Thumbnails != nil && s.Thumbnails.Medium != nil {
			v.ThumbnailURL = s.Thumbnails.Medium.Url
		}
	}

	if st := item.Statistics; st != nil {
		v.ViewCount = int64(st.ViewCount)
		v.LikeCount = int64(st.LikeCount)
		v.CommentCount = int64(st.CommentCount)
	}

	if cd := item.ContentDetails; cd != nil {
		secs := parseDurationSeconds(cd.Duration)
		v.DurationSeconds = &secs
		v.Duration = formatDuration(secs)
	}

	v.EngagementRate = models.EngagementRate(v.ViewCount, v.LikeCount)
	return v
}

// rankAndTrim applies filter, orders by views (stable) and caps at maxResults.
func rankAndTrim(videos []models.VideoRecord, maxResults int, filter models.VideoFilter) []models.VideoRecord {
	kept := make([]models.VideoRecord, 0, len(videos))
	for _, v := range videos {
		if filter.Keep(v.DurationSeconds) {
			kept = append(kept, v)
		}
	}

	slices.SortStableFunc(kept, func(a, b models.VideoRecord) int {
		switch {
		case a.ViewCount > b.ViewCount:
			return -1
		case a.ViewCount < b.ViewCount:
			return 1
		default:
			return 0
		}
	})

	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}

var isoDuration = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// parseDurationSeconds reads ISO 8601 durations such as "PT1M30S".
func parseDurationSeconds(duration string) int {
	if duration == "" {
		return 0
	}

	matches := isoDuration.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int
	if matches[1] != "" {
		if hours, err := strconv.Atoi(matches[1]); err == nil {
			totalSeconds += hours * 3600
		}
	}
	if matches[2] != "" {
		if minutes, err := strconv.Atoi(matches[2]); err == nil {
			totalSeconds += minutes * 60
		}
	}
	if matches[3] != "" {
		if seconds, err := strconv.Atoi(matches[3]); err == nil {
			totalSeconds += seconds
		}
	}

	return totalSeconds
}

// formatDuration renders seconds as "m:ss", or "h:mm:ss" from one hour up.
func formatDuration(totalSeconds int) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
