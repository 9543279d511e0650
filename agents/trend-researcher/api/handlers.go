package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"trend-brief/agents/trend-researcher/youtube"
	"trend-brief/internal/models"
	"trend-brief/shared/cache"
	"trend-brief/shared/monitoring"
	"trend-brief/shared/storage"
)

var emptyResultMessages = map[models.VideoFilter]string{
	models.FilterShorts:   "No Shorts found for this keyword. Try increasing max results or switching to All.",
	models.FilterLongform: "No long-form videos found for this keyword.",
	models.FilterAll:      "No videos found for this keyword.",
}

type searchRequest struct {
	Keyword     string      `json:"keyword"`
	MaxResults  flexibleInt `json:"maxResults"`
	VideoFilter string      `json:"videoFilter"`
}

type analyzeRequest struct {
	SearchID string `json:"search_id"`
}

// flexibleInt accepts a JSON number or a numeric string. Anything else is
// left at zero and treated as absent.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexibleInt(n)
	return nil
}

func errorResponse(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// handleSearch handles POST /api/youtube.
func (s *Server) handleSearch(c fiber.Ctx) error {
	var req searchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return errorResponse(c, fiber.StatusBadRequest, "keyword is required")
	}

	maxResults := int(req.MaxResults)
	if maxResults < 1 {
		maxResults = defaultMaxResults
	}
	maxResults = min(maxResults, s.resultsCap)
	filter := models.ParseVideoFilter(req.VideoFilter)

	ctx := c.Context()
	videos, sourceLabel, err := s.search(ctx, keyword, maxResults, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("keyword", keyword).Msg("search failed")
		if errors.Is(err, youtube.ErrQuotaExceeded) {
			return errorResponse(c, fiber.StatusServiceUnavailable, "YouTube API quota exceeded, try again later")
		}
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
	monitoring.Metrics.SearchesTotal.WithLabelValues(string(filter), sourceLabel).Inc()

	if len(videos) == 0 {
		return errorResponse(c, fiber.StatusNotFound, emptyResultMessages[filter])
	}

	b := s.builder.Build(keyword, videos)
	monitoring.Metrics.PromptsGenerated.Inc()

	return c.JSON(models.SearchResponse{
		SearchID:    s.persist(ctx, b.Keyword, b.Videos, b.Prompt),
		Keyword:     b.Keyword,
		Videos:      b.Videos,
		Analysis:    b.Analysis,
		Prompt:      b.Prompt,
		Demo:        s.source.Demo(),
		VideoFilter: filter,
	})
}

// search consults the cache before the source. The label names where the
// videos came from.
func (s *Server) search(ctx context.Context, keyword string, maxResults int, filter models.VideoFilter) ([]models.VideoRecord, string, error) {
	if cached, err := s.cache.Get(ctx, keyword, filter, maxResults); err != nil {
		s.logger.Warn().Err(err).Msg("cache read failed")
	} else if cached != nil {
		return cached.Videos, "cache", nil
	}

	videos, err := s.source.Search(ctx, keyword, maxResults, filter)
	if err != nil {
		return nil, "", err
	}

	if len(videos) > 0 {
		entry := &cache.CachedSearch{Videos: videos, Demo: s.source.Demo()}
		if err := s.cache.Set(ctx, keyword, filter, maxResults, entry); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}

	label := "youtube"
	if s.source.Demo() {
		label = "demo"
	}
	return videos, label, nil
}

// persist saves the brief when a store is configured. Failures are logged
// and the caller still gets a usable search ID.
func (s *Server) persist(ctx context.Context, keyword string, videos []models.VideoRecord, prompt string) string {
	if s.store == nil {
		return uuid.NewString()
	}

	id, err := storage.SaveBrief(ctx, s.store, keyword, videos, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("search_id", id).Msg("failed to persist search")
	}
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// handleAnalyze handles POST /api/analyze, rebuilding the brief of a saved search.
func (s *Server) handleAnalyze(c fiber.Ctx) error {
	var req analyzeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.SearchID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "search_id is required")
	}
	if s.store == nil {
		return errorResponse(c, fiber.StatusNotFound, "Search not found")
	}

	ctx := c.Context()
	search, err := s.store.GetSearch(ctx, req.SearchID)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "Search not found")
	}
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	videos, err := s.store.ListVideos(ctx, search.ID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
	if len(videos) == 0 {
		return errorResponse(c, fiber.StatusNotFound, "No videos found for this search")
	}

	b := s.builder.Build(search.Keyword, videos)
	monitoring.Metrics.PromptsGenerated.Inc()

	return c.JSON(models.SearchResponse{
		SearchID: search.ID,
		Keyword:  b.Keyword,
		Videos:   b.Videos,
		Analysis: b.Analysis,
		Prompt:   b.Prompt,
	})
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(c fiber.Ctx) error {
	if s.store == nil {
		return c.JSON([]models.SearchRecord{})
	}

	searches, err := s.store.ListSearches(c.Context(), storage.HistoryLimit)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(searches)
}

// handlePrompt handles GET /api/prompts?search_id=.
func (s *Server) handlePrompt(c fiber.Ctx) error {
	searchID := c.Query("search_id")
	if searchID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "search_id is required")
	}
	if s.store == nil {
		return errorResponse(c, fiber.StatusNotFound, "No prompt found for this search")
	}

	p, err := s.store.LatestPrompt(c.Context(), searchID)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "No prompt found for this search")
	}
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(p)
}
