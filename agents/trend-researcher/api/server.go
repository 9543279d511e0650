package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"trend-brief/agents/trend-researcher/youtube"
	"trend-brief/shared/brief"
	"trend-brief/shared/cache"
	"trend-brief/shared/config"
	"trend-brief/shared/storage"
)

const (
	defaultMaxResults = 20
	defaultResultsCap = 50
)

// Deps are the collaborators the API serves from. Store and Cache may be nil.
type Deps struct {
	Source  youtube.Source
	Store   storage.Store
	Cache   *cache.SearchCache
	Builder *brief.Builder
	Logger  zerolog.Logger
}

// Server is the research HTTP API.
type Server struct {
	app        *fiber.App
	source     youtube.Source
	store      storage.Store
	cache      *cache.SearchCache
	builder    *brief.Builder
	logger     zerolog.Logger
	resultsCap int
	health     *healthHandler
}

func NewServer(cfg *config.ServerConfig, deps Deps) *Server {
	s := &Server{
		source:     deps.Source,
		store:      deps.Store,
		cache:      deps.Cache,
		builder:    deps.Builder,
		logger:     deps.Logger,
		resultsCap: cfg.MaxResultsCap,
	}
	if s.builder == nil {
		s.builder = brief.NewBuilder(nil, nil)
	}
	if s.resultsCap <= 0 {
		s.resultsCap = defaultResultsCap
	}
	s.health = newHealthHandler(s.store, s.cache)

	s.app = fiber.New(fiber.Config{
		AppName:      "Trend Researcher API",
		ServerHeader: "trend-researcher",
	})
	s.routes(cfg.CORSOrigins)
	return s
}

func (s *Server) routes(corsOrigins string) {
	s.app.Use(recoverer.New())
	s.app.Use(requestLogger(s.logger))
	s.app.Use(newCORS(corsOrigins))
	s.app.Use(metricsMiddleware())

	s.app.Get("/health/live", s.health.Live)
	s.app.Get("/health/ready", s.health.Ready)
	s.app.Get("/metrics", metricsHandler())

	api := s.app.Group("/api")
	api.Post("/youtube", s.handleSearch)
	api.Post("/analyze", s.handleAnalyze)
	api.Get("/history", s.handleHistory)
	api.Get("/prompts", s.handlePrompt)
}

// App exposes the fiber app, mainly for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(port string) error {
	return s.app.Listen(":"+port, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
