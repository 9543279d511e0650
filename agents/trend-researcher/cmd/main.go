package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	trendresearcher "trend-brief/agents/trend-researcher"
	"trend-brief/agents/trend-researcher/api"
	"trend-brief/agents/trend-researcher/youtube"
	"trend-brief/internal/models"
	"trend-brief/shared/brief"
	"trend-brief/shared/cache"
	"trend-brief/shared/config"
	"trend-brief/shared/prompt"
	"trend-brief/shared/scheduler"
	"trend-brief/shared/storage"
)

func main() {
	once := flag.Bool("once", false, "run one watchlist pass and exit")
	keyword := flag.String("keyword", "", "print the research prompt for a single keyword and exit")
	maxResults := flag.Int("max", 20, "number of videos for --keyword")
	filter := flag.String("filter", "all", "video filter for --keyword: all, shorts or longform")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := api.NewLogger(cfg.Server.LogLevel, os.Stderr)

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := youtube.NewSource(ctx, &cfg.YouTube)
	if err != nil {
		log.Fatalf("Failed to create YouTube source: %v", err)
	}

	if *keyword != "" {
		if err := printPrompt(ctx, cfg, source, logger, *keyword, *maxResults, *filter); err != nil {
			log.Fatalf("Research failed: %v", err)
		}
		return
	}

	store, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	agent := trendresearcher.NewTrendAgent(cfg, source, store, logger)
	defer agent.StopTokenRefresher()
	s := scheduler.New(cfg, agent)

	if *once {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}
		if err := s.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run: %v", err)
		}
		return
	}

	if err := serve(ctx, cfg, source, store, s, logger); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// serve runs the HTTP API and, when keywords are configured, the watchlist
// scheduler until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, source youtube.Source, store storage.Store, s *scheduler.Scheduler, logger zerolog.Logger) error {
	locale, err := cfg.Locale()
	if err != nil {
		return err
	}

	searchCache := cache.NewSearchCache(cfg.Cache.RedisURL, cfg.Cache.TTL())
	defer searchCache.Close()

	server := api.NewServer(&cfg.Server, api.Deps{
		Source:  source,
		Store:   store,
		Cache:   searchCache,
		Builder: brief.NewBuilder(nil, prompt.NewComposer(locale)),
		Logger:  logger,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Bool("demo", source.Demo()).Msg("API listening")
		errCh <- server.Listen(cfg.Server.Port)
	}()

	if len(cfg.Watch.Keywords) > 0 {
		go func() {
			if err := s.Start(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("scheduler: %w", err)
			}
		}()
	} else {
		logger.Info().Msg("No watchlist keywords configured, scheduler disabled")
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("API shutdown failed")
	}
	logger.Info().Msg("Shut down")
	return err
}

func printPrompt(ctx context.Context, cfg *config.Config, source youtube.Source, logger zerolog.Logger, keyword string, maxResults int, filter string) error {
	agent := trendresearcher.NewTrendAgent(cfg, source, nil, logger)
	if err := agent.Initialize(); err != nil {
		return err
	}
	defer agent.StopTokenRefresher()

	maxResults = min(max(maxResults, 1), cfg.Server.MaxResultsCap)
	b, err := agent.ResearchKeyword(ctx, keyword, maxResults, models.ParseVideoFilter(filter))
	if err != nil {
		return err
	}

	fmt.Println(b.Prompt)
	return nil
}
