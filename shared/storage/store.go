package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
)

// ErrNotFound is returned when a search or prompt does not exist.
var ErrNotFound = errors.New("not found")

// HistoryLimit is how many past searches the history view returns.
const HistoryLimit = 50

// Store persists searches, their ranked videos and the prompts generated for them.
type Store interface {
	CreateSearch(ctx context.Context, keyword string) (*models.SearchRecord, error)
	GetSearch(ctx context.Context, id string) (*models.SearchRecord, error)
	ListSearches(ctx context.Context, limit int) ([]models.SearchRecord, error)

	// SaveVideos stores videos in the given order; ListVideos returns them in that order.
	SaveVideos(ctx context.Context, searchID string, videos []models.VideoRecord) error
	ListVideos(ctx context.Context, searchID string) ([]models.VideoRecord, error)

	SavePrompt(ctx context.Context, searchID, text string) (*models.GeneratedPrompt, error)
	LatestPrompt(ctx context.Context, searchID string) (*models.GeneratedPrompt, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open returns the configured Store, or nil when persistence is disabled.
func Open(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageNone:
		log.Println("storage: disabled")
		return nil, nil
	case config.StoragePostgres:
		store, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageSQLite:
		store, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// SaveBrief stores a search together with its ranked videos and prompt. The
// search ID is returned whenever the search row was written, even if saving
// the videos or the prompt failed afterwards.
func SaveBrief(ctx context.Context, s Store, keyword string, videos []models.VideoRecord, prompt string) (string, error) {
	search, err := s.CreateSearch(ctx, keyword)
	if err != nil {
		return "", fmt.Errorf("failed to save search: %w", err)
	}

	var errs []error
	if err := s.SaveVideos(ctx, search.ID, videos); err != nil {
		errs = append(errs, fmt.Errorf("failed to save videos: %w", err))
	}
	if _, err := s.SavePrompt(ctx, search.ID, prompt); err != nil {
		errs = append(errs, fmt.Errorf("failed to save prompt: %w", err))
	}
	return search.ID, errors.Join(errs...)
}
