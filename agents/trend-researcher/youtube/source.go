package youtube

import (
	"context"
	"log"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
)

// Source returns ranked videos for a keyword.
type Source interface {
	Search(ctx context.Context, keyword string, maxResults int, filter models.VideoFilter) ([]models.VideoRecord, error)
	// Demo reports whether results come from the built-in fixture.
	Demo() bool
}

// NewSource picks the live client when credentials are configured and the
// demo fixture otherwise.
func NewSource(ctx context.Context, cfg *config.YouTubeConfig) (Source, error) {
	if cfg.DemoMode() {
		log.Println("No YouTube credentials configured, serving demo data")
		return NewDemoSource()
	}
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
