package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trend-brief/internal/models"
)

const (
	maxConnectRetries = 5
	connectRetryDelay = 2 * time.Second
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS searches (
    id          UUID PRIMARY KEY,
    keyword     TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS videos (
    search_id        UUID NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    youtube_id       TEXT NOT NULL,
    title            TEXT NOT NULL DEFAULT '',
    channel_name     TEXT NOT NULL DEFAULT '',
    published_at     TIMESTAMPTZ NOT NULL,
    view_count       BIGINT NOT NULL DEFAULT 0,
    like_count       BIGINT NOT NULL DEFAULT 0,
    comment_count    BIGINT NOT NULL DEFAULT 0,
    tags             TEXT[] NOT NULL DEFAULT '{}',
    duration         TEXT NOT NULL DEFAULT '',
    duration_seconds INTEGER,
    thumbnail_url    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (search_id, position)
);

CREATE TABLE IF NOT EXISTS generated_prompts (
    id          UUID PRIMARY KEY,
    search_id   UUID NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    prompt_text TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_prompts_search_id ON generated_prompts(search_id, created_at DESC);
`

// PostgresStore is the shared, multi-instance Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with retries, since the database often starts
// alongside the service.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			} else {
				pool.Close()
				pool = nil
				err = pingErr
			}
		}

		log.Printf("storage: database connection attempt %d/%d failed: %v", attempt, maxConnectRetries, err)
		if attempt < maxConnectRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxConnectRetries, err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Println("storage: postgres database connected")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, keyword string) (*models.SearchRecord, error) {
	rec := &models.SearchRecord{ID: uuid.NewString(), Keyword: keyword}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO searches (id, keyword) VALUES ($1, $2) RETURNING created_at`,
		rec.ID, rec.Keyword).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting search: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, id string) (*models.SearchRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var rec models.SearchRecord
	err := s.pool.QueryRow(ctx, `
		SELECT s.id::text, s.keyword, s.created_at,
		       (SELECT COUNT(*) FROM videos v WHERE v.search_id = s.id)
		FROM searches s WHERE s.id = $1`, id).
		Scan(&rec.ID, &rec.Keyword, &rec.CreatedAt, &rec.VideoCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying search %s: %w", id, err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id::text, s.keyword, s.created_at,
		       (SELECT COUNT(*) FROM videos v WHERE v.search_id = s.id)
		FROM searches s
		ORDER BY s.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	searches := []models.SearchRecord{}
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Keyword, &rec.CreatedAt, &rec.VideoCount); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		searches = append(searches, rec)
	}
	return searches, rows.Err()
}

func (s *PostgresStore) SaveVideos(ctx context.Context, searchID string, videos []models.VideoRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, v := range videos {
		batch.Queue(`
			INSERT INTO videos (search_id, position, youtube_id, title, channel_name, published_at,
			                    view_count, like_count, comment_count, tags, duration,
			                    duration_seconds, thumbnail_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			searchID, i, v.ID, v.Title, v.ChannelName, v.PublishedAt,
			v.ViewCount, v.LikeCount, v.CommentCount, nonNilTags(v.Tags), v.Duration,
			v.DurationSeconds, v.ThumbnailURL)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting videos: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListVideos(ctx context.Context, searchID string) ([]models.VideoRecord, error) {
	if _, err := uuid.Parse(searchID); err != nil {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT youtube_id, title, channel_name, published_at, view_count, like_count,
		       comment_count, tags, duration, duration_seconds, thumbnail_url
		FROM videos
		WHERE search_id = $1
		ORDER BY position`, searchID)
	if err != nil {
		return nil, fmt.Errorf("listing videos for %s: %w", searchID, err)
	}
	defer rows.Close()

	var videos []models.VideoRecord
	for rows.Next() {
		var v models.VideoRecord
		if err := rows.Scan(&v.ID, &v.Title, &v.ChannelName, &v.PublishedAt, &v.ViewCount,
			&v.LikeCount, &v.CommentCount, &v.Tags, &v.Duration, &v.DurationSeconds, &v.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("scanning video: %w", err)
		}
		v.EngagementRate = models.EngagementRate(v.ViewCount, v.LikeCount)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *PostgresStore) SavePrompt(ctx context.Context, searchID, text string) (*models.GeneratedPrompt, error) {
	p := &models.GeneratedPrompt{ID: uuid.NewString(), SearchID: searchID, PromptText: text}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO generated_prompts (id, search_id, prompt_text) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.SearchID, p.PromptText).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting prompt: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) LatestPrompt(ctx context.Context, searchID string) (*models.GeneratedPrompt, error) {
	if _, err := uuid.Parse(searchID); err != nil {
		return nil, ErrNotFound
	}

	var p models.GeneratedPrompt
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, search_id::text, prompt_text, created_at
		FROM generated_prompts
		WHERE search_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, searchID).
		Scan(&p.ID, &p.SearchID, &p.PromptText, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying prompt for %s: %w", searchID, err)
	}
	return &p, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
