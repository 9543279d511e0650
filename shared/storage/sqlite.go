package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"trend-brief/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS searches (
    id          TEXT PRIMARY KEY,
    keyword     TEXT NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
    search_id        TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    youtube_id       TEXT NOT NULL,
    title            TEXT NOT NULL DEFAULT '',
    channel_name     TEXT NOT NULL DEFAULT '',
    published_at     DATETIME NOT NULL,
    view_count       INTEGER NOT NULL DEFAULT 0,
    like_count       INTEGER NOT NULL DEFAULT 0,
    comment_count    INTEGER NOT NULL DEFAULT 0,
    tags             TEXT NOT NULL DEFAULT '[]',
    duration         TEXT NOT NULL DEFAULT '',
    duration_seconds INTEGER,
    thumbnail_url    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (search_id, position)
);

CREATE TABLE IF NOT EXISTS generated_prompts (
    id          TEXT PRIMARY KEY,
    search_id   TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    prompt_text TEXT NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_prompts_search_id ON generated_prompts(search_id, created_at);
`

// SQLiteStore keeps everything in a single local database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Printf("storage: sqlite database ready at %s", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, keyword string) (*models.SearchRecord, error) {
	rec := &models.SearchRecord{
		ID:        uuid.NewString(),
		Keyword:   keyword,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, keyword, created_at) VALUES (?, ?, ?)`,
		rec.ID, rec.Keyword, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting search: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*models.SearchRecord, error) {
	var rec models.SearchRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.keyword, s.created_at,
		       (SELECT COUNT(*) FROM videos v WHERE v.search_id = s.id)
		FROM searches s WHERE s.id = ?`, id).
		Scan(&rec.ID, &rec.Keyword, &rec.CreatedAt, &rec.VideoCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying search %s: %w", id, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListSearches(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.keyword, s.created_at,
		       (SELECT COUNT(*) FROM videos v WHERE v.search_id = s.id)
		FROM searches s
		ORDER BY s.created_at DESC, s.rowid DESC
		LIMIT ?`, limit)
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

func (s *SQLiteStore) SaveVideos(ctx context.Context, searchID string, videos []models.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO videos (search_id, position, youtube_id, title, channel_name, published_at,
		                    view_count, like_count, comment_count, tags, duration,
		                    duration_seconds, thumbnail_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing video insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range videos {
		tags, err := json.Marshal(nonNilTags(v.Tags))
		if err != nil {
			return fmt.Errorf("encoding tags for %s: %w", v.ID, err)
		}
		var duration sql.NullInt64
		if v.DurationSeconds != nil {
			duration = sql.NullInt64{Int64: int64(*v.DurationSeconds), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			searchID, i, v.ID, v.Title, v.ChannelName, v.PublishedAt.UTC(),
			v.ViewCount, v.LikeCount, v.CommentCount, string(tags), v.Duration,
			duration, v.ThumbnailURL,
		); err != nil {
			return fmt.Errorf("inserting video %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListVideos(ctx context.Context, searchID string) ([]models.VideoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT youtube_id, title, channel_name, published_at, view_count, like_count,
		       comment_count, tags, duration, duration_seconds, thumbnail_url
		FROM videos
		WHERE search_id = ?
		ORDER BY position`, searchID)
	if err != nil {
		return nil, fmt.Errorf("listing videos for %s: %w", searchID, err)
	}
	defer rows.Close()

	var videos []models.VideoRecord
	for rows.Next() {
		var (
			v        models.VideoRecord
			tags     string
			duration sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.ChannelName, &v.PublishedAt, &v.ViewCount,
			&v.LikeCount, &v.CommentCount, &tags, &v.Duration, &duration, &v.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("scanning video: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags for %s: %w", v.ID, err)
		}
		if duration.Valid {
			secs := int(duration.Int64)
			v.DurationSeconds = &secs
		}
		v.EngagementRate = models.EngagementRate(v.ViewCount, v.LikeCount)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *SQLiteStore) SavePrompt(ctx context.Context, searchID, text string) (*models.GeneratedPrompt, error) {
	p := &models.GeneratedPrompt{
		ID:         uuid.NewString(),
		SearchID:   searchID,
		PromptText: text,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_prompts (id, search_id, prompt_text, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.SearchID, p.PromptText, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting prompt: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) LatestPrompt(ctx context.Context, searchID string) (*models.GeneratedPrompt, error) {
	var p models.GeneratedPrompt
	err := s.db.QueryRowContext(ctx, `
		SELECT id, search_id, prompt_text, created_at
		FROM generated_prompts
		WHERE search_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, searchID).
		Scan(&p.ID, &p.SearchID, &p.PromptText, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying prompt for %s: %w", searchID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
