package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trend-brief/internal/models"
	"trend-brief/shared/monitoring"
)

const DefaultTTL = 15 * time.Minute

// SearchCache is a Redis cache-aside layer for source search results.
// A SearchCache without a client turns every operation into a no-op.
type SearchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// CachedSearch is what gets stored per key.
type CachedSearch struct {
	Videos []models.VideoRecord `json:"videos"`
	Demo   bool                 `json:"demo"`
}

// NewSearchCache connects to redisURL. An empty or unreachable URL disables caching.
func NewSearchCache(redisURL string, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &SearchCache{ttl: ttl}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL, caching disabled: %v", err)
		return &SearchCache{ttl: ttl}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		rdb.Close()
		return &SearchCache{ttl: ttl}
	}

	log.Printf("redis: connected, caching search results for %v", ttl)
	return &SearchCache{rdb: rdb, ttl: ttl}
}

// Client returns the underlying Redis client for health checks. May be nil.
func (c *SearchCache) Client() *redis.Client {
	return c.rdb
}

// Enabled reports whether a Redis connection is in use.
func (c *SearchCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached result, or nil on a miss or when caching is disabled.
func (c *SearchCache) Get(ctx context.Context, keyword string, filter models.VideoFilter, maxResults int) (*CachedSearch, error) {
	if !c.Enabled() {
		return nil, nil
	}

	data, err := c.rdb.Get(ctx, Key(keyword, filter, maxResults)).Bytes()
	if errors.Is(err, redis.Nil) {
		monitoring.Metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached search: %w", err)
	}

	var cached CachedSearch
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decoding cached search: %w", err)
	}
	monitoring.Metrics.CacheHits.Inc()
	return &cached, nil
}

func (c *SearchCache) Set(ctx context.Context, keyword string, filter models.VideoFilter, maxResults int, result *CachedSearch) error {
	if !c.Enabled() {
		return nil
	}

	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(keyword, filter, maxResults), b, c.ttl).Err()
}

func (c *SearchCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// Key builds the cache key; keywords differing only in case or surrounding
// space share an entry.
func Key(keyword string, filter models.VideoFilter, maxResults int) string {
	return fmt.Sprintf("search:%s:%s:%d", filter, strings.ToLower(strings.TrimSpace(keyword)), maxResults)
}
