package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"trend-brief/shared/cache"
	"trend-brief/shared/storage"
)

type healthHandler struct {
	store   storage.Store
	cache   *cache.SearchCache
	startAt time.Time
}

func newHealthHandler(store storage.Store, c *cache.SearchCache) *healthHandler {
	return &healthHandler{store: store, cache: c, startAt: time.Now()}
}

// Live handles GET /health/live.
func (h *healthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Disabled dependencies count as healthy.
func (h *healthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := fiber.Map{
		"database": h.checkStore(ctx),
		"redis":    h.checkRedis(ctx),
	}

	overall := "healthy"
	for _, check := range checks {
		if check.(fiber.Map)["status"] == "down" {
			overall = "degraded"
		}
	}

	status := fiber.StatusOK
	if overall != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
	})
}

func (h *healthHandler) checkStore(ctx context.Context) fiber.Map {
	if h.store == nil {
		return fiber.Map{"status": "disabled"}
	}
	return probe(func() error { return h.store.Ping(ctx) })
}

func (h *healthHandler) checkRedis(ctx context.Context) fiber.Map {
	if !h.cache.Enabled() {
		return fiber.Map{"status": "disabled"}
	}
	return probe(func() error { return h.cache.Client().Ping(ctx).Err() })
}

func probe(ping func() error) fiber.Map {
	start := time.Now()
	err := ping()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{"status": "down", "latency_ms": latency, "error": "connection failed"}
	}
	return fiber.Map{"status": "up", "latency_ms": latency}
}
