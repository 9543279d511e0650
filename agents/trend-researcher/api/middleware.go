package api

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"trend-brief/shared/monitoring"
)

// NewLogger builds the structured request logger. Unknown levels fall back to info.
func NewLogger(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", "trend-researcher").
		Logger()
}

// requestLogger logs each request as one JSON line, warn for 4xx and error for 5xx.
func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		} else if status >= 400 {
			evt = logger.Warn()
		}

		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}

func newCORS(corsOrigins string) fiber.Handler {
	origins := []string{"*"}
	if corsOrigins != "" && corsOrigins != "*" {
		origins = splitList(corsOrigins)
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       86400,
	})
}

// metricsMiddleware records request duration and in-flight count.
func metricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber reuses the underlying buffers, so copy before c.Next().
		path := endpointLabel(string([]byte(c.Path())))
		method := string([]byte(c.Method()))

		monitoring.Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		monitoring.Metrics.RequestDuration.WithLabelValues(path, method, status).Observe(time.Since(start).Seconds())
		monitoring.Metrics.RequestsInFlight.Dec()

		return err
	}
}

func metricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}

var knownEndpoints = map[string]bool{
	"/api/youtube":  true,
	"/api/analyze":  true,
	"/api/history":  true,
	"/api/prompts":  true,
	"/health/live":  true,
	"/health/ready": true,
}

// endpointLabel keeps the metric label set bounded.
func endpointLabel(path string) string {
	if knownEndpoints[path] {
		return path
	}
	return "other"
}
