package di

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"foodshare_backend/internal/platform/config"
	"foodshare_backend/internal/shared/ratelimiter"
)

// NewRateLimiter creates a Limiter implementation.
// If Redis is available, it returns a Redis-backed implementation shared by every instance.
// Otherwise, it falls back to a per-process fixed window.
func NewRateLimiter(rdb *redis.Client, cfg *config.Config) ratelimiter.Limiter {
	if rdb != nil {
		return ratelimiter.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow, "ratelimit")
	}
	slog.Warn("Redis unavailable. Rate limiting per process.")
	return ratelimiter.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
}
