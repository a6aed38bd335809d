// Package ratelimit builds the Fiber limiters guarding the public API.
package ratelimit

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/lynqit/lynqit/internal/pkg/cache"
	"github.com/lynqit/lynqit/internal/pkg/env"
)

// limiterDatabase keeps limiter counters apart from the cache and job queue.
const limiterDatabase = 2

// NewStorage returns Redis-backed limiter storage on the cache server, or
// nil when Redis is unreachable so the limiter falls back to process memory.
func NewStorage() fiber.Storage {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cacheClient.Ping(ctx).Err(); err != nil {
			log.Warnf("[RateLimit] Redis unreachable, limiting per process: %v", err)
			return nil
		}
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}

// Config describes one limiter.
type Config struct {
	Max        int
	Expiration time.Duration
	Storage    fiber.Storage
	KeyFunc    func(c *fiber.Ctx) string
}

// New returns a limiter answering 429 with the API error body.
func New(cfg Config) fiber.Handler {
	lc := limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Expiration,
		Storage:    cfg.Storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Te veel verzoeken, probeer het zo opnieuw",
			})
		},
	}
	if cfg.KeyFunc != nil {
		lc.KeyGenerator = cfg.KeyFunc
	}
	return limiter.New(lc)
}
