package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CreateRateLimit caps how many payment requests a single requester can open
// per minute, keyed by requester id (or IP when the body carries none). Uses
// Redis when available, otherwise passes through.
func CreateRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			RequesterID string `json:"requester_id"`
		}
		_ = c.BodyParser(&req)
		who := strings.TrimSpace(req.RequesterID)
		if who == "" {
			who = c.IP()
		}
		key := "rl:create:" + who
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many payment requests, try again later")
		}
		return c.Next()
	}
}
