package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestCreateRateLimitCapsPerRequester(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/payments", CreateRateLimit(cache, 3), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	post := func() int {
		t.Helper()
		req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader(`{"requester_id":"alice"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 3; i++ {
		if status := post(); status != fiber.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i+1, status)
		}
	}
	if status := post(); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 once over the limit, got %d", status)
	}
}
