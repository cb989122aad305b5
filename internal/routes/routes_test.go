package routes

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/doorpay/doorpay/internal/config"
)

func TestSetupAuditsEveryRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	cfg := config.Config{AppEnv: "test", UnlockThreshold: 8, DoorCount: 14}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logger}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("ping: expected 200, got %d", resp.StatusCode)
	}

	log := buf.String()
	if !strings.Contains(log, `"msg":"request completed"`) {
		t.Fatalf("request did not reach the audit middleware: %s", log)
	}
	if !strings.Contains(log, `"path":"/api/v1/ping"`) {
		t.Fatalf("audit entry missing path: %s", log)
	}
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	app := fiber.New()
	cfg := config.Config{AppEnv: "production"}
	if err := Setup(app, Deps{Cfg: cfg, Logger: slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))}); err == nil {
		t.Fatal("expected setup to fail without database and redis")
	}
}
