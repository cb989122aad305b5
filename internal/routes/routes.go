package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/doorpay/doorpay/internal/config"
	"github.com/doorpay/doorpay/internal/doors"
	"github.com/doorpay/doorpay/internal/middleware"
	"github.com/doorpay/doorpay/internal/notification"
	"github.com/doorpay/doorpay/internal/payment"
	"github.com/doorpay/doorpay/internal/resident"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside of dev the real backends are mandatory even though main checks too.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store resident.Store
	if d.DB != nil {
		store = resident.NewPostgresStore(d.DB)
	} else {
		store = resident.NewMemoryStore()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	projector := doors.NewProjector(d.Cfg.UnlockThreshold, d.Cfg.DoorCount)
	residentSvc := resident.NewService(store)
	paymentSvc := payment.NewService(store, projector, notifier)

	residentHandler := resident.NewHandler(residentSvc)
	paymentHandler := payment.NewHandler(paymentSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterResidentRoutes(api, residentHandler)
	createLimiter := middleware.CreateRateLimit(d.Cache, 10)
	RegisterPaymentRoutes(api, paymentHandler, createLimiter)

	return nil
}
