package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/doorpay/doorpay/internal/resident"
)

// RegisterResidentRoutes wires resident account endpoints.
func RegisterResidentRoutes(r fiber.Router, h *resident.Handler) {
	group := r.Group("/residents")
	group.Post("", h.Register)
	group.Post("/lookup", h.Lookup)
	group.Get("/:id", h.Get)
	group.Patch("/:id", h.Update)
	group.Delete("/:id", h.Delete)
	group.Get("/:id/doors", h.Doors)
}
