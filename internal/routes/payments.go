package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/doorpay/doorpay/internal/payment"
)

// RegisterPaymentRoutes wires the payment-request lifecycle endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payment.Handler, createLimiter fiber.Handler) {
	if createLimiter != nil {
		r.Post("/payments", createLimiter, h.Create)
	} else {
		r.Post("/payments", h.Create)
	}
	r.Get("/payments/pending/:userId", h.ListPending)
	r.Get("/payments/:userId", h.ListOutgoing)
	r.Post("/payments/acknowledge", h.Acknowledge)
	r.Post("/payments/finalize", h.Finalize)
	r.Delete("/payments", h.Delete)
}
