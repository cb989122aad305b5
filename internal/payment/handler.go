package payment

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/doorpay/doorpay/internal/resident"
)

// Handler exposes the payment-request lifecycle over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	RequesterID string `json:"requester_id"`
	RecipientID string `json:"recipient_id"`
	Amount      int64  `json:"amount"`
	Door        int    `json:"door"`
}

// Create opens a new payment request.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id, err := h.service.CreateRequest(c.UserContext(), CreateInput{
		RequesterID: req.RequesterID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		Door:        req.Door,
	})
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"request_id": id})
}

// ListOutgoing returns the requests a user initiated.
func (h *Handler) ListOutgoing(c *fiber.Ctx) error {
	out, err := h.service.ListOutgoing(c.UserContext(), c.Params("userId"))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// ListPending returns the mirror entries awaiting a user's action.
func (h *Handler) ListPending(c *fiber.Ctx) error {
	out, err := h.service.ListPending(c.UserContext(), c.Params("userId"))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

type pairRequest struct {
	RequesterID string `json:"requester_id"`
	RecipientID string `json:"recipient_id"`
}

// Acknowledge records the recipient's intent to pay.
func (h *Handler) Acknowledge(c *fiber.Ctx) error {
	var req pairRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Acknowledge(c.UserContext(), req.RequesterID, req.RecipientID); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": string(resident.StatusAwaitingApproval)})
}

// Finalize marks the request paid and returns the requester's door flags.
func (h *Handler) Finalize(c *fiber.Ctx) error {
	var req pairRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	doorStatus, err := h.service.Finalize(c.UserContext(), req.RequesterID, req.RecipientID)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":      string(resident.StatusPaid),
		"door_status": doorStatus,
	})
}

type deleteRequest struct {
	RequesterID string `json:"requester_id"`
	RequestID   string `json:"request_id"`
}

// Delete removes a request and its mirror entry.
func (h *Handler) Delete(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.DeleteRequest(c.UserContext(), req.RequesterID, req.RequestID); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "deleted"})
}

// httpError maps lifecycle errors onto HTTP statuses. Every response names the
// entity or precondition that failed; storage faults stay 500s.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRequesterNotFound),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrMirrorDrift),
		errors.Is(err, resident.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrAmountInvalid),
		errors.Is(err, ErrDoorInvalid):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidState):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
