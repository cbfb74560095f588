package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List returns the caller's notifications aggregated per (type, target).
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	aggs, err := h.svc.ListAggregated(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(aggs)
}

// Record stores one raw notification event on behalf of another
// service (like, comment, follow).
func (h *NotificationHandler) Record(c *fiber.Ctx) error {
	var req struct {
		UserID    string `json:"user_id"`
		Type      string `json:"type"`
		TargetID  string `json:"target_id"`
		ActorName string `json:"actor_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	n, err := h.svc.Record(c.Context(), &models.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		TargetID:  req.TargetID,
		ActorID:   userID(c),
		ActorName: req.ActorName,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// MarkAllRead is idempotent; the client calls it on every screen focus.
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.svc.MarkAllRead(c.Context(), userID(c)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
