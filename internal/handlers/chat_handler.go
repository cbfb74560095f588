package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voyora/messaging-service/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateChat returns the conversation with the given peer, creating it
// on first contact.
func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	conv, err := h.svc.GetOrCreateChat(c.Context(), userID(c), req.PeerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(conv)
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	convs, err := h.svc.ListConversations(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(convs)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	msg, err := h.svc.SendMessage(c.Context(), c.Params("id"), userID(c), req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	limit, before := pageParams(c)
	msgs, err := h.svc.ListMessages(c.Context(), c.Params("id"), limit, before)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *ChatHandler) MarkSeen(c *fiber.Ctx) error {
	err := h.svc.MarkMessageSeen(c.Context(), c.Params("id"), c.Params("mid"), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
