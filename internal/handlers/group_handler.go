package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voyora/messaging-service/internal/service"
)

type GroupHandler struct {
	svc *service.GroupService
}

func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Name    string   `json:"name"`
		Image   string   `json:"image"`
		Members []string `json:"members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	g, err := h.svc.CreateGroup(c.Context(), userID(c), req.Name, req.Image, req.Members)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.svc.ListGroups(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(groups)
}

func (h *GroupHandler) GetGroup(c *fiber.Ctx) error {
	g, err := h.svc.GetGroup(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(g)
}

func (h *GroupHandler) AddMembers(c *fiber.Ctx) error {
	var req struct {
		Members []string `json:"members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.svc.AddMembers(c.Context(), c.Params("id"), req.Members); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	if err := h.svc.RemoveMember(c.Context(), c.Params("id"), c.Params("uid")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) UpdateGroup(c *fiber.Ctx) error {
	var req struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.svc.UpdateGroupInfo(c.Context(), c.Params("id"), req.Name, req.Image); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) SendMessage(c *fiber.Ctx) error {
	var req struct {
		Text       string `json:"text"`
		SenderName string `json:"sender_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	msg, err := h.svc.SendGroupMessage(c.Context(), c.Params("id"), userID(c), req.SenderName, req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *GroupHandler) ListMessages(c *fiber.Ctx) error {
	limit, before := pageParams(c)
	msgs, err := h.svc.ListGroupMessages(c.Context(), c.Params("id"), limit, before)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

// MarkRead always answers 204: zeroing the unread badge is
// best-effort.
func (h *GroupHandler) MarkRead(c *fiber.Ctx) error {
	h.svc.MarkGroupRead(c.Context(), c.Params("id"), userID(c))
	return c.SendStatus(fiber.StatusNoContent)
}
