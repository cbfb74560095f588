package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voyora/messaging-service/internal/apperr"
)

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}

// fail maps the error taxonomy onto HTTP status codes.
func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, apperr.ErrMalformedID):
		code = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, apperr.ErrNotAMember):
		code = fiber.StatusForbidden
	case errors.Is(err, apperr.ErrLastAdmin):
		code = fiber.StatusConflict
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// pageParams reads the shared limit/before pagination query params.
func pageParams(c *fiber.Ctx) (int64, time.Time) {
	limit := int64(c.QueryInt("limit", 50))
	var before time.Time
	if v := c.Query("before"); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			before = t
		}
	}
	return limit, before
}
