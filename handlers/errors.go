// handlers/errors.go
package handlers

import (
	"log/slog"

	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindValidation, services.KindConflict, services.KindCapacity:
		return fiber.StatusBadRequest
	case services.KindForbidden:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// writeError renders a service error. Internal errors are logged and the
// client only sees a generic message.
func writeError(c *fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if status == fiber.StatusInternalServerError {
		slog.Error("[HTTP] request failed", "method", c.Method(), "path", c.Path(), "kind", kind, "err", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
