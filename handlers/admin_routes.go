// handlers/admin_routes.go
package handlers

import (
	"context"

	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

type weeklyRunner interface {
	Run(ctx context.Context) (int, error)
}

type snapshotRunner interface {
	Export(ctx context.Context) (int, error)
}

// SetupAdminRoutes registers manual triggers for the scheduled jobs and the
// objective attempt counters. exporter and limiter may be nil.
func SetupAdminRoutes(admin fiber.Router, weekly weeklyRunner, exporter snapshotRunner, limiter *services.AttemptLimiter) {
	admin.Post("/jobs/weekly-summary", func(c *fiber.Ctx) error {
		queued, err := weekly.Run(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"queued": queued})
	})

	admin.Post("/jobs/leaderboard-snapshot", func(c *fiber.Ctx) error {
		if exporter == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "object storage is not configured"})
		}
		n, err := exporter.Export(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"exported": n})
	})

	admin.Get("/strategies/:id/attempts", func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.JSON(fiber.Map{"remaining": -1})
		}
		left, err := limiter.Remaining(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"remaining": left})
	})

	admin.Delete("/strategies/:id/attempts", func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		if err := limiter.Reset(c.UserContext(), c.Params("id")); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
