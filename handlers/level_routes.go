// handlers/level_routes.go
package handlers

import (
	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// SetupLevelRoutes registers the public ladder reads and the admin ladder edits.
func SetupLevelRoutes(app *fiber.App, admin fiber.Router, ladder *services.LadderService) {
	app.Get("/levels", func(c *fiber.Ctx) error {
		tiers, err := ladder.ListTiers(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(tiers)
	})

	app.Get("/levels/resolve", func(c *fiber.Ctx) error {
		xp, err := decimal.NewFromString(c.Query("xp", "0"))
		if err != nil {
			return badRequest(c, "xp must be a number")
		}
		tier, err := ladder.Resolve(c.UserContext(), xp)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(tier)
	})

	admin.Post("/levels", func(c *fiber.Ctx) error {
		var in services.TierInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		tier, err := ladder.CreateTier(c.UserContext(), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tier)
	})

	admin.Post("/levels/batch", func(c *fiber.Ctx) error {
		var in []services.TierInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		tiers, err := ladder.CreateTiersBatch(c.UserContext(), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tiers)
	})

	admin.Patch("/levels/batch", func(c *fiber.Ctx) error {
		var in []services.TierPatch
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		tiers, err := ladder.UpdateTiersBatch(c.UserContext(), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(tiers)
	})

	admin.Patch("/levels/:id", func(c *fiber.Ctx) error {
		var patch services.TierPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "invalid JSON")
		}
		patch.ID = c.Params("id")
		tier, err := ladder.UpdateTier(c.UserContext(), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(tier)
	})

	admin.Delete("/levels/:id", func(c *fiber.Ctx) error {
		if err := ladder.DeleteTier(c.UserContext(), c.Params("id")); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
