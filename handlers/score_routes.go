// handlers/score_routes.go
package handlers

import (
	"okr-progression-system/middleware"
	"okr-progression-system/models"
	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupScoreRoutes registers the write side used by the activity flows,
// plus the objective fetches that feed them.
func SetupScoreRoutes(secured fiber.Router, scores *services.ScoreService, objectives *services.ObjectiveService) {
	secured.Post("/scores/solo", func(c *fiber.Ctx) error {
		var in services.SoloInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		row, err := scores.RecordSolo(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(row)
	})

	secured.Put("/scores/solo/:id", func(c *fiber.Ctx) error {
		var in services.SoloInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		row, err := scores.CorrectSolo(c.UserContext(), c.Params("id"), middleware.UserID(c), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(row)
	})

	secured.Post("/scores/team", func(c *fiber.Ctx) error {
		var in services.TeamScoreInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		row, err := scores.RecordTeam(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(row)
	})

	secured.Post("/scores/campaign", func(c *fiber.Ctx) error {
		var in services.CampaignInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		row, err := scores.RecordCampaign(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(row)
	})

	secured.Post("/scores/bonus", func(c *fiber.Ctx) error {
		var in services.BonusInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON")
		}
		if in.Language == "" {
			in.Language = c.Get(fiber.HeaderAcceptLanguage)
		}
		row, err := scores.RecordBonus(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(row)
	})

	secured.Get("/scores/bonus/today", func(c *fiber.Ctx) error {
		row, err := scores.BonusToday(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"done": row != nil, "score": row})
	})

	secured.Get("/scores/solo/summary", func(c *fiber.Ctx) error {
		summary, err := scores.SoloRewardsSummary(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/scores/campaign/latest", func(c *fiber.Ctx) error {
		result, err := scores.LatestCampaignResult(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/scores/campaign/certifications", func(c *fiber.Ctx) error {
		progress, err := scores.Certifications(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(progress)
	})

	secured.Get("/scores/team/:id/summary", func(c *fiber.Ctx) error {
		summary, err := scores.TeamSummary(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/scores/team/:id/standing", func(c *fiber.Ctx) error {
		standing, err := scores.TeamStanding(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(standing)
	})

	secured.Get("/strategies/:id/objectives", func(c *fiber.Ctx) error {
		batch, err := objectives.Fetch(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(batch)
	})

	secured.Put("/strategies/:id/objectives", func(c *fiber.Ctx) error {
		var objs []models.Objective
		if err := c.BodyParser(&objs); err != nil {
			return badRequest(c, "invalid JSON")
		}
		saved, err := objectives.Save(c.UserContext(), c.Params("id"), objs)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(saved)
	})
}
