// handlers/challenge_routes.go
package handlers

import (
	"okr-progression-system/middleware"
	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(secured fiber.Router, challenges *services.ChallengeService, invitations *services.InvitationService) {
	secured.Post("/challenges", func(c *fiber.Ctx) error {
		ch, err := challenges.Create(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	secured.Post("/challenges/join", func(c *fiber.Ctx) error {
		var req struct {
			Code string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return badRequest(c, "code is required")
		}
		ch, err := challenges.Join(c.UserContext(), req.Code, middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(ch)
	})

	secured.Get("/challenges/:id", func(c *fiber.Ctx) error {
		ch, err := challenges.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(ch)
	})

	secured.Post("/challenges/:id/start", func(c *fiber.Ctx) error {
		ch, err := challenges.Start(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(ch)
	})

	secured.Post("/challenges/:id/scores", func(c *fiber.Ctx) error {
		var sub services.ScoreSubmission
		if err := c.BodyParser(&sub); err != nil {
			return badRequest(c, "invalid JSON")
		}
		row, err := challenges.SubmitScore(c.UserContext(), c.Params("id"), middleware.UserID(c), sub)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(row)
	})

	secured.Get("/challenges/:id/results", func(c *fiber.Ctx) error {
		res, err := challenges.Results(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	})

	// A single player_id sends one invitation; player_ids sends a batch.
	secured.Post("/challenges/:id/invitations", func(c *fiber.Ctx) error {
		var req struct {
			PlayerID  string   `json:"player_id"`
			PlayerIDs []string `json:"player_ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		hostID := middleware.UserID(c)
		if len(req.PlayerIDs) > 0 {
			res, err := invitations.InviteMany(c.UserContext(), c.Params("id"), hostID, req.PlayerIDs)
			if err != nil {
				return writeError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(res)
		}
		inv, err := invitations.Invite(c.UserContext(), c.Params("id"), hostID, req.PlayerID)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(inv)
	})

	secured.Get("/invitations", func(c *fiber.Ctx) error {
		invs, err := invitations.ListForPlayer(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(invs)
	})

	respond := func(accept bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			inv, err := invitations.Respond(c.UserContext(), c.Params("id"), middleware.UserID(c), accept)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(inv)
		}
	}
	secured.Post("/invitations/:id/accept", respond(true))
	secured.Post("/invitations/:id/reject", respond(false))
}
