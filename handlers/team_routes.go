// handlers/team_routes.go
package handlers

import (
	"okr-progression-system/middleware"
	"okr-progression-system/models"
	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTeamRoutes(secured fiber.Router, teams *services.TeamService) {
	secured.Post("/teams", func(c *fiber.Ctx) error {
		var req struct {
			Title   string `json:"title"`
			Mission string `json:"mission"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		team, err := teams.CreateTeam(c.UserContext(), middleware.UserID(c), req.Title, req.Mission)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(team)
	})

	secured.Post("/teams/join", func(c *fiber.Ctx) error {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.BodyParser(&req); err != nil || req.Token == "" {
			return badRequest(c, "token is required")
		}
		m, err := teams.JoinWithToken(c.UserContext(), req.Token, middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	secured.Patch("/teams/:id", func(c *fiber.Ctx) error {
		var patch services.TeamPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "invalid JSON")
		}
		team, err := teams.UpdateTeam(c.UserContext(), c.Params("id"), middleware.UserID(c), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(team)
	})

	secured.Get("/teams/:id/members", func(c *fiber.Ctx) error {
		members, err := teams.Members(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(members)
	})

	secured.Post("/teams/:id/members", func(c *fiber.Ctx) error {
		var req struct {
			UserID string          `json:"user_id"`
			Role   models.TeamRole `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		m, err := teams.AddMember(c.UserContext(), c.Params("id"), middleware.UserID(c), req.UserID, req.Role)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	secured.Patch("/teams/:id/members/:user_id", func(c *fiber.Ctx) error {
		var req struct {
			Role models.TeamRole `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		m, err := teams.UpdateRole(c.UserContext(), c.Params("id"), middleware.UserID(c), c.Params("user_id"), req.Role)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(m)
	})
}
