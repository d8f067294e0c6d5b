// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"okr-progression-system/middleware"
	"okr-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes exposes the derived progress views: XP, level,
// rank and leaderboards. Nothing here writes.
func SetupProgressionRoutes(secured fiber.Router, leaderboards *services.LeaderboardService, users *services.UserService) {
	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		p, err := leaderboards.Profile(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(p)
	})

	secured.Get("/user/xp", func(c *fiber.Ctx) error {
		xp, err := leaderboards.XP.ComputeTotalXP(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(xp)
	})

	secured.Get("/leaderboards", func(c *fiber.Ctx) error {
		scope, err := services.ParseScope(c.Query("scope", string(services.ScopeGlobal)))
		if err != nil {
			return writeError(c, err)
		}
		ranking, err := leaderboards.BuildRanking(c.UserContext(), scope, middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		// No score rows yet is a null body, distinct from an empty ranking.
		if ranking == nil {
			return c.JSON(nil)
		}
		return c.JSON(ranking)
	})

	secured.Get("/users/search", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		res, err := users.Search(c.UserContext(), c.Query("q"), limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	})
}
