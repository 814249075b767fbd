// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(
	app *fiber.App,
	progression *services.ProgressionService,
	history *services.HistoryService,
	catalogue *services.CatalogueService,
	guards Guards,
) {
	app.Get("/user/stats", guards.User, func(c *fiber.Ctx) error {
		ov, err := progression.Overview(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to compute stats", err)
		}
		return c.JSON(ov)
	})

	app.Get("/user/history", guards.User, func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		h, err := history.GetUserHistory(c.UserContext(), userID(c), page, size)
		if err != nil {
			return fail(c, "failed to get history", err)
		}
		return c.JSON(h)
	})

	app.Get("/user/achievements", guards.User, func(c *fiber.Ctx) error {
		unlocked, err := catalogue.ListUnlocked(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to get achievements", err)
		}
		response := make([]fiber.Map, 0, len(unlocked))
		for _, ua := range unlocked {
			if ua.Achievement == nil {
				continue
			}
			response = append(response, fiber.Map{
				"id":             ua.ID,
				"achievement_id": ua.AchievementID,
				"code":           ua.Achievement.Code,
				"name":           ua.Achievement.Name,
				"description":    ua.Achievement.Description,
				"icon_url":       ua.Achievement.IconURL,
				"rarity":         ua.Achievement.Rarity,
				"unlocked_at":    ua.UnlockedAt,
			})
		}
		return c.JSON(response)
	})

	app.Get("/achievements", guards.User, func(c *fiber.Ctx) error {
		all, err := catalogue.List(c.UserContext())
		if err != nil {
			return fail(c, "failed to list achievements", err)
		}
		return c.JSON(all)
	})

	// Admin endpoints
	app.Post("/admin/achievements", guards.User, guards.Admin, func(c *fiber.Ctx) error {
		var in services.NewAchievementInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid form", err)
		}

		var icon *services.Icon
		if fh, err := c.FormFile("icon"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return badRequest(c, "unreadable icon", err)
			}
			defer f.Close()
			icon = &services.Icon{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			}
		}

		a, err := catalogue.Create(c.UserContext(), in, icon)
		if err != nil {
			return fail(c, "failed to create achievement", err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	app.Post("/admin/stats/:user_id/recompute", guards.User, guards.Admin, func(c *fiber.Ctx) error {
		snap, err := progression.RecomputeStats(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return fail(c, "recompute failed", err)
		}
		return c.JSON(snap)
	})
}
