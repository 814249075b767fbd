package handlers

import (
	"strconv"
	"time"

	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTeamRoutes(app *fiber.App, teams *services.TeamService, assignments *services.AssignmentService, guards Guards) {
	app.Post("/teams", guards.User, func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		team, err := teams.Create(c.UserContext(), userID(c), req.Name)
		if err != nil {
			return fail(c, "failed to create team", err)
		}
		return c.Status(fiber.StatusCreated).JSON(team)
	})

	app.Post("/teams/:slug/members", guards.User, func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		member, err := teams.AddMember(c.UserContext(), c.Params("slug"), userID(c), req.UserID)
		if err != nil {
			return fail(c, "failed to add member", err)
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	})

	app.Get("/teams/:slug/leaderboard", guards.User, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		board, err := teams.Leaderboard(c.UserContext(), c.Params("slug"), limit)
		if err != nil {
			return fail(c, "failed to build leaderboard", err)
		}
		return c.JSON(board)
	})

	app.Get("/user/assignments", guards.User, func(c *fiber.Ctx) error {
		list, err := assignments.ListUpcoming(c.UserContext(), userID(c), time.Now())
		if err != nil {
			return fail(c, "failed to list assignments", err)
		}
		return c.JSON(list)
	})

	app.Post("/assignments", guards.User, func(c *fiber.Ctx) error {
		var in services.NewAssignmentInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if in.UserID == "" {
			in.UserID = userID(c)
		}
		a, err := assignments.Create(c.UserContext(), in)
		if err != nil {
			return fail(c, "failed to create assignment", err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})
}
