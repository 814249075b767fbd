// handlers/session_routes.go
package handlers

import (
	"quiz-study-system/models"
	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessions *services.SessionService, guards Guards) {
	app.Post("/sessions", guards.User, func(c *fiber.Ctx) error {
		var in services.StartSessionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		sess, err := sessions.Start(c.UserContext(), userID(c), in)
		if err != nil {
			return fail(c, "failed to start session", err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	app.Get("/sessions/:id", guards.User, func(c *fiber.Ctx) error {
		sess, err := sessions.Get(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return fail(c, "failed to load session", err)
		}
		return c.JSON(sess)
	})

	app.Post("/sessions/:id/answers", guards.User, func(c *fiber.Ctx) error {
		var r models.SessionResult
		if err := c.BodyParser(&r); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		sess, err := sessions.Answer(c.UserContext(), userID(c), c.Params("id"), r)
		if err != nil {
			return fail(c, "failed to record answer", err)
		}
		return c.JSON(sess)
	})

	app.Patch("/sessions/:id/pause", guards.User, func(c *fiber.Ctx) error {
		sess, err := sessions.Pause(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return fail(c, "failed to pause session", err)
		}
		return c.JSON(sess)
	})

	app.Patch("/sessions/:id/resume", guards.User, func(c *fiber.Ctx) error {
		sess, err := sessions.Resume(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return fail(c, "failed to resume session", err)
		}
		return c.JSON(sess)
	})

	// An absent "results" keeps the stored results; an explicit array replaces them.
	app.Post("/sessions/:id/complete", guards.User, func(c *fiber.Ctx) error {
		var req struct {
			Results []models.SessionResult `json:"results"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid JSON", err)
			}
		}
		out, err := sessions.Complete(c.UserContext(), userID(c), c.Params("id"), req.Results)
		if err != nil {
			return fail(c, "failed to complete session", err)
		}
		return c.JSON(out)
	})
}
